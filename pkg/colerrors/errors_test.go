package colerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeFile, "nothing"))
}

func TestWrapPreservesStack(t *testing.T) {
	inner := New(ErrorTypeData, "bad value")
	outer := Wrap(inner, ErrorTypeEngine, "make column")

	require.NotNil(t, outer)
	assert.Equal(t, inner.Stack, outer.Stack)
	assert.True(t, IsType(outer, ErrorTypeEngine))

	var got *Error
	require.True(t, errors.As(outer.Cause, &got))
	assert.Equal(t, ErrorTypeData, got.Type)
}

func TestNewCapturesStack(t *testing.T) {
	err := New(ErrorTypeInternal, "boom")
	require.NotEmpty(t, err.Stack)
	assert.Contains(t, err.Stack[0].Function, "TestNewCapturesStack")
}

func TestIsTypeThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", Newf(ErrorTypeConfig, "max depth %d", -1))
	assert.True(t, IsType(err, ErrorTypeConfig))
	assert.False(t, IsType(err, ErrorTypeFile))
	assert.Equal(t, "outer: config: max depth -1", err.Error())
}
