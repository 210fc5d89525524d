package compression

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sample = bytes.Repeat([]byte("id,tags\n1,\"[a, b]\"\n2,\"[]\"\n"), 200)

func TestRoundTrip(t *testing.T) {
	for _, alg := range Algorithms {
		for _, level := range []Level{Fastest, Default, Better, Best} {
			t.Run(string(alg)+"/"+level.String(), func(t *testing.T) {
				var buf bytes.Buffer
				w, err := NewWriter(&buf, alg, level)
				require.NoError(t, err)
				_, err = w.Write(sample)
				require.NoError(t, err)
				require.NoError(t, w.Close())
				if alg != None {
					assert.Less(t, buf.Len(), len(sample))
				}

				r, err := NewReader(&buf, alg)
				require.NoError(t, err)
				defer r.Close()
				got, err := io.ReadAll(r)
				require.NoError(t, err)
				assert.Equal(t, sample, got)
			})
		}
	}
}

func TestStreamDoesNotCloseUnderlying(t *testing.T) {
	for _, alg := range Algorithms {
		t.Run(string(alg), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, alg, Default)
			require.NoError(t, err)
			for i := 0; i < 4; i++ {
				_, err = w.Write(sample[:100])
				require.NoError(t, err)
			}
			require.NoError(t, w.Close())

			r, err := NewReader(&buf, alg)
			require.NoError(t, err)
			defer r.Close()
			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, bytes.Repeat(sample[:100], 4), got)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := map[string]Algorithm{
		"":             None,
		"uncompressed": None,
		"GZIP":         Gzip,
		"gz":           Gzip,
		"zst":          Zstd,
		" lz4 ":        LZ4,
		"snappy":       Snappy,
	}
	for in, want := range tests {
		got, err := ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAlgorithm("brotli")
	assert.Error(t, err)
	_, err = NewWriter(io.Discard, Algorithm("brotli"), Default)
	assert.Error(t, err)
}

func TestDetectFromPath(t *testing.T) {
	assert.Equal(t, Gzip, DetectFromPath("out/data.csv.gz"))
	assert.Equal(t, Zstd, DetectFromPath("data.ndjson.ZST"))
	assert.Equal(t, None, DetectFromPath("data.csv"))
	for _, alg := range Algorithms[1:] {
		assert.Equal(t, alg, DetectFromPath("x"+alg.Extension()))
	}
}
