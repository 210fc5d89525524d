package config_test

import (
	"fmt"

	"github.com/ajitpratap0/colframe/pkg/config"
)

// ExampleDefault shows the defaults every command starts from.
func ExampleDefault() {
	cfg := config.Default()

	fmt.Printf("Max depth: %d\n", cfg.Series.MaxDepth)
	fmt.Printf("Allocator: %s\n", cfg.Engine.Allocator)
	fmt.Printf("Log level: %s\n", cfg.Logging.Level)

	// Output:
	// Max depth: 64
	// Allocator: go
	// Log level: info
}

// ExampleConfig_Validate shows how an invalid setting is reported.
func ExampleConfig_Validate() {
	cfg := config.Default()
	cfg.Series.MaxDepth = -1

	fmt.Println(cfg.Validate())

	// Output:
	// config: series.max_depth must be positive, got -1
}
