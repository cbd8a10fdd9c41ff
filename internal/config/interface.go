package config

import "context"

// Loader reads a configuration file into the model, merges dotenv and
// property files and validates the result.
type Loader interface {
	Load(ctx context.Context, path string) (*Config, error)
}

// FileLoader deserializes a data file in any supported format into generic
// Go values (maps, slices and scalars).
type FileLoader interface {
	LoadFile(path string) (any, error)
}
