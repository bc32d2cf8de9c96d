// Package config loads the hangman server's YAML configuration, following
// the same read-file-then-unmarshal-over-defaults shape used by the rest of
// this code's sibling projects.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Server holds every tunable of the hangman server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Worker pool
	Workers int `yaml:"workers"`

	// Storage
	DataDir  string `yaml:"data_dir"`
	WordsDir string `yaml:"words_dir"`

	// Buffers
	RecvBufferSize  int `yaml:"recv_buffer_size"`
	SendBufferLimit int `yaml:"send_buffer_limit"`

	// Logging
	LogLevel string `yaml:"log_level"` // informational only; the server does not read it
}

// Default returns a Server config with the values the binary falls back to
// when no config file is given.
func Default() Server {
	return Server{
		BindAddress:     "0.0.0.0",
		Port:            5000,
		Workers:         1,
		DataDir:         "./data",
		WordsDir:        "./words",
		RecvBufferSize:  8192,
		SendBufferLimit: 1 << 20,
		LogLevel:        "info",
	}
}

// Load reads a YAML config file over top of Default(). A missing file is not
// an error; it just means the defaults stand.
func Load(path string) (Server, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}
