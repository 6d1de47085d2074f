package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/CTAG07/drosera/pkg/corpus"
	"github.com/natefinch/atomic"
)

// TokenizerConfig holds the settings for the default tokenizer.
type TokenizerConfig struct {
	Separator  string `json:"separator"`
	EndMark    string `json:"end_mark"`
	SplitRegex string `json:"split_regex"`
	EndRegex   string `json:"end_regex"`
}

// Config is the top-level configuration for the CLI.
type Config struct {
	LogLevel     string           `json:"log_level"`
	DataDir      string           `json:"data_dir"`
	DatabasePath string           `json:"database_path"`
	Order        int              `json:"model_order"`
	MaxSteps     int              `json:"max_generation_steps"`
	Tokenizer    *TokenizerConfig `json:"tokenizer_config"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:     "info",
		DataDir:      "./data",
		DatabasePath: "./data/drosera.db?_journal_mode=WAL&_busy_timeout=5000",
		Order:        3,
		// Generation walks are unbounded by contract, but an untrained or
		// partially trained model can walk forever; the CLI always caps.
		MaxSteps: 1000,
		Tokenizer: &TokenizerConfig{
			Separator:  " ",
			EndMark:    ".",
			SplitRegex: `[\w']+|[.,!?;]`,
			EndRegex:   `^[.!?]$`,
		},
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// The run can still proceed on defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// NewTokenizer builds the configured tokenizer.
func (c *Config) NewTokenizer() *corpus.DefaultTokenizer {
	tc := c.Tokenizer
	if tc == nil {
		return corpus.NewDefaultTokenizer()
	}
	var opts []corpus.Option
	if tc.Separator != "" {
		opts = append(opts, corpus.WithSeparator(tc.Separator))
	}
	if tc.EndMark != "" {
		opts = append(opts, corpus.WithEndMark(tc.EndMark))
	}
	if tc.SplitRegex != "" {
		opts = append(opts, corpus.WithSplitRegex(tc.SplitRegex))
	}
	if tc.EndRegex != "" {
		opts = append(opts, corpus.WithEndRegex(tc.EndRegex))
	}
	return corpus.NewDefaultTokenizer(opts...)
}
