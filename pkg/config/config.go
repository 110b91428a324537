package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} expressions.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LoadConfig reads a YAML config file, performs environment variable
// substitution on the raw bytes, then unmarshals into a Config struct.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	data = substituteEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns in content
// with the corresponding environment variable values. If a variable is not
// set and no default is provided, the expression is replaced with an empty
// string.
func substituteEnvVars(content []byte) []byte {
	return envVarPattern.ReplaceAllFunc(content, func(match []byte) []byte {
		groups := envVarPattern.FindSubmatch(match)
		if groups == nil {
			return match
		}

		varName := string(groups[1])
		defaultVal := ""
		hasDefault := len(groups) > 2 && groups[2] != nil
		if hasDefault {
			defaultVal = string(groups[2])
		}

		val, ok := os.LookupEnv(varName)
		if !ok || val == "" {
			if hasDefault {
				return []byte(defaultVal)
			}
			return []byte("")
		}
		return []byte(val)
	})
}

// Validate performs basic validation on a loaded Config. It checks that
// required fields are set and that values are within expected ranges.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if cfg.Service.ID == "" {
		return fmt.Errorf("service.id is required")
	}

	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if cfg.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must be non-negative, got %d", cfg.Database.MaxConns)
	}

	if cfg.Streaming.Enabled && len(cfg.Streaming.Kafka.Brokers) == 0 {
		return fmt.Errorf("streaming.kafka.brokers is required when streaming is enabled")
	}

	// Validate producer compression
	compression := cfg.Streaming.Kafka.Producer.Compression
	if compression != "" {
		validCompression := map[string]bool{
			"none": true, "gzip": true, "snappy": true, "lz4": true, "zstd": true,
		}
		if !validCompression[compression] {
			return fmt.Errorf("streaming.kafka.producer.compression %q is not valid; must be one of: none, gzip, snappy, lz4, zstd", compression)
		}
	}

	if cfg.Threat.HeadSize < 0 {
		return fmt.Errorf("threat.head_size must be non-negative, got %d", cfg.Threat.HeadSize)
	}
	if cfg.Threat.MaxFileSize < 0 {
		return fmt.Errorf("threat.max_file_size must be non-negative, got %d", cfg.Threat.MaxFileSize)
	}

	if cfg.PII.MinConfidence < 0 || cfg.PII.MinConfidence > 1 {
		return fmt.Errorf("pii.min_confidence must be between 0.0 and 1.0, got %f", cfg.PII.MinConfidence)
	}
	if cfg.PII.ContextWindow < 0 {
		return fmt.Errorf("pii.context_window must be non-negative, got %d", cfg.PII.ContextWindow)
	}

	if cfg.Pipeline.MinTextLength < 0 {
		return fmt.Errorf("pipeline.min_text_length must be non-negative, got %d", cfg.Pipeline.MinTextLength)
	}
	if cfg.Pipeline.Workers < 0 {
		return fmt.Errorf("pipeline.workers must be non-negative, got %d", cfg.Pipeline.Workers)
	}

	if cfg.Receipts.Enabled && cfg.Receipts.SigningKey == "" {
		return fmt.Errorf("receipts.signing_key is required when receipts are enabled")
	}

	// Validate log level
	level := cfg.Logging.Level
	if level != "" {
		validLevels := map[string]bool{
			"debug": true, "info": true, "warn": true, "error": true,
		}
		if !validLevels[level] {
			return fmt.Errorf("logging.level %q is not valid; must be one of: debug, info, warn, error", level)
		}
	}

	// Validate log format
	format := cfg.Logging.Format
	if format != "" {
		if format != "json" && format != "text" {
			return fmt.Errorf("logging.format %q is not valid; must be json or text", format)
		}
	}

	if cfg.Server.Metrics.Port < 0 {
		return fmt.Errorf("server.metrics.port must be non-negative, got %d", cfg.Server.Metrics.Port)
	}

	return nil
}
