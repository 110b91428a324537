// Package config provides configuration loading and validation for the
// document processing pipeline. It supports YAML configuration files with
// environment variable substitution.
package config

import "time"

// Config is the top-level configuration structure mirroring docpipeline.yaml.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Database  DatabaseConfig  `yaml:"database"`
	Blob      BlobConfig      `yaml:"blob"`
	Streaming StreamingConfig `yaml:"streaming"`
	Threat    ThreatConfig    `yaml:"threat"`
	PII       PIIConfig       `yaml:"pii"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Receipts  ReceiptsConfig  `yaml:"receipts"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServiceConfig holds service identification metadata.
type ServiceConfig struct {
	ID          string `yaml:"id"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int           `yaml:"max_conns"`
	MinConns        int           `yaml:"min_conns"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
}

// BlobConfig holds file storage settings.
type BlobConfig struct {
	BaseDir       string `yaml:"base_dir"`
	QuarantineDir string `yaml:"quarantine_dir"`
}

// StreamingConfig holds Kafka streaming settings.
type StreamingConfig struct {
	Enabled bool        `yaml:"enabled"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// KafkaConfig holds Kafka connection and producer settings.
type KafkaConfig struct {
	Brokers  []string            `yaml:"brokers"`
	Topics   KafkaTopicsConfig   `yaml:"topics"`
	Producer KafkaProducerConfig `yaml:"producer"`
}

// KafkaTopicsConfig maps event streams to Kafka topic strings.
type KafkaTopicsConfig struct {
	Events   string `yaml:"events"`
	Security string `yaml:"security"`
	Failures string `yaml:"failures"`
}

// KafkaProducerConfig holds Kafka producer settings.
type KafkaProducerConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	Compression   string        `yaml:"compression"`
	RequiredAcks  string        `yaml:"required_acks"`
}

// ThreatConfig holds threat scanner settings. SignatureFile, when set,
// names a YAML signature file merged over the built-in set; HeadSize is
// how many leading bytes the content heuristics inspect; MaxFileSize
// rejects oversized uploads before they reach the scanner.
type ThreatConfig struct {
	SignatureFile string `yaml:"signature_file"`
	HeadSize      int    `yaml:"head_size"`
	MaxFileSize   int    `yaml:"max_file_size"`
}

// PIIConfig holds PII scanner settings.
type PIIConfig struct {
	MinConfidence        float64  `yaml:"min_confidence"`
	ContextWindow        int      `yaml:"context_window"`
	ExcludedSSNs         []string `yaml:"excluded_ssns"`
	ExcludedAreaCodes    []string `yaml:"excluded_area_codes"`
	ExcludedEmailDomains []string `yaml:"excluded_email_domains"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	MinTextLength int           `yaml:"min_text_length"`
	StageTimeout  time.Duration `yaml:"stage_timeout"`
	Workers       int           `yaml:"workers"`
}

// ReceiptsConfig holds processing receipt signing settings.
type ReceiptsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	SigningKey string `yaml:"signing_key"`
}

// ServerConfig holds metrics endpoint settings.
type ServerConfig struct {
	Metrics MetricsServerConfig `yaml:"metrics"`
}

// MetricsServerConfig holds Prometheus metrics endpoint settings.
type MetricsServerConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}
