package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Oracle   EngineConfig  `yaml:"oracle"`
	Postgres EngineConfig  `yaml:"postgres"`
	Recon    ReconConfig   `yaml:"recon"`
	Kafka    KafkaConfig   `yaml:"kafka"`
	Tables   []TableConfig `yaml:"tables"`
}

type EngineConfig struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

type ReconConfig struct {
	DefaultChunks       int    `yaml:"defaultChunks"`
	SizeThreshold       int64  `yaml:"sizeThreshold"`
	Workers             int    `yaml:"workers"`
	QueryTimeoutSeconds int    `yaml:"queryTimeoutSeconds"`
	OutputDir           string `yaml:"outputDir"`
	FKSchema            string `yaml:"fkSchema"`
}

// QueryTimeout is the per-query deadline for count, checksum and catalog
// statements.
func (r ReconConfig) QueryTimeout() time.Duration {
	return time.Duration(r.QueryTimeoutSeconds) * time.Second
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// TableConfig is one explicitly listed reconciliation unit. When Tables is
// empty the table list is discovered from the Oracle catalog instead.
type TableConfig struct {
	SourceTable string `yaml:"sourceTable"`
	TargetTable string `yaml:"targetTable"`
	PrimaryKey  string `yaml:"primaryKey"`
	TargetPK    string `yaml:"targetPrimaryKey"`
	Chunks      int    `yaml:"chunks"`
}

const (
	defaultChunks         = 100
	defaultThreshold      = 5_000_000
	defaultTimeoutSeconds = 300
	defaultOutputDir      = "./recon_out"
)

func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Recon.DefaultChunks == 0 {
		c.Recon.DefaultChunks = defaultChunks
	}
	if c.Recon.SizeThreshold == 0 {
		c.Recon.SizeThreshold = defaultThreshold
	}
	if c.Recon.Workers == 0 {
		c.Recon.Workers = 1
	}
	if c.Recon.QueryTimeoutSeconds == 0 {
		c.Recon.QueryTimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Recon.OutputDir == "" {
		c.Recon.OutputDir = defaultOutputDir
	}
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.TargetTable == "" {
			t.TargetTable = strings.ToLower(t.SourceTable)
		}
		if t.TargetPK == "" {
			t.TargetPK = strings.ToLower(t.PrimaryKey)
		}
		if t.Chunks == 0 {
			t.Chunks = c.Recon.DefaultChunks
		}
	}
}

func (c *Config) validate() error {
	if c.Oracle.DSN == "" {
		return errors.New("oracle.dsn is required")
	}
	if c.Oracle.Schema == "" {
		return errors.New("oracle.schema is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Postgres.Schema == "" {
		return errors.New("postgres.schema is required")
	}
	if c.Recon.DefaultChunks < 1 {
		return errors.New("recon.defaultChunks must be >= 1")
	}
	if c.Recon.SizeThreshold < 0 {
		return errors.New("recon.sizeThreshold must not be negative")
	}
	if c.Kafka.Topic != "" && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is required when kafka.topic is set")
	}
	for _, t := range c.Tables {
		if t.SourceTable == "" {
			return errors.New("table.sourceTable is required")
		}
		if t.PrimaryKey == "" {
			return fmt.Errorf("table %s must define primaryKey", t.SourceTable)
		}
		if t.Chunks < 1 {
			return fmt.Errorf("table %s: chunks must be >= 1", t.SourceTable)
		}
	}
	return nil
}
