/*
 * Copyright 2025 Google LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *    https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Database       DatabaseConfig
	GeminiAPIKey   string
	EmbeddingModel string
	DefaultTopK    int
}

// DatabaseConfig holds database connection configuration for
// database-backed reference sources.
type DatabaseConfig struct {
	Dialect                        string
	Host                           string
	Port                           int
	User                           string
	Password                       string
	DBName                         string
	SSLMode                        string
	CloudSQLInstanceConnectionName string
	UsePrivateIP                   bool
}

// ReferenceSource describes where the valid values for one column come
// from. Exactly one of Path or Table must be set: Path points at a CSV or
// JSON file, Table/Column at a live database table.
type ReferenceSource struct {
	Path        string `mapstructure:"path"`
	ValueColumn string `mapstructure:"value_column"`
	ValueIndex  *int   `mapstructure:"value_index"`
	Table       string `mapstructure:"table"`
	Column      string `mapstructure:"column"`
}

// Validate checks that the source descriptor is well formed. A malformed
// descriptor is a fatal configuration error, not a data-quality warning.
func (s ReferenceSource) Validate(column string) error {
	if s.Path == "" && s.Table == "" {
		return fmt.Errorf("reference source for column %q: either path or table must be set", column)
	}
	if s.Path != "" && s.Table != "" {
		return fmt.Errorf("reference source for column %q: path and table are mutually exclusive", column)
	}
	if s.Table != "" && s.Column == "" {
		return fmt.Errorf("reference source for column %q: table source requires a column name", column)
	}
	if s.ValueIndex != nil && *s.ValueIndex < 0 {
		return fmt.Errorf("reference source for column %q: value_index must be >= 0", column)
	}
	return nil
}

type referencesFile struct {
	References map[string]ReferenceSource `mapstructure:"references"`
}

// LoadReferenceSources reads a references configuration file (YAML or
// JSON) mapping column names to source descriptors.
func LoadReferenceSources(path string) (map[string]ReferenceSource, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read references config %q: %w", path, err)
	}

	var file referencesFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("failed to parse references config %q: %w", path, err)
	}
	if len(file.References) == 0 {
		return nil, fmt.Errorf("references config %q declares no reference sources", path)
	}

	for column, source := range file.References {
		if err := source.Validate(column); err != nil {
			return nil, err
		}
	}
	return file.References, nil
}

var globalConfig *Config

// GetConfig returns a default configuration. Configuration will be set by flags in root.go
func GetConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Dialect: "postgres",
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		GeminiAPIKey:   "",
		EmbeddingModel: "text-embedding-004",
		DefaultTopK:    5,
	}
}

// SetConfig sets the global configuration.
func SetConfig(cfg *Config) {
	globalConfig = cfg
}
