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
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/GoogleCloudPlatform/sql-guardrail/internal/config"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/database"
	_ "github.com/GoogleCloudPlatform/sql-guardrail/internal/database/mysql"
	_ "github.com/GoogleCloudPlatform/sql-guardrail/internal/database/postgres"
	_ "github.com/GoogleCloudPlatform/sql-guardrail/internal/database/sqlserver"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	referencesConfigPath string
	geminiAPIKey         string
	embeddingModel       string
	verbose              bool

	// Database connection flags (for table-backed reference sources)
	dialect                        string
	host                           string
	port                           int
	username                       string
	password                       string
	dbName                         string
	cloudSQLInstanceConnectionName string
	cloudSQLUsePrivateIP           bool
)

var rootCmd = &cobra.Command{
	Use:   "sql_guardrail",
	Short: "A tool to check SQL query literals against reference data",
	Long: `sql_guardrail analyzes the literal values in a SQL query's WHERE clause
and suggests the closest valid values from reference data, ranked per
distance metric. It never executes or rewrites the query.`,
	PersistentPreRunE: initFlagsAndConfig,
}

// initFlagsAndConfig initializes logging and configuration using command flags.
func initFlagsAndConfig(cmd *cobra.Command, args []string) error {
	initLogging()

	cfg := config.GetConfig()

	if cmd != nil {
		cfg.Database.Dialect = dialect
		cfg.Database.Host = host
		cfg.Database.Port = port
		cfg.Database.User = username
		cfg.Database.Password = password
		cfg.Database.DBName = dbName
		cfg.Database.CloudSQLInstanceConnectionName = cloudSQLInstanceConnectionName
		cfg.Database.UsePrivateIP = cloudSQLUsePrivateIP
	}
	database.SetConfig(&cfg.Database)

	if geminiAPIKey == "" {
		geminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	cfg.GeminiAPIKey = geminiAPIKey
	cfg.EmbeddingModel = embeddingModel
	config.SetConfig(cfg)

	return nil
}

// initLogging installs a zap logger and routes the standard library
// logger used throughout the internal packages through it.
func initLogging() {
	var logger *zap.Logger
	if verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		zapCfg := zap.NewProductionConfig()
		zapCfg.DisableStacktrace = true
		logger, _ = zapCfg.Build()
	}
	zap.ReplaceGlobals(logger)
	zap.RedirectStdLog(logger)
}

func validateDialect(dialect string) error {
	supportedDialects := []string{"postgres", "cloudsqlpostgres", "mysql", "cloudsqlmysql", "sqlserver", "cloudsqlsqlserver"}
	for _, supportedDialect := range supportedDialects {
		if dialect == supportedDialect {
			return nil
		}
	}
	return fmt.Errorf("unsupported dialect: %s (only %s are supported)", dialect, strings.Join(supportedDialects, ", "))
}

// setupDatabase opens a connection pool for table-backed reference
// sources. Returns nil when no dialect is configured: purely file-backed
// configurations need no database.
func setupDatabase() (*database.DB, error) {
	if dialect == "" {
		return nil, nil
	}
	if err := validateDialect(dialect); err != nil {
		return nil, err
	}
	dbConfig := database.GetConfig()
	if dbConfig == nil {
		return nil, fmt.Errorf("database config is not initialized")
	}
	db, err := database.New(*dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&referencesConfigPath, "references", "", "Path to the references configuration file (YAML or JSON) - MANDATORY")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Database connection flags (only needed for table-backed reference sources)
	rootCmd.PersistentFlags().StringVar(&dialect, "dialect", "", fmt.Sprintf("Database dialect (%s)", strings.Join([]string{"postgres", "mysql", "sqlserver", "cloudsqlpostgres", "cloudsqlmysql", "cloudsqlsqlserver"}, ", ")))
	rootCmd.PersistentFlags().StringVar(&host, "host", "", "Database host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 0, "Database port")
	rootCmd.PersistentFlags().StringVar(&username, "username", "", "Database username")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Database password")
	rootCmd.PersistentFlags().StringVar(&dbName, "database", "", "Database name")
	rootCmd.PersistentFlags().StringVar(&cloudSQLInstanceConnectionName, "cloudsql-instance-connection-name", "", "Cloud SQL instance connection name (for Cloud SQL dialects)")
	rootCmd.PersistentFlags().BoolVar(&cloudSQLUsePrivateIP, "cloudsql-use-private-ip", false, "Use private IP for Cloud SQL connection (Cloud SQL)")

	// Gemini flags (only needed for the semantic metric)
	rootCmd.PersistentFlags().StringVar(&geminiAPIKey, "gemini-api-key", "", "Gemini API key (can also be set via GEMINI_API_KEY environment variable)")
	rootCmd.PersistentFlags().StringVar(&embeddingModel, "embedding-model", "text-embedding-004", "Gemini embedding model for the semantic metric")

	// Add subcommands
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(validateReferencesCmd)
}
