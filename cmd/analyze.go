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
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/GoogleCloudPlatform/sql-guardrail/internal/config"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/database"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/genai"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/guardrail"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/metric"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/refstore"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/utils"
	"github.com/spf13/cobra"
)

var (
	analyzeQuery     string
	analyzeQueryFile string
	analyzeTopK      int
	analyzeMetrics   string
	analyzeOutFile   string
)

var analyzeCmd = &cobra.Command{
	Use:     "analyze [query]",
	Short:   "Analyze the WHERE-clause literals of a SQL query",
	Long:    `Extracts the WHERE-clause conditions of a SQL query and, for every literal value with reference data, prints the top-k closest valid values per distance metric as JSON.`,
	Example: `./sql_guardrail analyze --references ./references.yaml --top-k 3 "SELECT * FROM orders WHERE country = 'Unted States'"`,
	Args:    cobra.MaximumNArgs(1),
	RunE:    runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	query, err := resolveQuery(args)
	if err != nil {
		return err
	}

	store, cleanup, err := buildStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	metrics, metricsCleanup, err := buildMetrics(ctx, utils.ParseMetricsFlag(analyzeMetrics))
	if err != nil {
		return err
	}
	defer metricsCleanup()

	rail, err := guardrail.New(ctx, metrics, store)
	if err != nil {
		return err
	}

	result := rail.Analyze(ctx, query, analyzeTopK)
	output, err := result.ToJSON()
	if err != nil {
		return err
	}

	if analyzeOutFile != "" {
		if err := utils.WriteStringToFile(output, analyzeOutFile); err != nil {
			return err
		}
		fmt.Printf("Analysis written to: %s\n", analyzeOutFile)
	} else {
		fmt.Println(output)
	}

	if len(result.Warnings) > 0 {
		log.Printf("WARN: Analysis completed with %d warning(s).", len(result.Warnings))
	}
	return nil
}

func resolveQuery(args []string) (string, error) {
	switch {
	case len(args) == 1 && args[0] != "":
		return args[0], nil
	case analyzeQuery != "":
		return analyzeQuery, nil
	case analyzeQueryFile != "":
		return utils.ReadQueryFromFile(analyzeQueryFile)
	default:
		return "", fmt.Errorf("no query supplied: pass it as an argument, via --query, or via --query-file")
	}
}

// buildStore resolves the references configuration into a Store, opening
// a database connection only when a table-backed source needs one.
func buildStore(ctx context.Context) (*refstore.Store, func(), error) {
	if referencesConfigPath == "" {
		return nil, nil, fmt.Errorf("--references is required")
	}

	sources, err := config.LoadReferenceSources(referencesConfigPath)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	needsDB := false
	for _, source := range sources {
		if source.Table != "" {
			needsDB = true
			break
		}
	}

	var db *database.DB
	if needsDB {
		pool, err := setupDatabase()
		if err != nil {
			return nil, nil, err
		}
		if pool == nil {
			return nil, nil, fmt.Errorf("references config uses table-backed sources but no --dialect was given")
		}
		db = pool
		cleanup = func() { pool.Close() }
	}

	store, err := refstore.Load(ctx, nil, sources, db)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}

// buildMetrics constructs the requested metrics in flag order. The
// semantic metric needs a Gemini API key; requesting it without one is a
// configuration error.
func buildMetrics(ctx context.Context, names []string) ([]metric.Metric, func(), error) {
	if len(names) == 0 {
		names = []string{"levenshtein", "jaro_winkler", "token_set_ratio"}
	}

	cleanup := func() {}

	var metrics []metric.Metric
	for _, name := range names {
		switch name {
		case "levenshtein":
			metrics = append(metrics, metric.NewLevenshtein())
		case "jaro_winkler":
			metrics = append(metrics, metric.NewJaroWinkler())
		case "token_set_ratio":
			metrics = append(metrics, metric.NewTokenSetRatio())
		case "semantic":
			if geminiAPIKey == "" {
				return nil, cleanup, fmt.Errorf("the semantic metric requires a Gemini API key (--gemini-api-key or GEMINI_API_KEY)")
			}
			client, err := genai.NewClient(ctx, genai.Config{APIKey: geminiAPIKey, Model: embeddingModel})
			if err != nil {
				return nil, cleanup, err
			}
			cleanup = func() { client.Close() }
			semantic, err := metric.NewSemantic(metric.SemanticConfig{Embedder: client.EmbedTexts})
			if err != nil {
				cleanup()
				return nil, func() {}, err
			}
			metrics = append(metrics, semantic)
		default:
			return nil, cleanup, fmt.Errorf("unknown metric %q (supported: %s)", name, strings.Join([]string{"levenshtein", "jaro_winkler", "token_set_ratio", "semantic"}, ", "))
		}
	}
	return metrics, cleanup, nil
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeQuery, "query", "q", "", "SQL query to analyze")
	analyzeCmd.Flags().StringVar(&analyzeQueryFile, "query-file", "", "File containing the SQL query to analyze")
	analyzeCmd.Flags().IntVarP(&analyzeTopK, "top-k", "k", guardrail.DefaultTopK, "Number of suggestions per metric and value")
	analyzeCmd.Flags().StringVar(&analyzeMetrics, "metrics", "levenshtein,jaro_winkler,token_set_ratio", "Comma-separated metrics to run (levenshtein, jaro_winkler, token_set_ratio, semantic)")
	analyzeCmd.Flags().StringVarP(&analyzeOutFile, "out_file", "o", "", "File path to save the JSON result to (optional, defaults to stdout)")
}
