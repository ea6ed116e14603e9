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
	"log"

	"github.com/GoogleCloudPlatform/sql-guardrail/internal/genai"
	"github.com/spf13/cobra"
)

var validateCheckAPIKey bool

var validateReferencesCmd = &cobra.Command{
	Use:   "validate-references",
	Short: "Validate the references configuration and its data sources",
	Long: `Loads the references configuration, resolves every configured source
(files are read, tables are queried) and reports how many distinct values
each column provides. With --check-api-key it also verifies that the
configured Gemini API key is accepted.`,
	Example: `./sql_guardrail validate-references --references ./references.yaml`,
	RunE:    runValidateReferences,
}

func runValidateReferences(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, cleanup, err := buildStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	columns := store.Columns()
	if len(columns) == 0 {
		return fmt.Errorf("references config resolved to zero columns")
	}
	for _, column := range columns {
		values, _ := store.Values(column)
		fmt.Printf("%s: %d distinct value(s)\n", column, len(values))
		if len(values) == 0 {
			log.Printf("WARN: Column %s has no reference values; its conditions will not be analyzed.", column)
		}
	}
	fmt.Printf("OK: %d reference column(s) loaded.\n", len(columns))

	if validateCheckAPIKey {
		if geminiAPIKey == "" {
			return fmt.Errorf("--check-api-key given but no Gemini API key is configured (--gemini-api-key or GEMINI_API_KEY)")
		}
		client, err := genai.NewClient(ctx, genai.Config{APIKey: geminiAPIKey, Model: embeddingModel})
		if err != nil {
			return err
		}
		defer client.Close()
		if err := client.IsAPIKeyValid(ctx); err != nil {
			return fmt.Errorf("gemini API key validation failed: %w", err)
		}
		fmt.Println("OK: Gemini API key is valid.")
	}
	return nil
}

func init() {
	validateReferencesCmd.Flags().BoolVar(&validateCheckAPIKey, "check-api-key", false, "Also verify the configured Gemini API key against the API")
}
