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
package refstore

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoogleCloudPlatform/sql-guardrail/internal/config"
	"github.com/GoogleCloudPlatform/sql-guardrail/internal/database"
)

// distinctValueLimit caps how many values a database-backed source pulls
// per column.
const distinctValueLimit = 10000

// Load resolves reference data into a Store. A non-empty preloaded
// mapping wins outright and the source configuration is ignored entirely,
// not merged. Database-backed sources require db to be non-nil. Any
// resolution failure is fatal: proceeding with partial reference data
// would produce misleading suggestions.
func Load(ctx context.Context, preloaded map[string][]string, sources map[string]config.ReferenceSource, db *database.DB) (*Store, error) {
	if len(preloaded) > 0 {
		if len(sources) > 0 {
			log.Printf("INFO: Preloaded references supplied; ignoring %d configured reference source(s).", len(sources))
		}
		return New(preloaded), nil
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no reference data supplied: need either preloaded references or a source configuration")
	}

	refs := make(map[string][]string, len(sources))
	for column, source := range sources {
		if err := source.Validate(column); err != nil {
			return nil, err
		}
		values, err := resolveSource(ctx, column, source, db)
		if err != nil {
			return nil, fmt.Errorf("failed to load references for column %q: %w", column, err)
		}
		log.Printf("INFO: Loaded %d reference value(s) for column %q.", len(values), column)
		refs[column] = values
	}
	return New(refs), nil
}

func resolveSource(ctx context.Context, column string, source config.ReferenceSource, db *database.DB) ([]string, error) {
	if source.Table != "" {
		if db == nil {
			return nil, fmt.Errorf("source references table %q but no database connection is configured", source.Table)
		}
		return db.ListDistinctValues(ctx, source.Table, source.Column, distinctValueLimit)
	}

	switch strings.ToLower(filepath.Ext(source.Path)) {
	case ".csv":
		return loadCSV(source)
	case ".json":
		return loadJSON(source.Path)
	default:
		return nil, fmt.Errorf("unsupported reference file type %q (want .csv or .json)", source.Path)
	}
}

// loadCSV reads one column out of a headed CSV file, selected by index
// (value_index) or header name (value_column); with neither set the first
// column is used.
func loadCSV(source config.ReferenceSource) ([]string, error) {
	f, err := os.Open(source.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV %q: %w", source.Path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV %q is empty", source.Path)
	}

	header := records[0]
	index := 0
	switch {
	case source.ValueIndex != nil:
		index = *source.ValueIndex
		if index >= len(header) {
			return nil, fmt.Errorf("value_index %d out of range for CSV %q with %d column(s)", index, source.Path, len(header))
		}
	case source.ValueColumn != "":
		index = -1
		for i, name := range header {
			if strings.EqualFold(strings.TrimSpace(name), source.ValueColumn) {
				index = i
				break
			}
		}
		if index == -1 {
			return nil, fmt.Errorf("value_column %q not found in CSV %q header", source.ValueColumn, source.Path)
		}
	}

	var values []string
	for _, record := range records[1:] {
		if index >= len(record) {
			continue
		}
		value := strings.TrimSpace(record[index])
		if value != "" {
			values = append(values, value)
		}
	}
	return values, nil
}

// loadJSON reads a bare JSON array of strings.
func loadJSON(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var values []string
	if err := json.Unmarshal(content, &values); err != nil {
		return nil, fmt.Errorf("reference file %q must be a JSON array of strings: %w", path, err)
	}
	return values, nil
}
