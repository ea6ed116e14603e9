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

import "sort"

// Store maps column names to their ordered reference values. It is
// immutable after construction: analysis code only ever reads it, so it
// can be shared across concurrent searches without locking. Duplicate
// values are tolerated and may surface as duplicate suggestions.
type Store struct {
	columns []string
	values  map[string][]string
}

// New builds a Store from a column -> values mapping. Column iteration
// order is sorted for determinism; value order within a column is kept
// as supplied.
func New(refs map[string][]string) *Store {
	columns := make([]string, 0, len(refs))
	values := make(map[string][]string, len(refs))
	for column, vals := range refs {
		columns = append(columns, column)
		copied := make([]string, len(vals))
		copy(copied, vals)
		values[column] = copied
	}
	sort.Strings(columns)
	return &Store{columns: columns, values: values}
}

// Columns returns the column names in deterministic order.
func (s *Store) Columns() []string {
	out := make([]string, len(s.columns))
	copy(out, s.columns)
	return out
}

// Values returns the reference values for a column and whether the column
// is known. The returned slice must not be modified.
func (s *Store) Values(column string) ([]string, bool) {
	vals, ok := s.values[column]
	return vals, ok
}

// Len returns the number of reference columns.
func (s *Store) Len() int {
	return len(s.columns)
}
