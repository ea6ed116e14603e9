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
package extractor

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractSimpleEquality(t *testing.T) {
	conditions, warnings := Extract(`SELECT * FROM orders WHERE country = 'Unted States'`)

	want := []Condition{{
		Column:   "country",
		Operator: "=",
		RawText:  `'Unted States'`,
		Values:   []string{"Unted States"},
	}}
	if !reflect.DeepEqual(conditions, want) {
		t.Errorf("Extract() conditions = %+v, want %+v", conditions, want)
	}
	if len(warnings) != 0 {
		t.Errorf("Extract() warnings = %v, want none", warnings)
	}
}

func TestExtractOperators(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		operator string
		value    string
	}{
		{"Equals", `SELECT * FROM t WHERE status = 'shipped'`, "=", "shipped"},
		{"NotEquals", `SELECT * FROM t WHERE status != 'shipped'`, "!=", "shipped"},
		{"AngleNotEquals", `SELECT * FROM t WHERE status <> 'shipped'`, "<>", "shipped"},
		{"LessThan", `SELECT * FROM t WHERE status < 'shipped'`, "<", "shipped"},
		{"GreaterOrEqual", `SELECT * FROM t WHERE status >= 'shipped'`, ">=", "shipped"},
		{"Like", `SELECT * FROM t WHERE status LIKE 'ship%'`, "LIKE", "ship%"},
		{"LowercaseLike", `SELECT * FROM t WHERE status like 'ship%'`, "LIKE", "ship%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions, warnings := Extract(tt.sql)
			if len(warnings) != 0 {
				t.Fatalf("Extract() warnings = %v, want none", warnings)
			}
			if len(conditions) != 1 {
				t.Fatalf("Extract() returned %d conditions, want 1", len(conditions))
			}
			got := conditions[0]
			if got.Operator != tt.operator {
				t.Errorf("Operator = %q, want %q", got.Operator, tt.operator)
			}
			if len(got.Values) != 1 || got.Values[0] != tt.value {
				t.Errorf("Values = %v, want [%q]", got.Values, tt.value)
			}
		})
	}
}

func TestExtractInList(t *testing.T) {
	conditions, warnings := Extract(`SELECT * FROM orders WHERE status IN ('shipped', 'pending', 'Cancld')`)

	if len(warnings) != 0 {
		t.Fatalf("Extract() warnings = %v, want none", warnings)
	}
	if len(conditions) != 1 {
		t.Fatalf("Extract() returned %d conditions, want 1", len(conditions))
	}
	got := conditions[0]
	if got.Operator != "IN" {
		t.Errorf("Operator = %q, want IN", got.Operator)
	}
	wantValues := []string{"shipped", "pending", "Cancld"}
	if !reflect.DeepEqual(got.Values, wantValues) {
		t.Errorf("Values = %v, want %v", got.Values, wantValues)
	}
	if got.RawText != `('shipped', 'pending', 'Cancld')` {
		t.Errorf("RawText = %q", got.RawText)
	}
}

func TestExtractMultipleAndConditions(t *testing.T) {
	conditions, warnings := Extract(
		`SELECT * FROM orders WHERE country = 'Brasil' AND status = 'shipped' AND qty > 10`)

	if len(warnings) != 0 {
		t.Fatalf("Extract() warnings = %v, want none", warnings)
	}
	if len(conditions) != 3 {
		t.Fatalf("Extract() returned %d conditions, want 3", len(conditions))
	}
	if conditions[0].Column != "country" || conditions[1].Column != "status" || conditions[2].Column != "qty" {
		t.Errorf("conditions out of order: %+v", conditions)
	}
	if conditions[2].Values[0] != "10" {
		t.Errorf("numeric literal = %q, want \"10\"", conditions[2].Values[0])
	}
}

func TestExtractParenthesizedGroup(t *testing.T) {
	conditions, warnings := Extract(
		`SELECT * FROM orders WHERE (country = 'Brasil' AND status = 'shipped')`)

	if len(warnings) != 0 {
		t.Fatalf("Extract() warnings = %v, want none", warnings)
	}
	if len(conditions) != 2 {
		t.Fatalf("Extract() returned %d conditions, want 2", len(conditions))
	}
}

func TestExtractSkipsOrClause(t *testing.T) {
	conditions, warnings := Extract(
		`SELECT * FROM orders WHERE country = 'Brasil' OR status = 'shipped'`)

	if len(conditions) != 0 {
		t.Errorf("Extract() conditions = %+v, want none for OR clause", conditions)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "OR-combined") {
		t.Errorf("warnings = %v, want one OR warning", warnings)
	}
}

func TestExtractNoWhereClause(t *testing.T) {
	conditions, warnings := Extract(`SELECT * FROM orders`)

	if len(conditions) != 0 {
		t.Errorf("Extract() conditions = %+v, want none", conditions)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "no WHERE clause") {
		t.Errorf("warnings = %v, want a no-WHERE warning", warnings)
	}
}

func TestExtractSkippedShapes(t *testing.T) {
	tests := []struct {
		name        string
		sql         string
		wantWarning string
	}{
		{"Negated", `SELECT * FROM t WHERE status NOT LIKE 'x%'`, "negated"},
		{"Between", `SELECT * FROM t WHERE qty BETWEEN 1 AND 10`, "BETWEEN"},
		{"IsNull", `SELECT * FROM t WHERE status IS NULL`, "IS NULL"},
		{"ColumnToColumn", `SELECT * FROM t WHERE a = b`, "column-to-column"},
		{"EmptyInList", `SELECT * FROM t WHERE status IN ()`, "empty IN list"},
		{"SubqueryIn", `SELECT * FROM t WHERE id IN (SELECT id FROM u)`, "subquery"},
		{"UnterminatedString", `SELECT * FROM t WHERE a = 'oops`, "could not tokenize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conditions, warnings := Extract(tt.sql)
			if len(conditions) != 0 {
				t.Errorf("Extract() conditions = %+v, want none", conditions)
			}
			found := false
			for _, w := range warnings {
				if strings.Contains(w, tt.wantWarning) {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("warnings = %v, want one containing %q", warnings, tt.wantWarning)
			}
		})
	}
}

func TestExtractBetweenDoesNotEatConnector(t *testing.T) {
	conditions, warnings := Extract(
		`SELECT * FROM t WHERE qty BETWEEN 1 AND 10 AND status = 'shipped'`)

	if len(conditions) != 1 || conditions[0].Column != "status" {
		t.Errorf("Extract() conditions = %+v, want only the status condition", conditions)
	}
	if len(warnings) != 1 {
		t.Errorf("warnings = %v, want exactly the BETWEEN warning", warnings)
	}
}

func TestExtractSubqueryWhere(t *testing.T) {
	conditions, warnings := Extract(
		`SELECT * FROM orders WHERE id IN (SELECT id FROM users WHERE name = 'Jhon') AND status = 'shipped'`)

	var columns []string
	for _, c := range conditions {
		columns = append(columns, c.Column)
	}
	want := []string{"status", "name"}
	if !reflect.DeepEqual(columns, want) {
		t.Errorf("extracted columns = %v, want %v", columns, want)
	}
	foundSubqueryWarning := false
	for _, w := range warnings {
		if strings.Contains(w, "subquery") {
			foundSubqueryWarning = true
		}
	}
	if !foundSubqueryWarning {
		t.Errorf("warnings = %v, want a subquery warning for the outer IN", warnings)
	}
}

func TestExtractMixedValueQuoting(t *testing.T) {
	conditions, warnings := Extract(
		`SELECT * FROM t WHERE a = "double" AND b = 'it''s'`)

	if len(warnings) != 0 {
		t.Fatalf("Extract() warnings = %v, want none", warnings)
	}
	if len(conditions) != 2 {
		t.Fatalf("Extract() returned %d conditions, want 2", len(conditions))
	}
	if conditions[0].Values[0] != "double" {
		t.Errorf("double-quoted value = %q", conditions[0].Values[0])
	}
	if conditions[1].Values[0] != "it's" {
		t.Errorf("escaped quote value = %q", conditions[1].Values[0])
	}
}

func TestExtractStopsAtClauseTerminators(t *testing.T) {
	conditions, warnings := Extract(
		`SELECT * FROM t WHERE a = 'x' ORDER BY a LIMIT 5`)

	if len(warnings) != 0 {
		t.Fatalf("Extract() warnings = %v, want none", warnings)
	}
	if len(conditions) != 1 || conditions[0].Column != "a" {
		t.Errorf("Extract() conditions = %+v, want just a = 'x'", conditions)
	}
}
