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
	"fmt"
	"strings"
)

// Condition is one atomic column/operator/value(s) comparison extracted
// from a WHERE clause. Values holds one entry for =/LIKE and one per list
// element for IN. Immutable after extraction.
type Condition struct {
	Column   string
	Operator string
	RawText  string
	Values   []string
}

// Extract parses a SQL statement and returns the conditions found in its
// WHERE clause(s), plus warnings for anything it had to skip. It never
// fails: malformed or unsupported input degrades to an empty condition
// list with an explanatory warning.
func Extract(sqlText string) ([]Condition, []string) {
	var warnings []string

	tokens, err := lex(sqlText)
	if err != nil {
		warnings = append(warnings, fmt.Sprintf("could not tokenize query: %v", err))
		return nil, warnings
	}

	var conditions []Condition
	foundWhere := false
	for i := 0; i < len(tokens); i++ {
		if tokens[i].kind == tokKeyword && tokens[i].upper == "WHERE" {
			foundWhere = true
			// Scanning continues inside the clause so WHERE keywords in
			// subqueries get their own pass; their clause ends at the
			// subquery's closing parenthesis.
			clause, _ := clauseTokens(tokens, i+1)
			conds, warns := parseClause(sqlText, clause)
			conditions = append(conditions, conds...)
			warnings = append(warnings, warns...)
		}
	}

	if !foundWhere {
		warnings = append(warnings, "no WHERE clause found in query; nothing to analyze")
	} else if len(conditions) == 0 && len(warnings) == 0 {
		warnings = append(warnings, "WHERE clause contained no analyzable conditions")
	}
	return conditions, warnings
}

// clauseTokens collects the tokens belonging to one WHERE clause, stopping
// at a clause-terminating keyword, a statement separator, or an
// unbalanced closing parenthesis (end of a subquery).
func clauseTokens(tokens []token, start int) (clause []token, next int) {
	depth := 0
	i := start
	for ; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.kind == tokLParen:
			depth++
		case t.kind == tokRParen:
			if depth == 0 {
				return tokens[start:i], i
			}
			depth--
		case t.kind == tokSemicolon && depth == 0:
			return tokens[start:i], i
		case t.kind == tokKeyword && depth == 0 && isClauseTerminator(t.upper):
			return tokens[start:i], i
		}
	}
	return tokens[start:i], i
}

func isClauseTerminator(upper string) bool {
	switch upper {
	case "GROUP", "ORDER", "LIMIT", "HAVING", "UNION", "OFFSET", "RETURNING":
		return true
	}
	return false
}

// parseClause walks an AND-joined list of comparisons. OR-combined trees
// are not analyzed: suggestions against one branch of a disjunction would
// be misleading, so the whole clause is skipped with a warning.
func parseClause(src string, tokens []token) ([]Condition, []string) {
	var warnings []string

	depth := 0
	for _, t := range tokens {
		switch t.kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokKeyword:
			if depth == 0 && t.upper == "OR" {
				warnings = append(warnings, "OR-combined conditions are not analyzed; skipping WHERE clause")
				return nil, warnings
			}
		}
	}

	var conditions []Condition
	i := 0
	for i < len(tokens) {
		t := tokens[i]

		// Parenthesized group: recurse into it as its own clause.
		if t.kind == tokLParen {
			end := matchParen(tokens, i)
			conds, warns := parseClause(src, tokens[i+1:end])
			conditions = append(conditions, conds...)
			warnings = append(warnings, warns...)
			i = end + 1
			continue
		}

		if t.kind == tokKeyword && t.upper == "AND" {
			i++
			continue
		}

		if t.kind != tokIdent {
			warnings = append(warnings, fmt.Sprintf("unsupported expression near %q; skipping", t.text))
			i = skipToAnd(tokens, i)
			continue
		}

		cond, next, warn := parseComparison(src, tokens, i)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if cond != nil {
			conditions = append(conditions, *cond)
		}
		i = next
	}
	return conditions, warnings
}

// parseComparison parses a single comparison starting at the column
// identifier. It returns a nil Condition with a warning for shapes the
// analyzer does not support.
func parseComparison(src string, tokens []token, i int) (*Condition, int, string) {
	column := tokens[i].text
	i++
	if i >= len(tokens) {
		return nil, i, fmt.Sprintf("dangling identifier %q at end of WHERE clause; skipping", column)
	}

	op := tokens[i]
	switch {
	case op.kind == tokOperator:
		return parseScalarComparison(src, tokens, i, column, op.text)
	case op.kind == tokKeyword && op.upper == "LIKE":
		return parseScalarComparison(src, tokens, i, column, "LIKE")
	case op.kind == tokKeyword && op.upper == "IN":
		return parseInList(src, tokens, i, column)
	case op.kind == tokKeyword && op.upper == "NOT":
		return nil, skipToAnd(tokens, i), fmt.Sprintf("negated condition on column %q is not analyzed; skipping", column)
	case op.kind == tokKeyword && op.upper == "BETWEEN":
		return nil, skipBetween(tokens, i), fmt.Sprintf("BETWEEN condition on column %q is not analyzed; skipping", column)
	case op.kind == tokKeyword && op.upper == "IS":
		return nil, skipToAnd(tokens, i), fmt.Sprintf("IS NULL/IS NOT NULL condition on column %q is not analyzed; skipping", column)
	default:
		return nil, skipToAnd(tokens, i), fmt.Sprintf("unsupported operator %q after column %q; skipping", op.text, column)
	}
}

func parseScalarComparison(src string, tokens []token, i int, column, operator string) (*Condition, int, string) {
	i++ // past the operator
	if i >= len(tokens) {
		return nil, i, fmt.Sprintf("missing right-hand side for %s %s; skipping", column, operator)
	}

	val := tokens[i]
	switch val.kind {
	case tokString:
		cond := &Condition{
			Column:   column,
			Operator: strings.ToUpper(operator),
			RawText:  src[val.start:val.end],
			Values:   []string{val.text},
		}
		return cond, i + 1, ""
	case tokNumber:
		// Numeric literals are not filtered here; the orchestrator decides
		// based on whether reference data exists for the column.
		cond := &Condition{
			Column:   column,
			Operator: strings.ToUpper(operator),
			RawText:  src[val.start:val.end],
			Values:   []string{val.text},
		}
		return cond, i + 1, ""
	case tokIdent:
		return nil, skipToAnd(tokens, i), fmt.Sprintf("column-to-column comparison %s %s %s is not analyzed; skipping", column, operator, val.text)
	case tokLParen:
		end := matchParen(tokens, i)
		return nil, end + 1, fmt.Sprintf("subquery comparison on column %q is not analyzed; skipping", column)
	default:
		return nil, skipToAnd(tokens, i), fmt.Sprintf("unsupported right-hand side %q for column %q; skipping", val.text, column)
	}
}

func parseInList(src string, tokens []token, i int, column string) (*Condition, int, string) {
	i++ // past IN
	if i >= len(tokens) || tokens[i].kind != tokLParen {
		return nil, skipToAnd(tokens, i), fmt.Sprintf("IN condition on column %q without a value list; skipping", column)
	}

	open := i
	end := matchParen(tokens, open)

	var values []string
	for j := open + 1; j < end; j++ {
		t := tokens[j]
		switch t.kind {
		case tokString, tokNumber:
			values = append(values, t.text)
		case tokComma:
			continue
		case tokKeyword:
			if t.upper == "SELECT" {
				return nil, end + 1, fmt.Sprintf("subquery in IN clause for column %q is not analyzed; skipping", column)
			}
			return nil, end + 1, fmt.Sprintf("unsupported value %q in IN list for column %q; skipping", t.text, column)
		default:
			return nil, end + 1, fmt.Sprintf("unsupported value %q in IN list for column %q; skipping", t.text, column)
		}
	}

	if len(values) == 0 {
		return nil, end + 1, fmt.Sprintf("empty IN list for column %q; skipping", column)
	}

	rawEnd := end
	if rawEnd >= len(tokens) {
		rawEnd = len(tokens) - 1
	}
	cond := &Condition{
		Column:   column,
		Operator: "IN",
		RawText:  src[tokens[open].start:tokens[rawEnd].end],
		Values:   values,
	}
	return cond, end + 1, ""
}

// matchParen returns the index of the parenthesis closing the one at open,
// or the last index if the input is unbalanced.
func matchParen(tokens []token, open int) int {
	depth := 0
	for i := open; i < len(tokens); i++ {
		switch tokens[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(tokens)
}

// skipToAnd advances past the current condition up to the next top-level
// AND connector.
func skipToAnd(tokens []token, i int) int {
	depth := 0
	for ; i < len(tokens); i++ {
		switch tokens[i].kind {
		case tokLParen:
			depth++
		case tokRParen:
			depth--
		case tokKeyword:
			if depth == 0 && tokens[i].upper == "AND" {
				return i
			}
		}
	}
	return i
}

// skipBetween returns the index just past "BETWEEN x AND y", so the AND
// inside the range is not mistaken for a connector.
func skipBetween(tokens []token, i int) int {
	seenAnd := false
	for j := i + 1; j < len(tokens); j++ {
		if tokens[j].kind == tokKeyword && tokens[j].upper == "AND" {
			if seenAnd {
				return j
			}
			seenAnd = true
			continue
		}
		if seenAnd {
			// The operand after the range AND closes the BETWEEN.
			return j + 1
		}
	}
	return len(tokens)
}
