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
	"unicode"
)

type tokenKind int

const (
	tokIdent tokenKind = iota
	tokKeyword
	tokString
	tokNumber
	tokOperator
	tokLParen
	tokRParen
	tokComma
	tokSemicolon
)

// token carries the decoded text plus the byte span in the source, so
// callers can quote the original query text back in results.
type token struct {
	kind  tokenKind
	text  string
	upper string
	start int
	end   int
}

var keywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true,
	"IN": true, "LIKE": true, "NOT": true, "BETWEEN": true, "IS": true,
	"NULL": true, "GROUP": true, "ORDER": true, "BY": true, "LIMIT": true,
	"HAVING": true, "UNION": true, "OFFSET": true, "RETURNING": true,
	"JOIN": true, "ON": true, "AS": true, "INNER": true, "LEFT": true,
	"RIGHT": true, "OUTER": true, "DISTINCT": true, "EXISTS": true,
}

// lex splits a SQL statement into tokens. String literals keep SQL
// semantics: single quotes delimit strings ('' escapes a quote); double
// quotes are treated as literals too, matching the loose quoting seen in
// generated queries. Backticks delimit identifiers.
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(src)

	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '\'' || c == '"':
			text, end, err := lexQuoted(src, i, c)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokString, text: text, start: i, end: end})
			i = end

		case c == '`':
			text, end, err := lexQuoted(src, i, '`')
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokIdent, text: text, start: i, end: end})
			i = end

		case c == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "(", start: i, end: i + 1})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")", start: i, end: i + 1})
			i++
		case c == ',':
			tokens = append(tokens, token{kind: tokComma, text: ",", start: i, end: i + 1})
			i++
		case c == ';':
			tokens = append(tokens, token{kind: tokSemicolon, text: ";", start: i, end: i + 1})
			i++

		case c == '=' || c == '<' || c == '>' || c == '!':
			end := i + 1
			if end < n && src[end] == '=' {
				end++
			} else if c == '<' && end < n && src[end] == '>' {
				end++
			}
			tokens = append(tokens, token{kind: tokOperator, text: src[i:end], start: i, end: end})
			i = end

		case c >= '0' && c <= '9':
			end := i + 1
			for end < n && (src[end] >= '0' && src[end] <= '9' || src[end] == '.') {
				end++
			}
			tokens = append(tokens, token{kind: tokNumber, text: src[i:end], start: i, end: end})
			i = end

		case isIdentStart(rune(c)):
			end := i + 1
			for end < n && isIdentPart(rune(src[end])) {
				end++
			}
			text := src[i:end]
			upper := strings.ToUpper(text)
			kind := tokIdent
			if keywords[upper] {
				kind = tokKeyword
			}
			tokens = append(tokens, token{kind: kind, text: text, upper: upper, start: i, end: end})
			i = end

		default:
			// Tokens the analyzer has no use for (arithmetic, casts, ...)
			// pass through as single-character operators.
			tokens = append(tokens, token{kind: tokOperator, text: string(c), start: i, end: i + 1})
			i++
		}
	}
	return tokens, nil
}

// lexQuoted scans a quoted run starting at start and returns the decoded
// text plus the index past the closing quote. Doubled quote characters
// escape themselves.
func lexQuoted(src string, start int, quote byte) (string, int, error) {
	var sb strings.Builder
	i := start + 1
	n := len(src)
	for i < n {
		if src[i] == quote {
			if i+1 < n && src[i+1] == quote {
				sb.WriteByte(quote)
				i += 2
				continue
			}
			return sb.String(), i + 1, nil
		}
		sb.WriteByte(src[i])
		i++
	}
	return "", i, fmt.Errorf("unterminated quoted token starting at offset %d", start)
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}
