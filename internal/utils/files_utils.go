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
package utils

import (
	"fmt"
	"os"
	"strings"
)

// ReadQueryFromFile reads a SQL statement from a file.
func ReadQueryFromFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read query file: %w", err)
	}
	query := strings.TrimSpace(string(content))
	if query == "" {
		return "", fmt.Errorf("query file '%s' is empty", filePath)
	}
	return query, nil
}

// WriteStringToFile writes content to the given path, creating or
// truncating the file.
func WriteStringToFile(content, filePath string) error {
	if err := os.WriteFile(filePath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write file '%s': %w", filePath, err)
	}
	return nil
}

// ParseMetricsFlag splits a comma-separated metric list into trimmed,
// lowercased names.
func ParseMetricsFlag(metricsFlag string) []string {
	parts := strings.Split(metricsFlag, ",")
	var names []string
	for _, part := range parts {
		name := strings.ToLower(strings.TrimSpace(part))
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
