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
package guardrail

import "fmt"

// ErrConfiguration represents construction-time misconfiguration. It is
// the only error class Analyze callers ever see raised: data-quality
// problems degrade to warnings instead.
type ErrConfiguration struct {
	Msg string
	Err error
}

func (e *ErrConfiguration) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Msg)
}

func (e *ErrConfiguration) Unwrap() error {
	return e.Err
}

// ErrMetricFailure represents a single metric call failing for one
// column/value pair. It is never returned from Analyze; it is formatted
// into a warning scoped to that pair.
type ErrMetricFailure struct {
	Metric string
	Column string
	Value  string
	Err    error
}

func (e *ErrMetricFailure) Error() string {
	return fmt.Sprintf("metric %q failed for column %q value %q: %v", e.Metric, e.Column, e.Value, e.Err)
}

func (e *ErrMetricFailure) Unwrap() error {
	return e.Err
}
