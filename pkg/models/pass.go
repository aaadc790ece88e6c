/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import "time"

// PassSummary aggregates the outcome of one reconciliation pass.
type PassSummary struct {
	PassID     string    `json:"pass_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DryRun     bool      `json:"dry_run"`

	Total        int `json:"total"`
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Unchanged    int `json:"unchanged"`
	Returned     int `json:"returned"`
	NewlyMissing int `json:"newly_missing"`
	Escalated    int `json:"escalated"`
	Errors       int `json:"errors"`
}

// Duration returns the wall-clock length of the pass.
func (s *PassSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
