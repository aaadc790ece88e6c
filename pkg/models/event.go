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

// EventKind classifies reconciliation events emitted to notifiers.
type EventKind string

const (
	EventNewHost       EventKind = "new_host"
	EventFieldsChanged EventKind = "fields_changed"
	EventHostMissing   EventKind = "host_missing"
	EventHostReturned  EventKind = "host_returned"
	EventSyncError     EventKind = "sync_error"
	EventPassFailure   EventKind = "pass_failure"
	EventDailyReport   EventKind = "daily_report"
)

// EventLevel mirrors webhook alert severity levels.
type EventLevel string

const (
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// Event is a pre-formatted notification record handed to the Notifier.
type Event struct {
	Kind      EventKind      `json:"kind"`
	Level     EventLevel     `json:"level"`
	HostID    string         `json:"host_id,omitempty"`
	HostName  string         `json:"host_name,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// FieldChange records a single attribute transition for fields_changed
// events.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}
