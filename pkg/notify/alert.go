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

// Package notify delivers reconciliation events to operators through
// webhooks and Telegram.
package notify

import (
	"fmt"
	"time"

	"github.com/carverauto/storagesync/pkg/models"
)

// Alert is the wire format posted to webhook sinks.
type Alert struct {
	Level     models.EventLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	HostID    string            `json:"host_id,omitempty"`
	Details   map[string]any    `json:"details,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// FromEvent renders an event into an alert with a human-readable title and
// message.
func FromEvent(event *models.Event) *Alert {
	return &Alert{
		Level:     event.Level,
		Title:     eventTitle(event),
		Message:   eventMessage(event),
		HostID:    event.HostID,
		Details:   event.Details,
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
	}
}

func eventTitle(event *models.Event) string {
	switch event.Kind {
	case models.EventNewHost:
		return "New storage host"
	case models.EventFieldsChanged:
		return "Storage host changed"
	case models.EventHostMissing:
		return "Storage host not responding"
	case models.EventHostReturned:
		return "Storage host returned"
	case models.EventSyncError:
		return "Host sync failed"
	case models.EventPassFailure:
		return "Reconciliation pass failed"
	case models.EventDailyReport:
		return "Daily inventory report"
	default:
		return string(event.Kind)
	}
}

func eventMessage(event *models.Event) string {
	name := event.HostName
	if name == "" {
		name = event.HostID
	}

	switch event.Kind {
	case models.EventNewHost:
		return fmt.Sprintf("%s was added to the inventory", name)
	case models.EventFieldsChanged:
		return fmt.Sprintf("%s changed: %v", name, event.Details["fields"])
	case models.EventHostMissing:
		if hours, ok := event.Details["missing_hours"].(float64); ok {
			return fmt.Sprintf("%s has been missing for %s", name, formatDuration(hours))
		}

		return fmt.Sprintf("%s disappeared from the monitoring system", name)
	case models.EventHostReturned:
		if hours, ok := event.Details["absent_hours"].(float64); ok {
			return fmt.Sprintf("%s is back after %s", name, formatDuration(hours))
		}

		return fmt.Sprintf("%s is back", name)
	case models.EventSyncError:
		return fmt.Sprintf("syncing %s failed: %v", name, event.Details["error"])
	case models.EventPassFailure:
		return fmt.Sprintf("reconciliation aborted: %v", event.Details["error"])
	case models.EventDailyReport:
		return fmt.Sprintf("tracking %v hosts, %v missing",
			event.Details["tracked"], event.Details["missing_count"])
	default:
		return name
	}
}

// formatDuration renders an hour count the way operators read it: minutes
// under an hour, hours under a day, days beyond.
func formatDuration(hours float64) string {
	switch {
	case hours < 1:
		return fmt.Sprintf("%dm", int(hours*60))
	case hours < 24:
		return fmt.Sprintf("%.1fh", hours)
	default:
		days := int(hours / 24)
		rem := hours - float64(days)*24

		if rem >= 1 {
			return fmt.Sprintf("%dd %.0fh", days, rem)
		}

		return fmt.Sprintf("%dd", days)
	}
}
