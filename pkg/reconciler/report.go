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

package reconciler

import (
	"context"
	"sort"

	"github.com/carverauto/storagesync/pkg/models"
)

// MissingHost is one entry of the daily report's absence list.
type MissingHost struct {
	SourceID     string  `json:"source_id"`
	Name         string  `json:"name"`
	MissingHours float64 `json:"missing_hours"`
}

// Report sends a daily_report event summarizing the tracked fleet: total
// record count and the currently missing hosts, longest absence first.
func (r *Reconciler) Report(ctx context.Context) error {
	now := r.clock.Now()

	active, err := r.store.ListActive(ctx)
	if err != nil {
		return err
	}

	var missing []MissingHost

	for _, id := range active {
		st, found, err := r.store.GetHost(ctx, id)
		if err != nil {
			return err
		}

		if !found || !st.IsMissing() {
			continue
		}

		missing = append(missing, MissingHost{
			SourceID:     id,
			Name:         st.Fields[models.FieldName],
			MissingHours: now.Sub(*st.MissingSince).Hours(),
		})
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].MissingHours > missing[j].MissingHours })

	r.emit(ctx, &models.Event{
		Kind:  models.EventDailyReport,
		Level: models.LevelInfo,
		Details: map[string]any{
			"tracked":       len(active),
			"missing":       missing,
			"missing_count": len(missing),
		},
		Timestamp: now,
	})

	r.logger.Info().
		Int("tracked", len(active)).
		Int("missing", len(missing)).
		Msg("Daily report sent")

	return nil
}
