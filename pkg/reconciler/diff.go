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
	"sort"

	"github.com/carverauto/storagesync/pkg/models"
)

// Diff returns the field-level changes between a stored field set and the
// currently observed one, ordered by field name. Added and removed keys
// appear with an empty old or new value.
func Diff(oldFields, newFields models.FieldMap) []models.FieldChange {
	seen := make(map[string]struct{}, len(oldFields)+len(newFields))

	var changes []models.FieldChange

	for k, oldVal := range oldFields {
		seen[k] = struct{}{}

		if newVal, ok := newFields[k]; !ok || newVal != oldVal {
			changes = append(changes, models.FieldChange{Field: k, Old: oldVal, New: newFields[k]})
		}
	}

	for k, newVal := range newFields {
		if _, ok := seen[k]; ok {
			continue
		}

		changes = append(changes, models.FieldChange{Field: k, Old: "", New: newVal})
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })

	return changes
}

// changedFieldNames flattens a diff into the list of field names, for event
// details and logs.
func changedFieldNames(changes []models.FieldChange) []string {
	names := make([]string, len(changes))
	for i, c := range changes {
		names[i] = c.Field
	}

	return names
}
