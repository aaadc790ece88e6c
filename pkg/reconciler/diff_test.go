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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/storagesync/pkg/models"
)

func TestDiff(t *testing.T) {
	old := models.FieldMap{
		"name": "SAN 01",
		"ip":   "10.0.0.5",
		"os":   "ONTAP 9.12",
	}
	updated := models.FieldMap{
		"name":     "SAN 01",
		"ip":       "10.0.0.6",
		"os":       "ONTAP 9.13",
		"serial_a": "SN-A1",
	}

	changes := Diff(old, updated)

	assert.Equal(t, []models.FieldChange{
		{Field: "ip", Old: "10.0.0.5", New: "10.0.0.6"},
		{Field: "os", Old: "ONTAP 9.12", New: "ONTAP 9.13"},
		{Field: "serial_a", Old: "", New: "SN-A1"},
	}, changes)
}

func TestDiffRemovedKey(t *testing.T) {
	changes := Diff(models.FieldMap{"os": "ONTAP"}, models.FieldMap{})

	assert.Equal(t, []models.FieldChange{{Field: "os", Old: "ONTAP", New: ""}}, changes)
}

func TestDiffNoChanges(t *testing.T) {
	fields := models.FieldMap{"name": "SAN 01"}

	assert.Empty(t, Diff(fields, fields))
	assert.Empty(t, Diff(nil, nil))
}

func TestChangedFieldNames(t *testing.T) {
	changes := []models.FieldChange{
		{Field: "ip", Old: "a", New: "b"},
		{Field: "os", Old: "c", New: "d"},
	}

	assert.Equal(t, []string{"ip", "os"}, changedFieldNames(changes))
}
