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

package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carverauto/storagesync/pkg/models"
)

func TestComputeDeterministic(t *testing.T) {
	fields := models.FieldMap{
		"name":     "SAN Almaty 01",
		"ip":       "10.0.0.5",
		"os":       "ONTAP 9.13",
		"serial_a": "SN-A1",
	}

	first := Compute(fields)

	// Maps iterate in random order; the digest must not depend on it.
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Compute(fields))
	}

	// Building an equal map from scratch produces the same digest.
	rebuilt := models.FieldMap{
		"serial_a": "SN-A1",
		"os":       "ONTAP 9.13",
		"ip":       "10.0.0.5",
		"name":     "SAN Almaty 01",
	}
	assert.Equal(t, first, Compute(rebuilt))
}

func TestComputeSensitivity(t *testing.T) {
	base := models.FieldMap{"name": "a", "ip": "10.0.0.1"}

	changedValue := models.FieldMap{"name": "a", "ip": "10.0.0.2"}
	assert.NotEqual(t, Compute(base), Compute(changedValue))

	missingKey := models.FieldMap{"name": "a"}
	assert.NotEqual(t, Compute(base), Compute(missingKey))

	// Key/value boundaries are unambiguous: {"ab":"c"} vs {"a":"bc"}.
	assert.NotEqual(t,
		Compute(models.FieldMap{"ab": "c"}),
		Compute(models.FieldMap{"a": "bc"}))
}

func TestComputeEmpty(t *testing.T) {
	assert.NotEmpty(t, Compute(models.FieldMap{}))
	assert.Len(t, Compute(models.FieldMap{}), 64) // hex sha256
}

func TestEqual(t *testing.T) {
	a := Compute(models.FieldMap{"name": "a"})
	b := Compute(models.FieldMap{"name": "b"})

	assert.True(t, Equal(a, a))
	assert.False(t, Equal(a, b))
	assert.False(t, Equal(a, ""))
}
