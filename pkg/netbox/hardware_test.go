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

package netbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManufacturerFromHardware(t *testing.T) {
	tests := []struct {
		hardware string
		want     string
	}{
		{"NetApp FAS8300", "NetApp"},
		{"OceanStor Dorado 5000 V6", "Huawei"},
		{"Dell PowerStore 500T", "Dell"},
		{"EMC Unity 480F", "Dell EMC"},
		{"HPE Primera A630", "HPE"},
		{"IBM FlashSystem 5200", "IBM"},
		{"Pure Storage FlashArray//X70", "Pure Storage"},
		{"Frobozz Array 9000", "Frobozz"}, // unknown vendor: first word, capitalized
		{"", "Unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ManufacturerFromHardware(tt.hardware), "hardware=%q", tt.hardware)
	}
}

func TestModelFromHardware(t *testing.T) {
	assert.Equal(t, "Unknown Storage", ModelFromHardware(""))
	assert.Equal(t, "NetApp FAS8300", ModelFromHardware("  NetApp   FAS8300  "))

	long := strings.Repeat("x", 80)
	got := ModelFromHardware(long)
	assert.Len(t, got, 50)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "pure-storage", slugify("Pure Storage"))
	assert.Equal(t, "dell-emc", slugify("Dell_EMC "))
	assert.Len(t, slugify(strings.Repeat("a b", 40)), 50)
}
