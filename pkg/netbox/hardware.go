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

import "strings"

const (
	unknownManufacturer = "Unknown"
	unknownModel        = "Unknown Storage"

	// NetBox caps slugs and device-type models at 50 characters.
	maxSlugLen  = 50
	maxModelLen = 50
)

// manufacturerKeywords maps substrings seen in storage-array hardware strings
// to canonical vendor names. Product lines that went through acquisitions
// resolve to the current owner.
var manufacturerKeywords = []struct {
	keyword string
	name    string
}{
	{"netapp", "NetApp"},
	{"oceanstor", "Huawei"},
	{"dorado", "Huawei"},
	{"huawei", "Huawei"},
	{"compellent", "Dell"},
	{"equallogic", "Dell"},
	{"powervault", "Dell"},
	{"powerstore", "Dell"},
	{"emc", "Dell EMC"},
	{"dell", "Dell"},
	{"3par", "HPE"},
	{"nimble", "HPE"},
	{"primera", "HPE"},
	{"alletra", "HPE"},
	{"hpe", "HPE"},
	{"hp", "HPE"},
	{"storwize", "IBM"},
	{"flashsystem", "IBM"},
	{"ibm", "IBM"},
	{"purestorage", "Pure Storage"},
	{"pure", "Pure Storage"},
	{"hitachi", "Hitachi"},
	{"infinidat", "Infinidat"},
	{"netgear", "NETGEAR"},
	{"synology", "Synology"},
	{"qnap", "QNAP"},
}

// ManufacturerFromHardware guesses the vendor from a free-form hardware
// string. An unrecognized string falls back to its first word.
func ManufacturerFromHardware(hardware string) string {
	if hardware == "" {
		return unknownManufacturer
	}

	lower := strings.ToLower(hardware)

	for _, entry := range manufacturerKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.name
		}
	}

	words := strings.Fields(hardware)
	if len(words) == 0 {
		return unknownManufacturer
	}

	first := strings.ToLower(words[0])

	return strings.ToUpper(first[:1]) + first[1:]
}

// ModelFromHardware derives the device-type model from the hardware string,
// collapsing whitespace and truncating to the NetBox field limit.
func ModelFromHardware(hardware string) string {
	hardware = strings.Join(strings.Fields(hardware), " ")
	if hardware == "" {
		return unknownModel
	}

	if len(hardware) <= maxModelLen {
		return hardware
	}

	return hardware[:maxModelLen-3] + "..."
}

// slugify converts a display name to a NetBox slug.
func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")

	if len(slug) > maxSlugLen {
		slug = slug[:maxSlugLen]
	}

	return slug
}
