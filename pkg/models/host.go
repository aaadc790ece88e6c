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

import (
	"sort"
	"time"
)

// FieldSchemaVersion identifies the set of recognized host attribute keys.
// Bump it when keys are added or removed so stored fingerprints are not
// compared across incompatible schemas.
const FieldSchemaVersion = "v1"

// RecognizedFields is the fixed schema of host attributes tracked for
// change detection. Keys outside this set are dropped during normalization
// so upstream inventory drift cannot destabilize fingerprints.
var RecognizedFields = []string{
	FieldName,
	FieldIP,
	FieldStatus,
	FieldOS,
	FieldSerialA,
	FieldSerialB,
	FieldHardware,
	FieldSiteGroup,
}

const (
	FieldName      = "name"
	FieldIP        = "ip"
	FieldStatus    = "status"
	FieldOS        = "os"
	FieldSerialA   = "serial_a"
	FieldSerialB   = "serial_b"
	FieldHardware  = "hardware"
	FieldSiteGroup = "site_group"
)

// FieldMap holds the normalized attribute set of a host. Iteration order is
// not significant; consumers that need determinism sort the keys.
type FieldMap map[string]string

// RawHost is a host as reported by the source inventory, before
// normalization.
type RawHost struct {
	ID        string `json:"hostid"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	IP        string `json:"ip"`
	OS        string `json:"os"`
	SerialA   string `json:"serial_a"`
	SerialB   string `json:"serial_b"`
	Hardware  string `json:"hardware"`
	SiteGroup string `json:"site_group"`
}

// NormalizeFields maps a RawHost onto the recognized field schema. Every
// recognized key is present in the result, empty when the source did not
// report it.
func NormalizeFields(h *RawHost) FieldMap {
	return FieldMap{
		FieldName:      h.Name,
		FieldIP:        h.IP,
		FieldStatus:    h.Status,
		FieldOS:        h.OS,
		FieldSerialA:   h.SerialA,
		FieldSerialB:   h.SerialB,
		FieldHardware:  h.Hardware,
		FieldSiteGroup: h.SiteGroup,
	}
}

// SortedKeys returns the field names in lexical order.
func (f FieldMap) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Clone returns a copy that shares no storage with the receiver.
func (f FieldMap) Clone() FieldMap {
	out := make(FieldMap, len(f))
	for k, v := range f {
		out[k] = v
	}

	return out
}

// TrackedHost is the persisted per-host state record. One record exists per
// source host id; records are never deleted by the reconciler, only expired
// by the store's retention window.
type TrackedHost struct {
	SourceID    string   `json:"source_id"`
	TargetID    string   `json:"target_id,omitempty"`
	Fields      FieldMap `json:"fields"`
	Fingerprint string   `json:"fingerprint"`
	SchemaVer   string   `json:"schema_version"`

	LastSeen time.Time `json:"last_seen"`

	// MissingSince is set on the first pass the host is absent from the
	// source and cleared when it reappears.
	MissingSince *time.Time `json:"missing_since,omitempty"`

	// LastNotifiedMissing is the time of the most recent absence
	// notification; cleared together with MissingSince.
	LastNotifiedMissing *time.Time `json:"last_notified_missing,omitempty"`
}

// IsMissing reports whether the host is currently considered absent from the
// source inventory.
func (h *TrackedHost) IsMissing() bool {
	return h.MissingSince != nil
}
