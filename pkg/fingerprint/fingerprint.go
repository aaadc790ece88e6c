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

// Package fingerprint computes stable digests of normalized host field
// sets, used to detect attribute changes cheaply between passes.
package fingerprint

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"github.com/carverauto/storagesync/pkg/models"
)

// Compute returns the lowercase-hex SHA-256 digest of the field set. Keys
// are sorted before hashing, so the digest is independent of map iteration
// order. Key/value boundaries are length-prefix free but use separators
// that cannot appear in field names, so distinct field sets cannot collide
// by concatenation.
func Compute(fields models.FieldMap) string {
	h := sha256.New()

	for _, k := range fields.SortedKeys() {
		h.Write([]byte(k))
		h.Write([]byte{0x00})
		h.Write([]byte(fields[k]))
		h.Write([]byte{0x0a})
	}

	return hex.EncodeToString(h.Sum(nil))
}

// Equal compares two digests in constant time.
func Equal(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
