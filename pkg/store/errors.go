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

package store

import "errors"

var (
	// ErrLeaseHeld is returned by AcquireLease while another pass holds
	// the advisory lock.
	ErrLeaseHeld = errors.New("reconciliation lease held by another pass")

	// ErrNotLeaseOwner is returned by ReleaseLease when the lease is held
	// by a different owner.
	ErrNotLeaseOwner = errors.New("lease held by a different owner")
)
