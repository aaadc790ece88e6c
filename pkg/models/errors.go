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

import "errors"

// Error taxonomy for collaborator failures. Callers classify per-host
// versus pass-level handling with errors.Is against these sentinels.
var (
	// ErrSourceUnavailable aborts the whole pass with no state mutation.
	ErrSourceUnavailable = errors.New("source inventory unavailable")

	// ErrTargetUnavailable is a per-host transport failure; the pass
	// continues with the remaining hosts.
	ErrTargetUnavailable = errors.New("target inventory unavailable")

	// ErrTargetRejected is a per-host validation failure from the target
	// API; retrying without changed input is pointless.
	ErrTargetRejected = errors.New("target inventory rejected record")

	// ErrStoreUnavailable is fatal to the pass; state consistency cannot
	// be guaranteed without the store.
	ErrStoreUnavailable = errors.New("state store unavailable")
)
