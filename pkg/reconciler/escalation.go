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
	"time"
)

// Schedule is the ordered list of elapsed-time thresholds at which a repeat
// absence notification is due, plus the repeat interval that applies after
// the last threshold has been crossed.
type Schedule struct {
	Thresholds []time.Duration
	Repeat     time.Duration
}

// DefaultSchedule notifies immediately, after one hour, six hours and one
// day, then once every day.
func DefaultSchedule() Schedule {
	return Schedule{
		Thresholds: []time.Duration{0, time.Hour, 6 * time.Hour, 24 * time.Hour},
		Repeat:     24 * time.Hour,
	}
}

// Normalize sorts the thresholds and defaults the repeat interval to the
// last threshold when unset.
func (s Schedule) Normalize() Schedule {
	out := Schedule{
		Thresholds: append([]time.Duration(nil), s.Thresholds...),
		Repeat:     s.Repeat,
	}

	sort.Slice(out.Thresholds, func(i, j int) bool { return out.Thresholds[i] < out.Thresholds[j] })

	if out.Repeat <= 0 && len(out.Thresholds) > 0 {
		out.Repeat = out.Thresholds[len(out.Thresholds)-1]
	}

	return out
}

// Due reports whether an absence notification is owed at now for a host
// missing since missingSince and last notified at lastNotified. It compares
// the escalation stage reached at now against the stage already notified
// at lastNotified, so a pass running late still notifies exactly once per
// crossed threshold.
func (s Schedule) Due(missingSince, lastNotified, now time.Time) bool {
	if now.Before(missingSince) {
		return false
	}

	if lastNotified.Before(missingSince) {
		// Never notified for this absence.
		return true
	}

	return s.stage(now.Sub(missingSince)) > s.stage(lastNotified.Sub(missingSince))
}

// stage counts how many notification points have been passed after the host
// has been missing for elapsed: one per crossed threshold, then one per
// repeat interval beyond the last threshold.
func (s Schedule) stage(elapsed time.Duration) int {
	if elapsed < 0 {
		return 0
	}

	n := 0

	for _, t := range s.Thresholds {
		if elapsed >= t {
			n++
		}
	}

	if len(s.Thresholds) == 0 || s.Repeat <= 0 {
		return n
	}

	last := s.Thresholds[len(s.Thresholds)-1]
	if elapsed > last {
		n += int((elapsed - last) / s.Repeat)
	}

	return n
}
