// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"fmt"
	"math"
)

// ValidatePermit validates a Permit according to domain rules.
//
// Validation rules:
//   - Applicant must not be empty
//   - Latitude and Longitude, when present, must be finite
//
// NOT validated:
//   - Status (the known set is informational only)
//   - Coordinate ranges (callers decide what a sensible coordinate is)
//   - ID (0 is replaced by a content hash on import)
func ValidatePermit(permit *Permit) error {
	if permit == nil {
		return fmt.Errorf("%w: permit is nil", ErrInvalidPermit)
	}

	if permit.Applicant == "" {
		return fmt.Errorf("%w: %w", ErrInvalidPermit, ErrEmptyApplicant)
	}

	if permit.Latitude != nil && !isFinite(*permit.Latitude) {
		return fmt.Errorf("%w: latitude: %w", ErrInvalidPermit, ErrInvalidCoordinate)
	}
	if permit.Longitude != nil && !isFinite(*permit.Longitude) {
		return fmt.Errorf("%w: longitude: %w", ErrInvalidPermit, ErrInvalidCoordinate)
	}

	return nil
}

// ValidateCriteria validates search Criteria.
//
// A zero Limit is accepted and means DefaultLimit. Origin coordinates must be finite
// but are not range checked.
func ValidateCriteria(criteria Criteria) error {
	if criteria.Limit < 0 {
		return fmt.Errorf("%w: %w: got %d", ErrInvalidCriteria, ErrInvalidLimit, criteria.Limit)
	}

	if criteria.Origin != nil {
		if !isFinite(criteria.Origin.Latitude) || !isFinite(criteria.Origin.Longitude) {
			return fmt.Errorf("%w: origin: %w", ErrInvalidCriteria, ErrInvalidCoordinate)
		}
	}

	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
