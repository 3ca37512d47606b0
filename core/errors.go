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

import "errors"

// Domain validation errors
var (
	// ErrInvalidPermit indicates a Permit failed validation.
	ErrInvalidPermit = errors.New("invalid permit")

	// ErrInvalidCriteria indicates search Criteria failed validation.
	ErrInvalidCriteria = errors.New("invalid criteria")

	// ErrEmptyApplicant indicates the Applicant field is empty.
	ErrEmptyApplicant = errors.New("applicant cannot be empty")

	// ErrInvalidLimit indicates a negative result limit.
	ErrInvalidLimit = errors.New("limit must be positive")

	// ErrInvalidCoordinate indicates a coordinate that is NaN or infinite.
	ErrInvalidCoordinate = errors.New("coordinate must be a finite number")
)
