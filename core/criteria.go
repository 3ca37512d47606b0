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

import "strings"

// DefaultLimit is the number of results returned when a query does not set one.
const DefaultLimit = 5

// Filter holds the text filters of a query. An empty field matches everything.
type Filter struct {
	// ApplicantName is matched as a case-insensitive substring of Permit.Applicant.
	ApplicantName string
	// StreetName is matched as a case-insensitive substring of Permit.Address.
	StreetName string
	// Status must equal Permit.Status exactly (case-sensitive).
	Status string
}

// Match reports whether the permit passes all three filters.
func (f Filter) Match(p *Permit) bool {
	if p == nil {
		return false
	}
	return containsFold(p.Applicant, f.ApplicantName) &&
		containsFold(p.Address, f.StreetName) &&
		(f.Status == "" || p.Status == f.Status)
}

// IsEmpty reports whether the filter accepts every permit.
func (f Filter) IsEmpty() bool {
	return f.ApplicantName == "" && f.StreetName == "" && f.Status == ""
}

// containsFold reports whether substr is within s, ignoring case.
// An empty substr always matches, including against an empty s.
func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Criteria is one parsed search request.
type Criteria struct {
	Filter

	// Limit caps the number of results. Zero means DefaultLimit.
	Limit int

	// Origin is the reference point for proximity ranking.
	// It is nil unless both coordinates were supplied.
	Origin *Point
}

// NewCriteria creates criteria with the given filter and limit and no origin.
func NewCriteria(filter Filter, limit int) Criteria {
	return Criteria{Filter: filter, Limit: limit}
}

// WithOrigin returns a copy of c whose Origin is set from lat and lon.
// Origin is set only when both are non-nil; zero values are valid coordinates.
func (c Criteria) WithOrigin(lat, lon *float64) Criteria {
	if lat == nil || lon == nil {
		c.Origin = nil
		return c
	}
	c.Origin = &Point{Latitude: *lat, Longitude: *lon}
	return c
}

// Proximity reports whether the criteria request distance ranking.
func (c Criteria) Proximity() bool {
	return c.Origin != nil
}

// EffectiveLimit returns the limit to apply, substituting DefaultLimit for zero.
func (c Criteria) EffectiveLimit() int {
	if c.Limit == 0 {
		return DefaultLimit
	}
	return c.Limit
}
