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

package api

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/poiesic/permitsearch/core"
)

var (
	errInvalidLimit     = errors.New("limit must be a positive integer")
	errInvalidLatitude  = errors.New("latitude must be a number between -90 and 90")
	errInvalidLongitude = errors.New("longitude must be a number between -180 and 180")
)

// parseCriteria turns the search query string into criteria.
//
// An absent status parameter selects the default status; a present but empty
// one disables status filtering. A limit above maxLimit is lowered to it.
// Proximity ranking needs both latitude and longitude.
func (s *Server) parseCriteria(c *gin.Context) (core.Criteria, error) {
	filter := core.Filter{
		ApplicantName: c.Query("applicantName"),
		StreetName:    c.Query("streetName"),
		Status:        s.defaultStatus,
	}
	if status, ok := c.GetQuery("status"); ok {
		filter.Status = status
	}

	limit := s.defaultLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return core.Criteria{}, fmt.Errorf("%w: %q", errInvalidLimit, raw)
		}
		limit = min(n, s.maxLimit)
	}

	lat, err := parseCoordinate(c.Query("latitude"), 90)
	if err != nil {
		return core.Criteria{}, errInvalidLatitude
	}
	lon, err := parseCoordinate(c.Query("longitude"), 180)
	if err != nil {
		return core.Criteria{}, errInvalidLongitude
	}

	return core.NewCriteria(filter, limit).WithOrigin(lat, lon), nil
}

// parseCoordinate parses an optional coordinate. Empty input yields nil.
func parseCoordinate(raw string, bound float64) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) || math.Abs(v) > bound {
		return nil, fmt.Errorf("coordinate %v out of range", v)
	}
	return &v, nil
}
