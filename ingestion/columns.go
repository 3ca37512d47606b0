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

package ingestion

import (
	"math"
	"strconv"
	"strings"

	"github.com/poiesic/permitsearch/core"
)

type valueKind int

const (
	kindText valueKind = iota
	kindInt
	kindFloat
)

// column describes one dataset field and the header names it appears under.
type column struct {
	names []string
	kind  valueKind
	text  func(p *core.Permit) *string
	coord func(p *core.Permit) **float64
}

// columns lists the dataset fields. Header names are compared after normalizeHeader.
var columns = []column{
	{names: []string{"Applicant"}, text: func(p *core.Permit) *string { return &p.Applicant }},
	{names: []string{"FacilityType"}, text: func(p *core.Permit) *string { return &p.FacilityType }},
	{names: []string{"cnn"}, kind: kindInt, text: func(p *core.Permit) *string { return &p.CNN }},
	{names: []string{"LocationDescription"}, text: func(p *core.Permit) *string { return &p.LocationDescription }},
	{names: []string{"Address"}, text: func(p *core.Permit) *string { return &p.Address }},
	{names: []string{"blocklot"}, text: func(p *core.Permit) *string { return &p.BlockLot }},
	{names: []string{"block"}, text: func(p *core.Permit) *string { return &p.Block }},
	{names: []string{"lot"}, text: func(p *core.Permit) *string { return &p.Lot }},
	{names: []string{"permit"}, text: func(p *core.Permit) *string { return &p.PermitNumber }},
	{names: []string{"Status"}, text: func(p *core.Permit) *string { return &p.Status }},
	{names: []string{"FoodItems"}, text: func(p *core.Permit) *string { return &p.FoodItems }},
	{names: []string{"X"}, kind: kindFloat, text: func(p *core.Permit) *string { return &p.X }},
	{names: []string{"Y"}, kind: kindFloat, text: func(p *core.Permit) *string { return &p.Y }},
	{names: []string{"Latitude"}, kind: kindFloat, coord: func(p *core.Permit) **float64 { return &p.Latitude }},
	{names: []string{"Longitude"}, kind: kindFloat, coord: func(p *core.Permit) **float64 { return &p.Longitude }},
	{names: []string{"Schedule"}, text: func(p *core.Permit) *string { return &p.Schedule }},
	{names: []string{"dayshours", "Days/Hours"}, text: func(p *core.Permit) *string { return &p.DaysHours }},
	{names: []string{"NOISent", "NOI"}, text: func(p *core.Permit) *string { return &p.NOISent }},
	{names: []string{"Approved"}, text: func(p *core.Permit) *string { return &p.Approved }},
	{names: []string{"Received"}, text: func(p *core.Permit) *string { return &p.Received }},
	{names: []string{"PriorPermit"}, kind: kindInt, text: func(p *core.Permit) *string { return &p.PriorPermit }},
	{names: []string{"ExpirationDate"}, text: func(p *core.Permit) *string { return &p.ExpirationDate }},
	{names: []string{"Location"}, text: func(p *core.Permit) *string { return &p.Location }},
	{names: []string{"Fire Prevention Districts"}, kind: kindInt, text: func(p *core.Permit) *string { return &p.FirePreventionDistricts }},
	{names: []string{"Police Districts"}, kind: kindInt, text: func(p *core.Permit) *string { return &p.PoliceDistricts }},
	{names: []string{"Supervisor Districts"}, kind: kindInt, text: func(p *core.Permit) *string { return &p.SupervisorDistricts }},
	{names: []string{"Zip Codes"}, kind: kindInt, text: func(p *core.Permit) *string { return &p.ZipCodes }},
	{names: []string{"Neighborhoods (old)"}, text: func(p *core.Permit) *string { return &p.NeighborhoodsOld }},
}

// idHeader is the normalized name of the location id column.
const idHeader = "locationid"

var headerStripper = strings.NewReplacer(" ", "", "_", "", "/", "", "(", "", ")", "", "-", "")

// normalizeHeader folds the spelling variants found in dataset exports,
// so "Facility Type", "FacilityType" and "facility_type" compare equal.
func normalizeHeader(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
	return strings.ToLower(headerStripper.Replace(name))
}

// normalizeInt truncates a numeric value to an integer.
// Empty or non-numeric values become empty.
func normalizeInt(v string) string {
	f, ok := parseFinite(v)
	if !ok {
		return ""
	}
	return strconv.FormatInt(int64(math.Trunc(f)), 10)
}

// normalizeFloat canonicalizes a numeric value. Empty or non-numeric values become empty.
func normalizeFloat(v string) string {
	f, ok := parseFinite(v)
	if !ok {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFinite(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
