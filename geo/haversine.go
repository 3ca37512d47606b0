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

// Package geo computes great-circle distances between coordinates.
package geo

import (
	"math"

	"github.com/poiesic/permitsearch/core"
)

// EarthRadiusMiles is the mean Earth radius used for all distances.
const EarthRadiusMiles = 3958.8

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Distance returns the haversine distance in miles between two points given in degrees.
//
// Inputs are not range checked; latitudes beyond ±90 or longitudes beyond ±180 still
// produce a finite result for finite inputs.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := ToRadians(lat1)
	lat2Rad := ToRadians(lat2)
	dLat := ToRadians(lat2 - lat1)
	dLon := ToRadians(lon2 - lon1)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1Rad)*math.Cos(lat2Rad)*sinLon*sinLon

	// Rounding can push a slightly past 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))

	return 2 * EarthRadiusMiles * math.Asin(math.Sqrt(a))
}

// DistanceBetween returns the distance in miles between two points.
func DistanceBetween(a, b core.Point) float64 {
	return Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// DistanceTo returns the distance in miles from origin to the permit's location.
// ok is false when the permit is not locatable.
func DistanceTo(origin core.Point, p *core.Permit) (miles float64, ok bool) {
	if p == nil || !p.Locatable() {
		return 0, false
	}
	return DistanceBetween(origin, core.Point{Latitude: *p.Latitude, Longitude: *p.Longitude}), true
}
