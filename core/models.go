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
	"encoding/binary"
	"math"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for a permit.
// It is the dataset's location id when present, or a content hash otherwise.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
// The top bit is cleared so the ID also fits a signed 64-bit SQL integer.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum) & math.MaxInt64)
}

// Known permit status values. The set is informational; statuses are not validated.
const (
	StatusApproved  = "APPROVED"
	StatusSuspend   = "SUSPEND"
	StatusExpired   = "EXPIRED"
	StatusRequested = "REQUESTED"
	StatusIssued    = "ISSUED"
)

// Permit is one mobile food facility permit entry.
//
// Text fields use the empty string for missing values. Latitude and Longitude are
// pointers because 0.0 is a real coordinate and must not be confused with "missing".
type Permit struct {
	ID                      ID       `json:"locationid"`
	Applicant               string   `json:"applicant"`
	FacilityType            string   `json:"facilityType,omitempty"`
	CNN                     string   `json:"cnn,omitempty"`
	LocationDescription     string   `json:"locationDescription,omitempty"`
	Address                 string   `json:"address,omitempty"`
	BlockLot                string   `json:"blocklot,omitempty"`
	Block                   string   `json:"block,omitempty"`
	Lot                     string   `json:"lot,omitempty"`
	PermitNumber            string   `json:"permit,omitempty"`
	Status                  string   `json:"status,omitempty"`
	FoodItems               string   `json:"foodItems,omitempty"`
	X                       string   `json:"x,omitempty"`
	Y                       string   `json:"y,omitempty"`
	Latitude                *float64 `json:"latitude"`
	Longitude               *float64 `json:"longitude"`
	Schedule                string   `json:"schedule,omitempty"`
	DaysHours               string   `json:"dayshours,omitempty"`
	NOISent                 string   `json:"noiSent,omitempty"`
	Approved                string   `json:"approved,omitempty"`
	Received                string   `json:"received,omitempty"`
	PriorPermit             string   `json:"priorPermit,omitempty"`
	ExpirationDate          string   `json:"expirationDate,omitempty"`
	Location                string   `json:"location,omitempty"`
	FirePreventionDistricts string   `json:"firePreventionDistricts,omitempty"`
	PoliceDistricts         string   `json:"policeDistricts,omitempty"`
	SupervisorDistricts     string   `json:"supervisorDistricts,omitempty"`
	ZipCodes                string   `json:"zipCodes,omitempty"`
	NeighborhoodsOld        string   `json:"neighborhoodsOld,omitempty"`
}

// Locatable reports whether both coordinates are present.
// A coordinate of exactly 0 counts as present.
func (p *Permit) Locatable() bool {
	return p.Latitude != nil && p.Longitude != nil
}

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchResult is a permit returned by a search, optionally annotated with its
// distance in miles from the query's origin.
//
// Distance is nil unless the query ran in proximity mode. When nil it is omitted
// from the JSON encoding, so plain results serialize exactly like a Permit.
type SearchResult struct {
	*Permit
	Distance *float64 `json:"distance,omitempty"`
}

// HasDistance reports whether the result carries a distance annotation.
func (r *SearchResult) HasDistance() bool {
	return r.Distance != nil
}

// Float64 returns a pointer to v. Handy for building permits and criteria.
func Float64(v float64) *float64 {
	return &v
}
