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
	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the stored domain types.
//
// Wire layout of a Permit: varint ID, the text fields in TextFields order as
// length-prefixed strings, then latitude and longitude each as a presence byte
// followed by a raw float64 when present.
var (
	IDMUS     = idMUS{}
	PermitMUS = permitMUS{}

	optFloat64MUS = optionalFloat64MUS{}
)

var (
	_ mus.Serializer[ID]       = IDMUS
	_ mus.Serializer[Permit]   = PermitMUS
	_ mus.Serializer[*float64] = optFloat64MUS
)

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

type optionalFloat64MUS struct{}

func (s optionalFloat64MUS) Marshal(v *float64, bs []byte) (n int) {
	n = ord.Bool.Marshal(v != nil, bs)
	if v != nil {
		n += raw.Float64.Marshal(*v, bs[n:])
	}
	return n
}

func (s optionalFloat64MUS) Unmarshal(bs []byte) (v *float64, n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return nil, n, err
	}
	f, n1, err := raw.Float64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return nil, n, err
	}
	return &f, n, nil
}

func (s optionalFloat64MUS) Size(v *float64) (size int) {
	size = ord.Bool.Size(v != nil)
	if v != nil {
		size += raw.Float64.Size(*v)
	}
	return size
}

func (s optionalFloat64MUS) Skip(bs []byte) (n int, err error) {
	present, n, err := ord.Bool.Unmarshal(bs)
	if err != nil || !present {
		return n, err
	}
	n1, err := raw.Float64.Skip(bs[n:])
	return n + n1, err
}

// TextFields returns pointers to the permit's string fields in a fixed order.
// The order is the MUS wire order and the SQLite column order.
func (p *Permit) TextFields() []*string {
	return []*string{
		&p.Applicant,
		&p.FacilityType,
		&p.CNN,
		&p.LocationDescription,
		&p.Address,
		&p.BlockLot,
		&p.Block,
		&p.Lot,
		&p.PermitNumber,
		&p.Status,
		&p.FoodItems,
		&p.X,
		&p.Y,
		&p.Schedule,
		&p.DaysHours,
		&p.NOISent,
		&p.Approved,
		&p.Received,
		&p.PriorPermit,
		&p.ExpirationDate,
		&p.Location,
		&p.FirePreventionDistricts,
		&p.PoliceDistricts,
		&p.SupervisorDistricts,
		&p.ZipCodes,
		&p.NeighborhoodsOld,
	}
}

type permitMUS struct{}

func (s permitMUS) Marshal(v Permit, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	for _, f := range v.TextFields() {
		n += ord.String.Marshal(*f, bs[n:])
	}
	n += optFloat64MUS.Marshal(v.Latitude, bs[n:])
	n += optFloat64MUS.Marshal(v.Longitude, bs[n:])
	return n
}

func (s permitMUS) Unmarshal(bs []byte) (v Permit, n int, err error) {
	v.ID, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	for _, f := range v.TextFields() {
		*f, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	v.Latitude, n1, err = optFloat64MUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Longitude, n1, err = optFloat64MUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s permitMUS) Size(v Permit) (size int) {
	size = IDMUS.Size(v.ID)
	for _, f := range v.TextFields() {
		size += ord.String.Size(*f)
	}
	size += optFloat64MUS.Size(v.Latitude)
	return size + optFloat64MUS.Size(v.Longitude)
}

func (s permitMUS) Skip(bs []byte) (n int, err error) {
	n, err = IDMUS.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	for range len((&Permit{}).TextFields()) {
		n1, err = ord.String.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	for range 2 {
		n1, err = optFloat64MUS.Skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}
