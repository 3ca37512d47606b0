package geo

import (
	"math"
	"testing"

	"github.com/poiesic/permitsearch/core"
	"github.com/stretchr/testify/assert"
)

func TestToRadians(t *testing.T) {
	assert.InDelta(t, 0, ToRadians(0), 1e-12)
	assert.InDelta(t, math.Pi, ToRadians(180), 1e-12)
	assert.InDelta(t, math.Pi/2, ToRadians(90), 1e-12)
	assert.InDelta(t, -math.Pi/4, ToRadians(-45), 1e-12)
}

func TestDistance_SamePointIsZero(t *testing.T) {
	points := []core.Point{
		{Latitude: 0, Longitude: 0},
		{Latitude: 37.7955, Longitude: -122.3937},
		{Latitude: -33.8688, Longitude: 151.2093},
		{Latitude: 89.9999, Longitude: 179.9999},
	}
	for _, p := range points {
		assert.InDelta(t, 0, Distance(p.Latitude, p.Longitude, p.Latitude, p.Longitude), 1e-6)
	}
}

func TestDistance_KnownPairs(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		delta                  float64
	}{
		{
			name: "101 California St to 18th and Dolores",
			lat1: 37.792949, lon1: -122.398099, lat2: 37.762019, lon2: -122.427306,
			want: 2.67, delta: 0.01,
		},
		{
			name: "Ferry Building to Union Square",
			lat1: 37.7955, lon1: -122.3937, lat2: 37.7880, lon2: -122.4075,
			want: 0.91, delta: 0.01,
		},
		{
			name: "one degree of longitude at the equator",
			lat1: 0, lon1: 0, lat2: 0, lon2: 1,
			want: 69.09, delta: 0.01,
		},
		{
			name: "equator to pole",
			lat1: 0, lon1: 0, lat2: 90, lon2: 0,
			want: math.Pi / 2 * EarthRadiusMiles, delta: 1e-6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Distance(tt.lat1, tt.lon1, tt.lat2, tt.lon2), tt.delta)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	pairs := [][4]float64{
		{37, -122, 38, -121},
		{37.792949, -122.398099, 37.762019, -122.427306},
		{0, 0, -10, 170},
		{-45.5, 12.25, 60.1, -100.75},
	}
	for _, p := range pairs {
		ab := Distance(p[0], p[1], p[2], p[3])
		ba := Distance(p[2], p[3], p[0], p[1])
		assert.InDelta(t, ab, ba, 1e-9)
		assert.GreaterOrEqual(t, ab, 0.0)
	}
}

func TestDistance_AntipodalIsFinite(t *testing.T) {
	d := Distance(0, 0, 0, 180)
	assert.False(t, math.IsNaN(d))
	assert.InDelta(t, math.Pi*EarthRadiusMiles, d, 1e-6)
}

func TestDistance_OutOfRangeInputsAreFinite(t *testing.T) {
	d := Distance(120, 400, -95, -720)
	assert.False(t, math.IsNaN(d))
	assert.False(t, math.IsInf(d, 0))
	assert.GreaterOrEqual(t, d, 0.0)
}

func TestDistanceTo(t *testing.T) {
	origin := core.Point{Latitude: 37.7955, Longitude: -122.3937}

	t.Run("locatable permit", func(t *testing.T) {
		p := &core.Permit{Latitude: core.Float64(37.792949), Longitude: core.Float64(-122.398099)}
		d, ok := DistanceTo(origin, p)
		assert.True(t, ok)
		assert.InDelta(t, 0.298, d, 0.001)
	})

	t.Run("permit on the equator and prime meridian", func(t *testing.T) {
		p := &core.Permit{Latitude: core.Float64(0), Longitude: core.Float64(0)}
		d, ok := DistanceTo(core.Point{}, p)
		assert.True(t, ok)
		assert.InDelta(t, 0, d, 1e-9)
	})

	t.Run("permit missing a coordinate", func(t *testing.T) {
		_, ok := DistanceTo(origin, &core.Permit{Latitude: core.Float64(37.79)})
		assert.False(t, ok)
	})

	t.Run("nil permit", func(t *testing.T) {
		_, ok := DistanceTo(origin, nil)
		assert.False(t, ok)
	})
}

func TestDistanceBetween(t *testing.T) {
	a := core.Point{Latitude: 37.7955, Longitude: -122.3937}
	b := core.Point{Latitude: 37.7880, Longitude: -122.4075}
	assert.Equal(t, Distance(a.Latitude, a.Longitude, b.Latitude, b.Longitude), DistanceBetween(a, b))
}
