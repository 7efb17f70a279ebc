// Package geo ranks facilities by great-circle distance from a query point.
// It is pure: callers pass coordinates in and get a sorted view back.
package geo

import (
	"fmt"
	"math"
	"sort"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

const (
	// DefaultRadiusKm is the radius used by nearby search when none is given.
	DefaultRadiusKm = 5.0
	// MaxNearbyResults caps the nearby search result set.
	MaxNearbyResults = 20
)

// Point is a WGS84 coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsZero reports whether the point is the (0,0) placeholder used for
// facilities that never got real coordinates.
func (p Point) IsZero() bool {
	return p.Lat == 0 && p.Lng == 0
}

// Validate rejects out-of-range coordinates. NaN and infinities fail the
// range checks, so they are rejected too.
func Validate(lat, lng float64) error {
	if !(lat >= -90 && lat <= 90) {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if !(lng >= -180 && lng <= 180) {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return nil
}

// Distance returns the haversine great-circle distance between a and b in
// kilometers.
func Distance(a, b Point) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return EarthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// Round2 rounds a distance to two decimal places for presentation.
func Round2(km float64) float64 {
	return math.Round(km*100) / 100
}

// Entry pairs an index into the caller's slice with its computed distance.
type Entry struct {
	Index      int
	DistanceKm float64
}

// Rank computes the distance from origin to every point and returns entries
// sorted ascending by distance. Points with missing coordinates come through
// as (0,0) and are ranked like any other point; excluding them is the
// caller's call. The sort is stable so equal distances keep input order.
func Rank(origin Point, points []Point) []Entry {
	entries := make([]Entry, len(points))
	for i, p := range points {
		entries[i] = Entry{Index: i, DistanceKm: Round2(Distance(origin, p))}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DistanceKm < entries[j].DistanceKm
	})
	return entries
}

// WithinRadius filters ranked entries to those at most maxKm away.
func WithinRadius(entries []Entry, maxKm float64) []Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.DistanceKm <= maxKm {
			out = append(out, e)
		}
	}
	return out
}
