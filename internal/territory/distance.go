// Package territory estimates where a stray animal roams from a list of
// independently reported sightings.
//
// Every function here is a pure computation over its arguments. Coordinates
// are assumed to be well formed (latitude in [-90, 90], longitude in
// [-180, 180]); callers validate them at their own boundary.
package territory

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// EarthRadius is the mean Earth radius in meters used by Distance.
const EarthRadius = 6371000.0

// Coordinate is a WGS84 latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// Point returns c as an orb.Point, which orders longitude first.
func (c Coordinate) Point() orb.Point {
	return orb.Point{c.Lng, c.Lat}
}

// CoordinateFromPoint is the inverse of Coordinate.Point.
func CoordinateFromPoint(p orb.Point) Coordinate {
	return Coordinate{Lat: p.Lat(), Lng: p.Lon()}
}

// Sighting is one reported observation of an animal.
type Sighting struct {
	Coordinate
	ObservedAt time.Time `json:"date"`
}

// Distance returns the great-circle distance in meters between a and b
// using the haversine formula on a spherical Earth.
func Distance(a, b Coordinate) float64 {
	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := degreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Rounding can push h just past 1 for antipodal points.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadius * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func degreesToRadians(d float64) float64 {
	return d * math.Pi / 180
}
