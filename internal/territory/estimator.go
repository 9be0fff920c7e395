package territory

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultBuffer widens the observed spread to cover roaming between
	// recorded points.
	DefaultBuffer = 1.2

	// MinSightings is the smallest set a territory is computed from.
	MinSightings = 3
)

// ErrNoSightings is returned when a computation needs at least one sighting.
var ErrNoSightings = errors.New("at least one sighting is required")

// TooFarApartReason is shown when fewer than MinSightings survive filtering.
const TooFarApartReason = "Some sightings were too far apart for this type of animal. Please add sightings closer together."

// Territory is the inferred roaming area of one animal.
type Territory struct {
	Center       Coordinate `json:"center"`
	RadiusMeters float64    `json:"radiusMeters"`
}

// Estimator runs the territory pipeline against a range policy. The zero
// value is not usable; call NewEstimator. Fields must not change once the
// Estimator is shared between goroutines.
type Estimator struct {
	Policy RangePolicy

	// Buffer multiplies the largest centroid distance before clamping.
	Buffer float64
	// MinRadius keeps the radius positive when all sightings coincide.
	MinRadius float64
	// MinSightings is how many sightings must survive filtering. Values
	// below the package MinSightings are raised to it.
	MinSightings int
}

func NewEstimator(policy RangePolicy) *Estimator {
	return &Estimator{
		Policy:       policy,
		Buffer:       DefaultBuffer,
		MinRadius:    1,
		MinSightings: MinSightings,
	}
}

// Centroid returns the arithmetic mean of the sightings' latitudes and
// longitudes. Flat averaging is accurate enough at roaming scales.
func Centroid(sightings []Sighting) (Coordinate, error) {
	if len(sightings) == 0 {
		return Coordinate{}, ErrNoSightings
	}
	var lat, lng float64
	for _, s := range sightings {
		lat += s.Lat
		lng += s.Lng
	}
	n := float64(len(sightings))
	return Coordinate{Lat: lat / n, Lng: lng / n}, nil
}

// IsAdmissible reports whether candidate lies within the roaming range of
// the centroid of accepted. Anything is admissible into an empty set.
func (e *Estimator) IsAdmissible(candidate Sighting, accepted []Sighting, tag AnimalType) bool {
	return e.Check(candidate, accepted, tag).Admitted
}

// Decision is the outcome of an admission check.
type Decision struct {
	Admitted bool `json:"admitted"`
	// DistanceMeters is the candidate's distance to the accepted centroid.
	DistanceMeters float64 `json:"distanceMeters"`
	MaxRangeMeters float64 `json:"maxRangeMeters"`
	Reason         string  `json:"reason,omitempty"`
}

// Check is IsAdmissible with the figures a caller needs to explain a
// rejection.
func (e *Estimator) Check(candidate Sighting, accepted []Sighting, tag AnimalType) Decision {
	maxRange := e.Policy.MaxRange(tag)
	center, err := Centroid(accepted)
	if err != nil {
		return Decision{Admitted: true, MaxRangeMeters: maxRange}
	}

	d := Decision{
		DistanceMeters: Distance(center, candidate.Coordinate),
		MaxRangeMeters: maxRange,
	}
	d.Admitted = d.DistanceMeters <= maxRange
	if !d.Admitted {
		d.Reason = fmt.Sprintf("This location is too far from other sightings. Maximum range for %s is %.1f km.",
			displayType(tag), maxRange/1000)
	}
	return d
}

// FilterWithinRange keeps, in their original order, the sightings within
// the roaming range of the centroid of the whole list. It is a single pass
// and does not enforce MinSightings.
func (e *Estimator) FilterWithinRange(sightings []Sighting, tag AnimalType) []Sighting {
	center, err := Centroid(sightings)
	if err != nil {
		return []Sighting{}
	}
	maxRange := e.Policy.MaxRange(tag)

	accepted := make([]Sighting, 0, len(sightings))
	for _, s := range sightings {
		if Distance(center, s.Coordinate) <= maxRange {
			accepted = append(accepted, s)
		}
	}
	return accepted
}

// EstimateRadius returns the buffered spread of sightings around their
// centroid, never more than the policy range for tag.
func (e *Estimator) EstimateRadius(sightings []Sighting, tag AnimalType) (float64, error) {
	center, err := Centroid(sightings)
	if err != nil {
		return 0, fmt.Errorf("estimating radius: %w", err)
	}
	return e.radiusAround(center, sightings, tag), nil
}

func (e *Estimator) radiusAround(center Coordinate, sightings []Sighting, tag AnimalType) float64 {
	var spread float64
	for _, s := range sightings {
		spread = math.Max(spread, Distance(center, s.Coordinate))
	}
	radius := math.Max(spread*e.Buffer, e.MinRadius)
	return math.Min(radius, e.Policy.MaxRange(tag))
}

// Estimate is the result of running the full pipeline.
type Estimate struct {
	Accepted  []Sighting `json:"accepted"`
	Dropped   []Sighting `json:"dropped"`
	Territory Territory  `json:"territory"`
	// OK is false when fewer than MinSightings survived; Territory is then
	// the zero value.
	OK bool `json:"ok"`
}

// Reason explains a rejected estimate, or returns "" when OK.
func (est Estimate) Reason() string {
	if est.OK {
		return ""
	}
	return TooFarApartReason
}

// Estimate filters sightings, then computes the center and radius of the
// survivors when enough of them remain.
func (e *Estimator) Estimate(sightings []Sighting, tag AnimalType) Estimate {
	accepted := e.FilterWithinRange(sightings, tag)
	est := Estimate{
		Accepted: accepted,
		Dropped:  dropped(sightings, accepted),
	}
	if len(accepted) < e.minSightings() {
		return est
	}

	// accepted is non-empty here.
	center, _ := Centroid(accepted)
	est.Territory = Territory{
		Center:       center,
		RadiusMeters: e.radiusAround(center, accepted, tag),
	}
	est.OK = true
	return est
}

func (e *Estimator) minSightings() int {
	return max(e.MinSightings, MinSightings)
}

// dropped returns the members of all missing from kept. kept must be an
// order-preserving subsequence of all.
func dropped(all, kept []Sighting) []Sighting {
	out := []Sighting{}
	j := 0
	for _, s := range all {
		if j < len(kept) && kept[j] == s {
			j++
			continue
		}
		out = append(out, s)
	}
	return out
}

func displayType(tag AnimalType) string {
	if t := tag.Normalize(); t != "" {
		return string(t)
	}
	return string(Other)
}
