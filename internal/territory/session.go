package territory

import (
	"errors"
	"fmt"
	"slices"
)

var ErrIndexOutOfRange = errors.New("sighting index out of range")

// Session is the working set of sightings for one animal while a user is
// still placing points. It is a value: every method returns a new Session
// and leaves the receiver untouched, so callers that share a Session across
// goroutines only need to serialize their own assignments.
type Session struct {
	AnimalType AnimalType `json:"animalType"`
	Sightings  []Sighting `json:"sightings"`
}

func NewSession(tag AnimalType) Session {
	return Session{AnimalType: tag}
}

// Add appends s when it is admissible against the current sightings.
// A rejected sighting leaves the returned Session equal to the receiver.
func (s Session) Add(e *Estimator, sighting Sighting) (Session, Decision) {
	d := e.Check(sighting, s.Sightings, s.AnimalType)
	if !d.Admitted {
		return s, d
	}
	next := s.clone()
	next.Sightings = append(next.Sightings, sighting)
	return next, d
}

// Move relocates sighting i to c, keeping its observation date. The new
// location is checked against every other sighting, not against the one
// being moved.
func (s Session) Move(e *Estimator, i int, c Coordinate) (Session, Decision, error) {
	if i < 0 || i >= len(s.Sightings) {
		return s, Decision{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.Sightings))
	}

	moved := Sighting{Coordinate: c, ObservedAt: s.Sightings[i].ObservedAt}
	others := slices.Delete(slices.Clone(s.Sightings), i, i+1)

	d := e.Check(moved, others, s.AnimalType)
	if !d.Admitted {
		return s, d, nil
	}
	next := s.clone()
	next.Sightings[i] = moved
	return next, d, nil
}

// Remove drops sighting i.
func (s Session) Remove(i int) (Session, error) {
	if i < 0 || i >= len(s.Sightings) {
		return s, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(s.Sightings))
	}
	next := s.clone()
	next.Sightings = slices.Delete(next.Sightings, i, i+1)
	return next, nil
}

// Preview returns the territory drawn while the user is still editing. It
// uses the unfiltered sightings and needs at least MinSightings of them.
func (s Session) Preview(e *Estimator) (Territory, bool) {
	if len(s.Sightings) < e.minSightings() {
		return Territory{}, false
	}
	center, err := Centroid(s.Sightings)
	if err != nil {
		return Territory{}, false
	}
	return Territory{Center: center, RadiusMeters: e.radiusAround(center, s.Sightings, s.AnimalType)}, true
}

// Finalize runs the full pipeline over the session's sightings.
func (s Session) Finalize(e *Estimator) Estimate {
	return e.Estimate(s.Sightings, s.AnimalType)
}

func (s Session) clone() Session {
	return Session{AnimalType: s.AnimalType, Sightings: slices.Clone(s.Sightings)}
}
