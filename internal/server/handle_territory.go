package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/strayspot/territories/internal/territory"
)

// SightingInput is one reported position. Date accepts YYYY-MM-DD or
// RFC 3339 and defaults to the time of the request.
type SightingInput struct {
	Lat  float64 `json:"lat" validate:"latitude"`
	Lng  float64 `json:"lng" validate:"longitude"`
	Date string  `json:"date,omitempty" validate:"max=40"`
}

func (in SightingInput) sighting(now time.Time) (territory.Sighting, error) {
	s := territory.Sighting{
		Coordinate: territory.Coordinate{Lat: in.Lat, Lng: in.Lng},
		ObservedAt: now.UTC(),
	}
	if in.Date == "" {
		return s, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, in.Date); err == nil {
			s.ObservedAt = t.UTC()
			return s, nil
		}
	}
	return territory.Sighting{}, fmt.Errorf("invalid sighting date %q", in.Date)
}

func toSightings(in []SightingInput, now time.Time) ([]territory.Sighting, error) {
	out := make([]territory.Sighting, 0, len(in))
	for _, s := range in {
		sg, err := s.sighting(now)
		if err != nil {
			return nil, err
		}
		out = append(out, sg)
	}
	return out, nil
}

// RangeEntry is one row of the range policy.
type RangeEntry struct {
	AnimalType     territory.AnimalType `json:"animalType"`
	MaxRangeMeters float64              `json:"maxRangeMeters"`
}

type RangesResponse struct {
	Ranges   []RangeEntry         `json:"ranges"`
	Fallback territory.AnimalType `json:"fallback"`
}

// CheckRequest asks whether a candidate fits the accepted sightings. With
// replaceIndex set the candidate is a new position for that sighting.
type CheckRequest struct {
	AnimalType   string          `json:"animalType" validate:"max=32"`
	Accepted     []SightingInput `json:"accepted" validate:"max=500,dive"`
	Candidate    SightingInput   `json:"candidate"`
	ReplaceIndex *int            `json:"replaceIndex,omitempty" validate:"omitempty,min=0"`
}

type EstimateRequest struct {
	AnimalType string          `json:"animalType" validate:"max=32"`
	Sightings  []SightingInput `json:"sightings" validate:"required,max=500,dive"`
}

type EstimateResponse struct {
	OK             bool                 `json:"ok"`
	Reason         string               `json:"reason,omitempty"`
	MaxRangeMeters float64              `json:"maxRangeMeters"`
	Territory      *territory.Territory `json:"territory,omitempty"`
	Accepted       []territory.Sighting `json:"accepted"`
	Dropped        []territory.Sighting `json:"dropped"`
}

func newEstimateResponse(e *territory.Estimator, tag territory.AnimalType, est territory.Estimate) EstimateResponse {
	resp := EstimateResponse{
		OK:             est.OK,
		Reason:         est.Reason(),
		MaxRangeMeters: e.Policy.MaxRange(tag),
		Accepted:       est.Accepted,
		Dropped:        est.Dropped,
	}
	if est.OK {
		t := est.Territory
		resp.Territory = &t
	}
	return resp
}

func handleRanges(policy territory.RangePolicy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tags := policy.Tags()
		resp := RangesResponse{Ranges: make([]RangeEntry, 0, len(tags)), Fallback: territory.Other}
		for _, tag := range tags {
			resp.Ranges = append(resp.Ranges, RangeEntry{AnimalType: tag, MaxRangeMeters: policy.MaxRange(tag)})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleCheck(e *territory.Estimator, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckRequest
		if msg, ok := decodeValid(r, &req); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		now := time.Now()
		accepted, err := toSightings(req.Accepted, now)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		candidate, err := req.Candidate.sighting(now)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		tag := territory.AnimalType(req.AnimalType)
		sess := territory.Session{AnimalType: tag, Sightings: accepted}

		var d territory.Decision
		if req.ReplaceIndex != nil {
			_, d, err = sess.Move(e, *req.ReplaceIndex, candidate.Coordinate)
			if err != nil {
				writeError(w, http.StatusBadRequest, "replaceIndex is out of range")
				return
			}
		} else {
			_, d = sess.Add(e, candidate)
		}

		m.observeCheck(tag, d)
		writeJSON(w, http.StatusOK, d)
	}
}

func handleEstimate(e *territory.Estimator, m *Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EstimateRequest
		if msg, ok := decodeValid(r, &req); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		sightings, err := toSightings(req.Sightings, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		tag := territory.AnimalType(req.AnimalType)
		est := e.Estimate(sightings, tag)
		m.observeEstimate(tag, est)
		writeJSON(w, http.StatusOK, newEstimateResponse(e, tag, est))
	}
}
