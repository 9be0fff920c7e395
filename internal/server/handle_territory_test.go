package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/strayspot/territories/internal/territory"
)

func TestRanges(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/territory/ranges", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp RangesResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.Fallback != territory.Other {
		t.Errorf("fallback = %q, want other", resp.Fallback)
	}
	want := map[territory.AnimalType]float64{"cat": 1500, "dog": 2000, "other": 1000}
	if len(resp.Ranges) != len(want) {
		t.Fatalf("got %d ranges, want %d", len(resp.Ranges), len(want))
	}
	for _, r := range resp.Ranges {
		if want[r.AnimalType] != r.MaxRangeMeters {
			t.Errorf("%s = %v, want %v", r.AnimalType, r.MaxRangeMeters, want[r.AnimalType])
		}
	}
}

func TestCheck(t *testing.T) {
	env := newTestEnv(t)
	cluster := []SightingInput{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.001}}

	tests := []struct {
		name       string
		req        CheckRequest
		wantCode   int
		wantAdmit  bool
		wantReason string
	}{
		{
			name:      "first sighting is always admitted",
			req:       CheckRequest{AnimalType: "cat", Candidate: SightingInput{Lat: 45, Lng: 45}},
			wantCode:  http.StatusOK,
			wantAdmit: true,
		},
		{
			name:      "near the cluster",
			req:       CheckRequest{AnimalType: "dog", Accepted: cluster, Candidate: SightingInput{Lat: 0.001, Lng: 0}},
			wantCode:  http.StatusOK,
			wantAdmit: true,
		},
		{
			name:       "too far for a cat",
			req:        CheckRequest{AnimalType: "Cat", Accepted: cluster, Candidate: SightingInput{Lat: 0, Lng: 0.02}},
			wantCode:   http.StatusOK,
			wantReason: "Maximum range for cat is 1.5 km.",
		},
		{
			name:       "unknown type uses the fallback",
			req:        CheckRequest{AnimalType: "ferret", Accepted: cluster, Candidate: SightingInput{Lat: 0, Lng: 0.012}},
			wantCode:   http.StatusOK,
			wantReason: "Maximum range for ferret is 1.0 km.",
		},
		{
			name:     "latitude out of bounds",
			req:      CheckRequest{AnimalType: "dog", Candidate: SightingInput{Lat: 91, Lng: 0}},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad date",
			req:      CheckRequest{AnimalType: "dog", Candidate: SightingInput{Lat: 1, Lng: 1, Date: "yesterday"}},
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/territory/check", "", tt.req)
			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var d territory.Decision
			json.NewDecoder(w.Body).Decode(&d)
			if d.Admitted != tt.wantAdmit {
				t.Errorf("admitted = %v, want %v", d.Admitted, tt.wantAdmit)
			}
			if !strings.Contains(d.Reason, tt.wantReason) {
				t.Errorf("reason = %q, want %q", d.Reason, tt.wantReason)
			}
		})
	}
}

func TestCheckReplaceIndex(t *testing.T) {
	env := newTestEnv(t)
	accepted := []SightingInput{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.010}}

	// Against the first sighting alone the new position is 1.78 km away.
	idx := 1
	w := env.do(t, http.MethodPost, "/api/territory/check", "", CheckRequest{
		AnimalType: "cat", Accepted: accepted, Candidate: SightingInput{Lat: 0, Lng: 0.016}, ReplaceIndex: &idx,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var d territory.Decision
	json.NewDecoder(w.Body).Decode(&d)
	if d.Admitted {
		t.Errorf("expected move to be rejected, distance %v", d.DistanceMeters)
	}

	idx = 2
	w = env.do(t, http.MethodPost, "/api/territory/check", "", CheckRequest{
		AnimalType: "cat", Accepted: accepted, Candidate: SightingInput{Lat: 0, Lng: 0}, ReplaceIndex: &idx,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("out of range index: expected 400, got %d", w.Code)
	}
}

func TestEstimate(t *testing.T) {
	env := newTestEnv(t)

	t.Run("territory", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/territory/estimate", "", EstimateRequest{
			AnimalType: "dog",
			Sightings: []SightingInput{
				{Lat: 0, Lng: 0, Date: "2025-01-01"},
				{Lat: 0.0005, Lng: 0, Date: "2025-01-02"},
				{Lat: 0, Lng: 0.0005, Date: "2025-01-03T10:00:00Z"},
				{Lat: 0.0005, Lng: 0.0005},
			},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp EstimateResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if !resp.OK || resp.Territory == nil {
			t.Fatalf("expected territory, got %+v", resp)
		}
		if got := resp.Territory.Center; got.Lat != 0.00025 || got.Lng != 0.00025 {
			t.Errorf("center = %+v, want 0.00025/0.00025", got)
		}
		if resp.Territory.RadiusMeters <= 0 || resp.Territory.RadiusMeters > 2000 {
			t.Errorf("radius = %v", resp.Territory.RadiusMeters)
		}
		if resp.MaxRangeMeters != 2000 {
			t.Errorf("maxRange = %v, want 2000", resp.MaxRangeMeters)
		}
		if len(resp.Accepted) != 4 || len(resp.Dropped) != 0 {
			t.Errorf("accepted %d dropped %d", len(resp.Accepted), len(resp.Dropped))
		}
	})

	t.Run("too far apart", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/territory/estimate", "", EstimateRequest{
			AnimalType: "cat",
			Sightings:  []SightingInput{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 0.5}, {Lat: 0.5, Lng: 0}},
		})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
		}
		var resp EstimateResponse
		json.NewDecoder(w.Body).Decode(&resp)
		if resp.OK || resp.Territory != nil {
			t.Fatalf("expected rejection, got %+v", resp)
		}
		if resp.Reason != territory.TooFarApartReason {
			t.Errorf("reason = %q", resp.Reason)
		}
		if len(resp.Dropped) != 3 {
			t.Errorf("dropped = %d, want 3", len(resp.Dropped))
		}
	})

	t.Run("missing sightings", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/territory/estimate", "", EstimateRequest{AnimalType: "cat"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", w.Code)
		}
	})
}
