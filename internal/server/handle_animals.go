package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/strayspot/territories/internal/territory"
)

// AnimalRequest is the request body for POST /api/animals.
type AnimalRequest struct {
	AnimalName   string          `json:"animalName" validate:"max=100"`
	AnimalType   string          `json:"animalType" validate:"required,max=32"`
	Breed        string          `json:"breed" validate:"max=100"`
	Color        string          `json:"color" validate:"max=100"`
	Size         string          `json:"size" validate:"max=32"`
	HealthStatus string          `json:"healthStatus" validate:"max=100"`
	Incident     string          `json:"incident" validate:"max=2000"`
	ColorCode    string          `json:"colorCode" validate:"omitempty,hexcolor"`
	Sightings    []SightingInput `json:"sightings" validate:"required,min=3,max=500,dive"`
}

// AnimalPatch is the request body for PATCH /api/animals/{id}. Absent
// fields are left unchanged. Sending sightings or a new animalType
// re-estimates the territory.
type AnimalPatch struct {
	AnimalName   *string         `json:"animalName" validate:"omitempty,max=100"`
	AnimalType   *string         `json:"animalType" validate:"omitempty,min=1,max=32"`
	Breed        *string         `json:"breed" validate:"omitempty,max=100"`
	Color        *string         `json:"color" validate:"omitempty,max=100"`
	Size         *string         `json:"size" validate:"omitempty,max=32"`
	HealthStatus *string         `json:"healthStatus" validate:"omitempty,max=100"`
	Incident     *string         `json:"incident" validate:"omitempty,max=2000"`
	ColorCode    *string         `json:"colorCode" validate:"omitempty,hexcolor"`
	Sightings    []SightingInput `json:"sightings" validate:"omitempty,min=3,max=500,dive"`
}

// RejectionResponse is returned with 422 when the sightings cannot form a
// territory.
type RejectionResponse struct {
	Error    string               `json:"error"`
	Accepted []territory.Sighting `json:"accepted"`
	Dropped  []territory.Sighting `json:"dropped"`
}

// rejectedError carries a failed estimate out of a store update.
type rejectedError struct {
	est territory.Estimate
}

func (e *rejectedError) Error() string { return e.est.Reason() }

func writeRejection(w http.ResponseWriter, est territory.Estimate) {
	writeJSON(w, http.StatusUnprocessableEntity, RejectionResponse{
		Error:    est.Reason(),
		Accepted: est.Accepted,
		Dropped:  est.Dropped,
	})
}

func randomColorCode() string {
	return fmt.Sprintf("#%06X", rand.IntN(0x1000000))
}

// animalFilter reads the type and bbox query parameters.
func animalFilter(r *http.Request) (AnimalFilter, error) {
	var f AnimalFilter
	f.Type = territory.AnimalType(r.URL.Query().Get("type")).Normalize()

	raw := r.URL.Query().Get("bbox")
	if raw == "" {
		return f, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return f, errors.New("bbox must be minLng,minLat,maxLng,maxLat")
	}
	var v [4]float64
	for i, p := range parts {
		n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return f, fmt.Errorf("bbox value %q is not a number", p)
		}
		v[i] = n
	}
	b := orb.Bound{Min: orb.Point{v[0], v[1]}, Max: orb.Point{v[2], v[3]}}
	if b.Min.Lon() > b.Max.Lon() || b.Min.Lat() > b.Max.Lat() {
		return f, errors.New("bbox minimum must not exceed maximum")
	}
	f.Bound = &b
	return f, nil
}

func handleListAnimals(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := animalFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		animals, err := store.ListAnimals(r.Context(), f)
		if err != nil {
			logger.Error("listing animals", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, animals)
	}
}

func handleTerritoriesGeoJSON(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := animalFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		animals, err := store.ListAnimals(r.Context(), f)
		if err != nil {
			logger.Error("listing animals", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		fc := geojson.NewFeatureCollection()
		for _, a := range animals {
			feat := a.Territory().Feature()
			feat.ID = a.ID
			feat.Properties["animalName"] = a.AnimalName
			feat.Properties["animalType"] = string(a.AnimalType)
			feat.Properties["healthStatus"] = a.HealthStatus
			feat.Properties["colorCode"] = a.ColorCode
			feat.Properties["lastSeen"] = a.LastSeen.Format(time.RFC3339)
			fc.Append(feat)
		}

		data, err := json.Marshal(fc)
		if err != nil {
			logger.Error("encoding geojson", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
	}
}

func handleGetAnimal(logger *slog.Logger, store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.GetAnimal(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "animal not found")
			return
		}
		if err != nil {
			logger.Error("loading animal", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func handleCreateAnimal(logger *slog.Logger, store Store, e *territory.Estimator, m *Metrics, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnimalRequest
		if msg, ok := decodeValid(r, &req); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		sightings, err := toSightings(req.Sightings, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		tag := territory.AnimalType(req.AnimalType).Normalize()
		if tag == "" {
			writeError(w, http.StatusBadRequest, "animalType is required")
			return
		}
		est := e.Estimate(sightings, tag)
		m.observeEstimate(tag, est)
		if !est.OK {
			writeRejection(w, est)
			return
		}

		a := Animal{
			AnimalName:   strings.TrimSpace(req.AnimalName),
			AnimalType:   tag,
			Breed:        req.Breed,
			Color:        req.Color,
			Size:         req.Size,
			HealthStatus: req.HealthStatus,
			Incident:     req.Incident,
			ColorCode:    req.ColorCode,
			CreatedBy:    userFrom(r).ID,
		}
		if a.ColorCode == "" {
			a.ColorCode = randomColorCode()
		}
		a.setEstimate(est)

		created, err := store.CreateAnimal(r.Context(), a)
		if err != nil {
			logger.Error("creating animal", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("animal reported", "id", created.ID, "type", created.AnimalType, "radius_m", created.Radius)
		broker.Publish(AnimalEvent{Type: eventAnimalCreated, ID: created.ID, Animal: &created})
		writeJSON(w, http.StatusCreated, created)
	}
}

func handleUpdateAnimal(logger *slog.Logger, store Store, e *territory.Estimator, m *Metrics, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AnimalPatch
		if msg, ok := decodeValid(r, &req); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		if req.AnimalType != nil && territory.AnimalType(*req.AnimalType).Normalize() == "" {
			writeError(w, http.StatusBadRequest, "animalType must not be blank")
			return
		}

		var sightings []territory.Sighting
		if req.Sightings != nil {
			var err error
			sightings, err = toSightings(req.Sightings, time.Now())
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		updated, err := store.UpdateAnimal(r.Context(), chi.URLParam(r, "id"), func(a *Animal) error {
			req.apply(a)
			if req.Sightings == nil && req.AnimalType == nil {
				return nil
			}
			if sightings == nil {
				sightings = a.Sightings
			}
			est := e.Estimate(sightings, a.AnimalType)
			m.observeEstimate(a.AnimalType, est)
			if !est.OK {
				return &rejectedError{est: est}
			}
			a.setEstimate(est)
			return nil
		})

		var rejected *rejectedError
		switch {
		case errors.As(err, &rejected):
			writeRejection(w, rejected.est)
			return
		case errors.Is(err, ErrNotFound):
			writeError(w, http.StatusNotFound, "animal not found")
			return
		case err != nil:
			logger.Error("updating animal", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		broker.Publish(AnimalEvent{Type: eventAnimalUpdated, ID: updated.ID, Animal: &updated})
		writeJSON(w, http.StatusOK, updated)
	}
}

func (p AnimalPatch) apply(a *Animal) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.AnimalName, p.AnimalName)
	set(&a.Breed, p.Breed)
	set(&a.Color, p.Color)
	set(&a.Size, p.Size)
	set(&a.HealthStatus, p.HealthStatus)
	set(&a.Incident, p.Incident)
	set(&a.ColorCode, p.ColorCode)
	if p.AnimalType != nil {
		a.AnimalType = territory.AnimalType(*p.AnimalType).Normalize()
	}
}

func handleDeleteAnimal(logger *slog.Logger, store Store, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := store.DeleteAnimal(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "animal not found")
			return
		}
		if err != nil {
			logger.Error("deleting animal", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		logger.Info("animal removed", "id", a.ID)
		broker.Publish(AnimalEvent{Type: eventAnimalDeleted, ID: a.ID})
		writeJSON(w, http.StatusOK, a)
	}
}
