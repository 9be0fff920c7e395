package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/strayspot/territories/internal/territory"
)

// HealthStatus documents one entry of the /healthz response.
type HealthStatus struct {
	Status    string `json:"status" enum:"ok,error"`
	LatencyMS int64  `json:"latencyMs"`
}

type animalIDPath struct {
	ID string `path:"id" description:"Animal ID (UUID)."`
}

type animalListQuery struct {
	Type string `query:"type" description:"Only animals of this type."`
	BBox string `query:"bbox" description:"minLng,minLat,maxLng,maxLat; keeps animals whose territory overlaps the box."`
}

type updateAnimalInput struct {
	animalIDPath
	AnimalPatch
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Strays API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Stray animal reports with estimated roaming territories.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(map[string]HealthStatus{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/auth/register
	register, _ := r.NewOperationContext(http.MethodPost, "/api/auth/register")
	register.SetSummary("Register")
	register.SetDescription("Creates a user and returns a bearer token.")
	register.AddReqStructure(CredentialsRequest{})
	register.AddRespStructure(AuthResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	register.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	register.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	register.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(register)

	// POST /api/auth/login
	login, _ := r.NewOperationContext(http.MethodPost, "/api/auth/login")
	login.SetSummary("Log in")
	login.SetDescription("Authenticates with email and password and returns a bearer token.")
	login.AddReqStructure(CredentialsRequest{})
	login.AddRespStructure(AuthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	login.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	login.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusTooManyRequests))
	_ = r.AddOperation(login)

	// GET /api/auth/me
	me, _ := r.NewOperationContext(http.MethodGet, "/api/auth/me")
	me.SetSummary("Current user")
	me.SetDescription("Returns the authenticated user. Requires Bearer token.")
	me.AddRespStructure(UserResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	me.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(me)

	// GET /api/territory/ranges
	ranges, _ := r.NewOperationContext(http.MethodGet, "/api/territory/ranges")
	ranges.SetSummary("Roaming ranges")
	ranges.SetDescription("Maximum roaming distance per animal type. Unknown types use the fallback.")
	ranges.AddRespStructure(RangesResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(ranges)

	// POST /api/territory/check
	check, _ := r.NewOperationContext(http.MethodPost, "/api/territory/check")
	check.SetSummary("Check sighting")
	check.SetDescription("Decides whether a candidate sighting lies within range of the centroid of the accepted ones.")
	check.AddReqStructure(CheckRequest{})
	check.AddRespStructure(territory.Decision{}, openapi.WithHTTPStatus(http.StatusOK))
	check.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(check)

	// POST /api/territory/estimate
	estimate, _ := r.NewOperationContext(http.MethodPost, "/api/territory/estimate")
	estimate.SetSummary("Estimate territory")
	estimate.SetDescription("Filters outliers and computes center and radius without saving anything.")
	estimate.AddReqStructure(EstimateRequest{})
	estimate.AddRespStructure(EstimateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	estimate.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(estimate)

	// GET /api/animals
	list, _ := r.NewOperationContext(http.MethodGet, "/api/animals")
	list.SetSummary("List animals")
	list.SetDescription("Returns reported animals, newest first.")
	list.AddReqStructure(animalListQuery{})
	list.AddRespStructure([]Animal{}, openapi.WithHTTPStatus(http.StatusOK))
	list.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(list)

	// GET /api/animals/territories.geojson
	geo, _ := r.NewOperationContext(http.MethodGet, "/api/animals/territories.geojson")
	geo.SetSummary("Territories as GeoJSON")
	geo.SetDescription("FeatureCollection with one point feature per animal; properties carry the radius in meters.")
	geo.AddReqStructure(animalListQuery{})
	geo.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("application/geo+json"))
	_ = r.AddOperation(geo)

	// GET /api/animals/events
	events, _ := r.NewOperationContext(http.MethodGet, "/api/animals/events")
	events.SetSummary("SSE event stream")
	events.SetDescription("Server-Sent Events stream of animal_created, animal_updated and animal_deleted.")
	events.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(events)

	// GET /api/animals/{id}
	get, _ := r.NewOperationContext(http.MethodGet, "/api/animals/{id}")
	get.SetSummary("Get animal")
	get.AddReqStructure(animalIDPath{})
	get.AddRespStructure(Animal{}, openapi.WithHTTPStatus(http.StatusOK))
	get.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(get)

	// POST /api/animals
	create, _ := r.NewOperationContext(http.MethodPost, "/api/animals")
	create.SetSummary("Report animal")
	create.SetDescription("Estimates the territory from at least three sightings and saves the animal. Requires Bearer token.")
	create.AddReqStructure(AnimalRequest{})
	create.AddRespStructure(Animal{}, openapi.WithHTTPStatus(http.StatusCreated))
	create.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	create.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	create.AddRespStructure(RejectionResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(create)

	// PATCH /api/animals/{id}
	update, _ := r.NewOperationContext(http.MethodPatch, "/api/animals/{id}")
	update.SetSummary("Update animal")
	update.SetDescription("Partially updates an animal. New sightings or a new type re-estimate the territory. Requires Bearer token.")
	update.AddReqStructure(updateAnimalInput{})
	update.AddRespStructure(Animal{}, openapi.WithHTTPStatus(http.StatusOK))
	update.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	update.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	update.AddRespStructure(RejectionResponse{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(update)

	// DELETE /api/animals/{id}
	del, _ := r.NewOperationContext(http.MethodDelete, "/api/animals/{id}")
	del.SetSummary("Mark animal found")
	del.SetDescription("Removes the animal and returns the deleted record. Requires Bearer token.")
	del.AddReqStructure(animalIDPath{})
	del.AddRespStructure(Animal{}, openapi.WithHTTPStatus(http.StatusOK))
	del.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	del.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(del)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
