package server

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/strayspot/territories/internal/territory"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Animal is a reported stray together with its estimated territory.
type Animal struct {
	ID           string               `json:"id"`
	AnimalName   string               `json:"animalName"`
	AnimalType   territory.AnimalType `json:"animalType"`
	Breed        string               `json:"breed"`
	Color        string               `json:"color"`
	Size         string               `json:"size"`
	HealthStatus string               `json:"healthStatus"`
	Incident     string               `json:"incident"`
	LastSeen     time.Time            `json:"lastSeen"`
	Latitude     float64              `json:"latitude"`
	Longitude    float64              `json:"longitude"`
	Radius       float64              `json:"radius"`
	ColorCode    string               `json:"colorCode"`
	Sightings    []territory.Sighting `json:"sightings"`
	CreatedBy    string               `json:"createdBy"`
	CreatedAt    string               `json:"createdAt"`
	UpdatedAt    string               `json:"updatedAt"`
}

func (a Animal) Territory() territory.Territory {
	return territory.Territory{
		Center:       territory.Coordinate{Lat: a.Latitude, Lng: a.Longitude},
		RadiusMeters: a.Radius,
	}
}

// setEstimate copies an accepted estimate onto the record.
func (a *Animal) setEstimate(est territory.Estimate) {
	a.Latitude = est.Territory.Center.Lat
	a.Longitude = est.Territory.Center.Lng
	a.Radius = est.Territory.RadiusMeters
	a.Sightings = est.Accepted
	a.LastSeen = time.Time{}
	for _, s := range est.Accepted {
		if s.ObservedAt.After(a.LastSeen) {
			a.LastSeen = s.ObservedAt
		}
	}
}

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	CreatedAt    string `json:"createdAt"`
}

// AnimalFilter narrows ListAnimals. Zero values match everything.
type AnimalFilter struct {
	Type territory.AnimalType
	// Bound keeps animals whose territory overlaps it.
	Bound *orb.Bound
}

type Store interface {
	ListAnimals(ctx context.Context, f AnimalFilter) ([]Animal, error)
	GetAnimal(ctx context.Context, id string) (Animal, error)
	CreateAnimal(ctx context.Context, a Animal) (Animal, error)
	UpdateAnimal(ctx context.Context, id string, fn func(*Animal) error) (Animal, error)
	DeleteAnimal(ctx context.Context, id string) (Animal, error)
	CountAnimals(ctx context.Context) (int, error)

	CreateUser(ctx context.Context, email, passwordHash string) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
}
