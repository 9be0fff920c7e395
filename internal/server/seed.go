package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/strayspot/territories/internal/territory"
)

const (
	demoEmail    = "demo@strays.local"
	demoPassword = "changeme123"
)

type demoAnimal struct {
	name, breed, color, health string
	tag                        territory.AnimalType
	points                     [][2]float64
}

var demoAnimals = []demoAnimal{
	{
		name: "Canela", breed: "Mixed", color: "brown", health: "Healthy", tag: territory.Dog,
		points: [][2]float64{{-12.1211, -77.0297}, {-12.1225, -77.0281}, {-12.1198, -77.0312}, {-12.1231, -77.0305}},
	},
	{
		name: "Michi", breed: "Tabby", color: "grey", health: "Injured paw", tag: territory.Cat,
		points: [][2]float64{{-12.1464, -77.0219}, {-12.1470, -77.0226}, {-12.1458, -77.0230}},
	},
	{
		name: "Paco", breed: "Parrot", color: "green", health: "Unknown", tag: territory.Other,
		points: [][2]float64{{-12.0464, -77.0428}, {-12.0471, -77.0437}, {-12.0455, -77.0441}},
	},
}

// SeedDemo creates a demo user and a few animals around Lima if the
// database has no animals yet.
func SeedDemo(ctx context.Context, logger *slog.Logger, store Store, e *territory.Estimator) error {
	n, err := store.CountAnimals(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	u, err := store.UserByEmail(ctx, demoEmail)
	if errors.Is(err, ErrNotFound) {
		hash, herr := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
		if herr != nil {
			return herr
		}
		u, err = store.CreateUser(ctx, demoEmail, string(hash))
	}
	if err != nil {
		return err
	}

	day := time.Now().UTC().Truncate(24 * time.Hour)
	for _, d := range demoAnimals {
		sightings := make([]territory.Sighting, len(d.points))
		for i, p := range d.points {
			sightings[i] = territory.Sighting{
				Coordinate: territory.Coordinate{Lat: p[0], Lng: p[1]},
				ObservedAt: day.AddDate(0, 0, i-len(d.points)),
			}
		}

		est := e.Estimate(sightings, d.tag)
		if !est.OK {
			return fmt.Errorf("demo animal %s: %s", d.name, est.Reason())
		}

		a := Animal{
			AnimalName:   d.name,
			AnimalType:   d.tag,
			Breed:        d.breed,
			Color:        d.color,
			HealthStatus: d.health,
			ColorCode:    randomColorCode(),
			CreatedBy:    u.ID,
		}
		a.setEstimate(est)
		if _, err := store.CreateAnimal(ctx, a); err != nil {
			return err
		}
	}

	logger.Info("demo data seeded", "animals", len(demoAnimals), "user", demoEmail)
	return nil
}
