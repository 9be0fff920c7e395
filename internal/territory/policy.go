package territory

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// AnimalType tags an animal for range lookups, e.g. "dog" or "cat".
type AnimalType string

const (
	Dog   AnimalType = "dog"
	Cat   AnimalType = "cat"
	Other AnimalType = "other"
)

// Normalize lower-cases and trims t so "Dog " and "dog" share a policy entry.
func (t AnimalType) Normalize() AnimalType {
	return AnimalType(strings.ToLower(strings.TrimSpace(string(t))))
}

var (
	ErrMissingFallback = errors.New(`range policy has no "other" entry`)
	ErrInvalidRange    = errors.New("range must be a positive number of meters")
	ErrDuplicateType   = errors.New("animal type listed more than once")
)

// RangePolicy maps animal types to their maximum roaming range in meters.
// Build one with NewRangePolicy; the table is never modified afterwards, so
// a single value can be shared by concurrent readers.
type RangePolicy struct {
	ranges map[AnimalType]float64
}

// NewRangePolicy validates ranges and copies them into a policy. The Other
// entry is mandatory because unknown types fall back to it.
func NewRangePolicy(ranges map[AnimalType]float64) (RangePolicy, error) {
	table := make(map[AnimalType]float64, len(ranges))
	for tag, meters := range ranges {
		if !(meters > 0) {
			return RangePolicy{}, fmt.Errorf("%w: %q has %v", ErrInvalidRange, tag, meters)
		}
		key := tag.Normalize()
		if _, ok := table[key]; ok {
			return RangePolicy{}, fmt.Errorf("%w: %q", ErrDuplicateType, key)
		}
		table[key] = meters
	}
	if _, ok := table[Other]; !ok {
		return RangePolicy{}, ErrMissingFallback
	}
	return RangePolicy{ranges: table}, nil
}

// DefaultRangePolicy is the built-in table used when no policy file is
// configured.
func DefaultRangePolicy() RangePolicy {
	return RangePolicy{ranges: map[AnimalType]float64{
		Dog:   2000,
		Cat:   1500,
		Other: 1000,
	}}
}

// MaxRange returns the roaming limit for tag, falling back to Other.
func (p RangePolicy) MaxRange(tag AnimalType) float64 {
	if meters, ok := p.ranges[tag.Normalize()]; ok {
		return meters
	}
	return p.ranges[Other]
}

// Tags returns the configured animal types in sorted order.
func (p RangePolicy) Tags() []AnimalType {
	tags := make([]AnimalType, 0, len(p.ranges))
	for tag := range p.ranges {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

type policyFile struct {
	Ranges map[AnimalType]float64 `yaml:"ranges"`
}

// LoadRangePolicy reads a YAML policy of the form
//
//	ranges:
//	  dog: 2000
//	  other: 1000
func LoadRangePolicy(path string) (RangePolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RangePolicy{}, fmt.Errorf("range policy file not found: %s", path)
		}
		return RangePolicy{}, fmt.Errorf("reading range policy: %w", err)
	}

	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return RangePolicy{}, fmt.Errorf("parsing range policy YAML: %w", err)
	}

	p, err := NewRangePolicy(f.Ranges)
	if err != nil {
		return RangePolicy{}, fmt.Errorf("validating range policy %s: %w", path, err)
	}
	return p, nil
}
