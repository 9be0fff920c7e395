package territory

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaxRangeFallback(t *testing.T) {
	p := DefaultRangePolicy()

	assert.Equal(t, 2000.0, p.MaxRange(Dog))
	assert.Equal(t, 1500.0, p.MaxRange(Cat))
	assert.Equal(t, 2000.0, p.MaxRange(" DOG "))

	for _, tag := range []AnimalType{"ferret", "", "horse", "other "} {
		assert.Equal(t, p.MaxRange(Other), p.MaxRange(tag), "tag %q", tag)
	}
}

func TestNewRangePolicy(t *testing.T) {
	tests := []struct {
		name    string
		ranges  map[AnimalType]float64
		wantErr error
	}{
		{
			name:   "valid",
			ranges: map[AnimalType]float64{"Dog": 2500, Other: 800},
		},
		{
			name:    "missing fallback",
			ranges:  map[AnimalType]float64{Dog: 2000, Cat: 1500},
			wantErr: ErrMissingFallback,
		},
		{
			name:    "empty",
			ranges:  nil,
			wantErr: ErrMissingFallback,
		},
		{
			name:    "zero range",
			ranges:  map[AnimalType]float64{Dog: 0, Other: 1000},
			wantErr: ErrInvalidRange,
		},
		{
			name:    "negative range",
			ranges:  map[AnimalType]float64{Other: -1},
			wantErr: ErrInvalidRange,
		},
		{
			name:    "same type in different case",
			ranges:  map[AnimalType]float64{"Dog": 500, "dog": 2000, Other: 1000},
			wantErr: ErrDuplicateType,
		},
		{
			name:    "NaN range",
			ranges:  map[AnimalType]float64{Other: math.NaN()},
			wantErr: ErrInvalidRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewRangePolicy(tt.ranges)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 2500.0, p.MaxRange(Dog))
			assert.Equal(t, 800.0, p.MaxRange("lizard"))
			assert.Equal(t, []AnimalType{Dog, Other}, p.Tags())
		})
	}
}

func TestNewRangePolicyCopiesInput(t *testing.T) {
	in := map[AnimalType]float64{Other: 1000}
	p, err := NewRangePolicy(in)
	require.NoError(t, err)

	in[Other] = 5
	assert.Equal(t, 1000.0, p.MaxRange(Other))
}

func writePolicy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ranges.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadRangePolicy(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := writePolicy(t, "ranges:\n  dog: 3000\n  cat: 1200\n  other: 900\n")

		p, err := LoadRangePolicy(path)
		require.NoError(t, err)
		assert.Equal(t, 3000.0, p.MaxRange(Dog))
		assert.Equal(t, 1200.0, p.MaxRange(Cat))
		assert.Equal(t, 900.0, p.MaxRange("goat"))
	})

	t.Run("missing fallback", func(t *testing.T) {
		path := writePolicy(t, "ranges:\n  dog: 3000\n")

		_, err := LoadRangePolicy(path)
		assert.ErrorIs(t, err, ErrMissingFallback)
	})

	t.Run("duplicate type", func(t *testing.T) {
		path := writePolicy(t, "ranges:\n  Dog: 500\n  dog: 2000\n  other: 900\n")

		_, err := LoadRangePolicy(path)
		assert.ErrorIs(t, err, ErrDuplicateType)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writePolicy(t, "ranges: [dog\n")

		_, err := LoadRangePolicy(path)
		assert.ErrorContains(t, err, "parsing range policy YAML")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRangePolicy(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "not found")
	})
}
