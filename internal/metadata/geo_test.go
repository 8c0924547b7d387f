package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Paris to London is roughly 344 km.
	assert.InDelta(t, 344, haversineKm(48.8566, 2.3522, 51.5074, -0.1278), 5)
	assert.Zero(t, haversineKm(37.7749, -122.4194, 37.7749, -122.4194))
}

func TestWithinBoundingBox(t *testing.T) {
	assert.True(t, withinBoundingBox(37.78, -122.42, 37.7749, -122.4194, 10))
	assert.False(t, withinBoundingBox(40.71, -74.00, 37.7749, -122.4194, 10))
}
