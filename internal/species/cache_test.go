package species

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aviantrail/tripplanner/internal/core"
	"github.com/aviantrail/tripplanner/internal/model"
)

func TestMemoryCache_SetThenGet(t *testing.T) {
	c := newMemoryCache()
	_, ok := c.Get("northern cardinal")
	assert.False(t, ok)

	c.Set("northern cardinal", model.TargetSpecies{CommonName: "Northern Cardinal", SpeciesCode: "norcar"})
	ts, ok := c.Get("northern cardinal")
	assert.True(t, ok)
	assert.Equal(t, "norcar", ts.SpeciesCode)
}

func TestRedisCache_UnreachableServer_FallsBackToMemory(t *testing.T) {
	c := NewRedisCache("redis://127.0.0.1:1/0", core.NoOpLogger{})

	c.Set("northern cardinal", model.TargetSpecies{CommonName: "Northern Cardinal", SpeciesCode: "norcar"})
	ts, ok := c.Get("northern cardinal")

	assert.True(t, ok)
	assert.Equal(t, "norcar", ts.SpeciesCode)
}

func TestRedisCache_InvalidURL_FallsBackToMemory(t *testing.T) {
	c := NewRedisCache("not-a-valid-url", core.NoOpLogger{})
	assert.Nil(t, c.client)

	c.Set("bald eagle", model.TargetSpecies{SpeciesCode: "baleag"})
	ts, ok := c.Get("bald eagle")
	assert.True(t, ok)
	assert.Equal(t, "baleag", ts.SpeciesCode)
}
