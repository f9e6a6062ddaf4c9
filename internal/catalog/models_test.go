package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	p := Product{ID: "treat", Name: "Festlåda", GrossPrice: 39500, MomsRate: 12}
	p.Normalize()

	assert.Equal(t, int64(35268), p.NetPrice) // 39500*100/112 = 35267.857..
	assert.Equal(t, int64(4232), p.MomsAmount)
	require.Equal(t, p.GrossPrice, p.NetPrice+p.MomsAmount)
	for z, entry := range p.Delivery {
		assert.Equal(t, z, entry.Zone)
	}
}

func TestZoneEntry(t *testing.T) {
	p := Product{}
	p.Delivery[2] = ZonePrice{Zone: 2, Deliverable: true, Price: 5000}

	entry, ok := p.ZoneEntry(2)
	require.True(t, ok)
	assert.Equal(t, int64(5000), entry.Price)

	_, ok = p.ZoneEntry(4)
	assert.False(t, ok)
	_, ok = p.ZoneEntry(-1)
	assert.False(t, ok)
}
