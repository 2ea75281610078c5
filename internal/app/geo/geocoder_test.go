package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"googlemaps.github.io/maps"
)

func TestNormalizeComponents(t *testing.T) {
	components := []maps.AddressComponent{
		{LongName: "1600", ShortName: "1600", Types: []string{"street_number"}},
		{LongName: "Amphitheatre Parkway", ShortName: "Amphitheatre Pkwy", Types: []string{"route"}},
		{LongName: "Mountain View", ShortName: "Mountain View", Types: []string{"locality", "political"}},
		{LongName: "California", ShortName: "CA", Types: []string{"administrative_area_level_1", "political"}},
		{LongName: "94043", ShortName: "94043", Types: []string{"postal_code"}},
		{LongName: "United States", ShortName: "US", Types: []string{"country", "political"}},
	}

	addr := NormalizeComponents(components)

	assert.Equal(t, "1600", addr.StreetNumber)
	assert.Equal(t, "Amphitheatre Parkway", addr.Route)
	assert.Equal(t, "Mountain View", addr.Locality)
	assert.Equal(t, "CA", addr.Region)
	assert.Equal(t, "94043", addr.PostalCode)
	assert.Equal(t, "US", addr.Country)
}

func TestNormalizeComponentsEmpty(t *testing.T) {
	addr := NormalizeComponents(nil)
	assert.Equal(t, Address{}, addr)
}

func TestGeocoderDegradedWithoutKey(t *testing.T) {
	g := NewGeocoder("")
	assert.False(t, g.Available())

	_, err := g.Geocode(context.Background(), "1 Main St")
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = g.Autocomplete(context.Background(), "1 Main")
	assert.ErrorIs(t, err, ErrUnavailable)
}
