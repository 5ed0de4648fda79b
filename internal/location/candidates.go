package location

import (
	"math"
	"strconv"
	"strings"

	"meteo-locator/internal/providers/openmeteo"
	"meteo-locator/internal/types"

	"github.com/spf13/cast"
)

// toCandidate converts a raw geocoding record. Missing coordinates become NaN
// so they never pass validation. Name and country code fall back to what was
// asked for.
func toCandidate(r openmeteo.GeocodingResult, queriedName, queriedCountry string) types.GeoCandidate {
	lat, lon := math.NaN(), math.NaN()
	if r.Latitude != nil {
		lat = *r.Latitude
	}
	if r.Longitude != nil {
		lon = *r.Longitude
	}

	name := r.Name
	if name == "" {
		name = queriedName
	}
	countryCode := r.CountryCode
	if countryCode == "" {
		countryCode = queriedCountry
	}

	return types.GeoCandidate{
		Name:        name,
		Coordinates: types.NewCoords(lat, lon),
		CountryCode: countryCode,
		Admin1:      r.Admin1,
		Admin2:      r.Admin2,
		Timezone:    r.Timezone,
		Population:  parsePopulation(r.Population),
	}
}

// parsePopulation coerces the raw population field. Anything that is not a
// non-negative integer (or a string holding one) is reported as unknown.
func parsePopulation(raw any) *int {
	var (
		n   int
		err error
	)
	switch v := raw.(type) {
	case nil, bool:
		return nil
	case string:
		// decimal only; cast would accept "0x10" and read "010" as octal
		n, err = strconv.Atoi(strings.TrimSpace(v))
	default:
		n, err = cast.ToIntE(raw)
	}
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
