package weather

import (
	"fmt"

	"meteo-locator/internal/types"

	"github.com/tidwall/sjson"
)

const resolvedLocationField = "_resolved_location"

type latLonView struct {
	Mode      types.Mode `json:"mode"`
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Timezone  string     `json:"timezone"`
}

type cityView struct {
	Mode        types.Mode `json:"mode"`
	Name        string     `json:"name"`
	Admin1      *string    `json:"admin1"`
	Admin2      *string    `json:"admin2"`
	CountryCode string     `json:"country_code"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Timezone    string     `json:"timezone"`
	Population  *int       `json:"population"`
}

func describe(loc *types.ResolvedLocation) any {
	if loc.Mode == types.ModeLatLon {
		return latLonView{
			Mode:      loc.Mode,
			Latitude:  loc.Coordinates.Latitude,
			Longitude: loc.Coordinates.Longitude,
			Timezone:  loc.Timezone,
		}
	}

	return cityView{
		Mode:        loc.Mode,
		Name:        loc.Name,
		Admin1:      nullable(loc.Admin1),
		Admin2:      nullable(loc.Admin2),
		CountryCode: loc.CountryCode,
		Latitude:    loc.Coordinates.Latitude,
		Longitude:   loc.Coordinates.Longitude,
		Timezone:    loc.Timezone,
		Population:  loc.Population,
	}
}

// augment sets _resolved_location on the top-level payload object
func augment(payload []byte, loc *types.ResolvedLocation) ([]byte, error) {
	out, err := sjson.SetBytes(payload, resolvedLocationField, describe(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to add resolved location: %w", err)
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
