package types

// Mode tells how a location was resolved
type Mode string

const (
	ModeCity   Mode = "city"
	ModeLatLon Mode = "latlon"
)

// GeoCandidate is a single geocoding hit. Optional fields are empty strings
// (or a nil Population) when the provider did not report them.
type GeoCandidate struct {
	Name        string
	Coordinates Coords
	CountryCode string
	Admin1      string
	Admin2      string
	Timezone    string
	Population  *int
}

// ResolvedLocation is the point chosen for a forecast request together with
// its provenance. Query holds the place text the caller asked for in city mode.
type ResolvedLocation struct {
	Mode        Mode
	Query       string
	Name        string
	Coordinates Coords
	CountryCode string
	Admin1      string
	Admin2      string
	Timezone    string
	Population  *int
}

// FromCandidate builds a city-mode location from a geocoding hit
func FromCandidate(query string, c GeoCandidate) ResolvedLocation {
	return ResolvedLocation{
		Mode:        ModeCity,
		Query:       query,
		Name:        c.Name,
		Coordinates: c.Coordinates,
		CountryCode: c.CountryCode,
		Admin1:      c.Admin1,
		Admin2:      c.Admin2,
		Timezone:    c.Timezone,
		Population:  c.Population,
	}
}
