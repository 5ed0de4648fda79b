package openmeteo

// GeocodingAPIResponse is the body of /v1/search. Results is absent when
// nothing matched.
type GeocodingAPIResponse struct {
	Results          []GeocodingResult `json:"results"`
	GenerationtimeMs float64           `json:"generationtime_ms"`
}

// GeocodingResult is one raw geocoding record. Coordinates are pointers so a
// missing field can be told apart from 0. Population is left undecoded
// because the service is not consistent about its type.
type GeocodingResult struct {
	Id          int64    `json:"id"`
	Name        string   `json:"name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Elevation   float64  `json:"elevation"`
	FeatureCode string   `json:"feature_code"`
	CountryCode string   `json:"country_code"`
	Country     string   `json:"country"`
	Admin1      string   `json:"admin1"`
	Admin2      string   `json:"admin2"`
	Timezone    string   `json:"timezone"`
	Population  any      `json:"population"`
}
