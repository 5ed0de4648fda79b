package types

import "fmt"

const (
	MinLatitude  = -90.0
	MaxLatitude  = 90.0
	MinLongitude = -180.0
	MaxLongitude = 180.0
)

type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func NewCoords(latitude, longitude float64) Coords {
	return Coords{
		Latitude:  latitude,
		Longitude: longitude,
	}
}

// Valid reports whether the point lies in [-90,90] x [-180,180].
// NaN is never valid.
func (c Coords) Valid() bool {
	return c.Latitude >= MinLatitude && c.Latitude <= MaxLatitude &&
		c.Longitude >= MinLongitude && c.Longitude <= MaxLongitude
}

// Validate returns an *InvalidCoordinateError when the point is out of range
func (c Coords) Validate() error {
	if !c.Valid() {
		return &InvalidCoordinateError{Latitude: c.Latitude, Longitude: c.Longitude}
	}
	return nil
}

// InvalidCoordinateError reports a latitude/longitude pair outside the valid range
type InvalidCoordinateError struct {
	Latitude  float64
	Longitude float64
}

func (e *InvalidCoordinateError) Error() string {
	return fmt.Sprintf("invalid coordinates: lat=%v, lon=%v (latitude must be in [-90,90] and longitude in [-180,180])",
		e.Latitude, e.Longitude)
}
