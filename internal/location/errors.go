package location

import (
	"errors"
	"fmt"

	"meteo-locator/internal/types"
)

// ErrMissingLocation is returned when neither a coordinate pair nor a city was given
var ErrMissingLocation = errors.New("either latitude and longitude or city must be provided")

// InvalidCoordinateError reports an out-of-range latitude/longitude pair
type InvalidCoordinateError = types.InvalidCoordinateError

// NotFoundError is returned when geocoding reports no match for a place name
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no geocoding results for %q", e.Name)
}
