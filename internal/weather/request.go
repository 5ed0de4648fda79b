package weather

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is wrapped by every request validation failure
var ErrInvalidRequest = errors.New("invalid request")

// Request asks for the forecast of a place. Coordinates win when both are set,
// otherwise City is geocoded. Zero values take the configured defaults.
type Request struct {
	City         string   `json:"city" validate:"max=200"`
	State        string   `json:"state" validate:"max=200"`
	County       string   `json:"county" validate:"max=200"`
	CountryCode  string   `json:"country_code" validate:"omitempty,len=2,alpha"`
	Language     string   `json:"language" validate:"omitempty,min=2,max=10"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	ForecastDays int      `json:"forecast_days" validate:"omitempty,min=1,max=16"`
}

// HistoryRequest identifies a stored record by city text or coordinates
type HistoryRequest struct {
	City      string   `json:"city" validate:"max=200"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func validateRequest(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: field %s failed %q (value %v)", ErrInvalidRequest, fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
