/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures of the /api endpoints and the form input of
  the HTML pages. These types keep the booking package's types out of the
  wire contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

VALIDATION:
  Request types carry go-playground/validator tags. A request that fails
  validation is answered with "Error: Missing required information".

SEE ALSO:
  - handlers.go: Uses these types
  - booking/types.go: Domain types
*/
package api

import (
	"bytes"
	"encoding/json"

	"github.com/warp/places-engine/booking"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// PurchaseRequest is a purchase submitted by form or as JSON.
type PurchaseRequest struct {
	Club        string     `json:"club" validate:"required"`
	Competition string     `json:"competition" validate:"required"`
	Places      PlacesText `json:"places" validate:"required"`
}

// PlacesText is the requested quantity as submitted. JSON clients may
// send either a number or a string; the engine parses the text.
type PlacesText string

func (p *PlacesText) UnmarshalJSON(data []byte) error {
	if bytes.HasPrefix(data, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*p = PlacesText(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*p = ""
		return nil
	}
	*p = PlacesText(data)
	return nil
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ClubPointsResponse is the body of GET /api/points.
type ClubPointsResponse struct {
	Clubs []booking.ClubPoints `json:"clubs"`
}

// CompetitionDTO represents a competition in API responses.
type CompetitionDTO struct {
	Name           string `json:"name"`
	Date           string `json:"date"`
	NumberOfPlaces int    `json:"numberOfPlaces"`
}

// CompetitionsResponse is the body of GET /api/competitions.
type CompetitionsResponse struct {
	Competitions []CompetitionDTO `json:"competitions"`
}

// PurchaseResponse is the body of a booked POST /api/purchases.
type PurchaseResponse struct {
	Receipt         string `json:"receipt"`
	Message         string `json:"message"`
	Club            string `json:"club"`
	Competition     string `json:"competition"`
	Places          int    `json:"places"`
	PointsRemaining int    `json:"points_remaining"`
	PlacesRemaining int    `json:"places_remaining"`
	LedgerTotal     int    `json:"ledger_total"`
}

// ErrorResponse is returned for every failed API call.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func toCompetitionDTOs(competitions []booking.Competition) []CompetitionDTO {
	dtos := make([]CompetitionDTO, len(competitions))
	for i, c := range competitions {
		dtos[i] = CompetitionDTO{Name: c.Name, Date: c.Date, NumberOfPlaces: c.NumberOfPlaces}
	}
	return dtos
}
