/*
Package booking provides the club places reservation engine.

PURPOSE:
  Clubs spend points to reserve places in upcoming competitions. This
  package owns the business rules: a purchase is checked against the
  competition date, the remaining places, the per-club cap and the club's
  points, and then applied to the club, the competition and the ledger as
  one unit.

KEY CONCEPTS IN THIS FILE (types.go):
  - Club: a member organization with a points balance
  - Competition: a dated event with a finite number of places
  - ClubPoints: read-only projection used by the points board
  - Outcome: the result of a purchase, booked or rejected

VALUE RECORDS:
  Clubs and competitions are plain values. Stores own the serialization
  format (string-encoded numbers in JSON, INTEGER columns in SQLite); the
  engine only ever sees integers.

SEE ALSO:
  - engine.go: Purchase and its validation order
  - store.go: Repository, Ledger and Store interfaces
  - errors.go: Sentinels and structured errors
*/
package booking

// MaxPlacesPerCompetition is the cumulative number of places a single club
// may book for one competition.
const MaxPlacesPerCompetition = 12

// =============================================================================
// ENTITIES
// =============================================================================

// Club is a member organization. Name and Email are unique.
type Club struct {
	Name   string
	Email  string
	Points int
}

// Competition is a dated event. Date holds the stored scheduled date-time
// text; it is interpreted by a TimeGate. NumberOfPlaces is the number of
// places still available and only ever decreases.
type Competition struct {
	Name           string
	Date           string
	NumberOfPlaces int
}

// ClubPoints is the public view of a club's balance.
type ClubPoints struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// =============================================================================
// OUTCOME - Result of a purchase
// =============================================================================

// Code identifies the outcome of a purchase.
type Code string

const (
	CodeBooked                Code = "booked"
	CodeNotFound              Code = "not_found"
	CodeCompetitionClosed     Code = "competition_closed"
	CodeInvalidQuantity       Code = "invalid_quantity"
	CodeCompetitionFull       Code = "competition_full"
	CodeInsufficientInventory Code = "insufficient_inventory"
	CodeCapExceeded           Code = "cap_exceeded"
	CodeInsufficientPoints    Code = "insufficient_points"
)

// User-facing messages, one per outcome. Page tests match on this text.
var messages = map[Code]string{
	CodeBooked:                "Great-booking complete!",
	CodeNotFound:              "Error: Club or competition not found",
	CodeCompetitionClosed:     "Error: This competition is no longer open for booking",
	CodeInvalidQuantity:       "Error: Invalid number of places",
	CodeCompetitionFull:       "Error: Competition is full",
	CodeInsufficientInventory: "Error: Not enough places available",
	CodeCapExceeded:           "Error: Cannot book more than 12 places per competition",
	CodeInsufficientPoints:    "Error: Not enough points",
}

// Message returns the user-facing message for a code.
func (c Code) Message() string {
	return messages[c]
}

// Outcome is what Purchase returns for every request that did not hit a
// storage write failure.
type Outcome struct {
	Code    Code
	Message string

	// Club is the resolved club: post-purchase state when booked, the state
	// the request was validated against otherwise. Zero when not found.
	Club      Club
	ClubFound bool

	// Competitions is the full competition list, same timing as Club.
	Competitions []Competition

	// Set only when booked.
	Receipt     string
	Places      int
	LedgerTotal int
}

// Booked reports whether the purchase committed.
func (o Outcome) Booked() bool {
	return o.Code == CodeBooked
}

// Err returns nil for a booked outcome and a *RejectionError otherwise.
func (o Outcome) Err() error {
	if o.Booked() {
		return nil
	}
	return &RejectionError{Code: o.Code, Message: o.Message}
}

func rejected(code Code) Outcome {
	return Outcome{Code: code, Message: code.Message()}
}
