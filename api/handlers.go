/*
handlers.go - HTTP handlers for the booking portal

PURPOSE:
  Exposes the reservation engine to club secretaries (HTML pages) and to
  other programs (JSON API). Handlers parse the request, call the engine,
  and render its answer. No booking rule lives here.

ENDPOINTS:
  Pages:
    GET    /                               Email form
    POST   /showSummary                    Club summary with open competitions
    GET    /book/{competition}/{club}      Booking form
    POST   /purchasePlaces                 Book places, show the outcome
    GET    /points                         Points board
    GET    /logout                         Back to the email form

  API:
    GET    /api/points                     Points board as JSON (cached)
    GET    /api/competitions               Open competitions
    POST   /api/purchases                  Book places

FLASH MESSAGES:
  A page that redirects to / leaves its message in a one-shot cookie,
  shown by the index page. Pages rendered directly show their message
  inline.

ERROR HANDLING:
  API errors are JSON with an HTTP status per outcome:
  - 400: Malformed body, missing fields
  - 404: Club or competition not found
  - 409: Competition closed or full, not enough places, cap, points
  - 422: Invalid number of places
  - 500: The booking could not be saved

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - booking/engine.go: The rules behind every purchase
*/
package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/places-engine/booking"
)

// Messages produced by the transport itself.
const (
	msgMissingEmail   = "Please provide an email"
	msgUnknownEmail   = "Unknown email, please try again"
	msgClubNotFound   = "Club not found"
	msgCompNotFound   = "Competition not found"
	msgClosed         = "This competition is no longer open for booking"
	msgMissingInfo    = "Error: Missing required information"
	msgStorageFailure = "Error: The booking could not be saved, please try again"
	msgInvalidBody    = "Invalid request body"
)

//go:embed templates/*.html
var templateFS embed.FS

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *booking.Engine

	pages    *template.Template
	validate *validator.Validate
}

// NewHandler creates a handler serving engine.
func NewHandler(engine *booking.Engine) *Handler {
	return &Handler{
		Engine:   engine,
		pages:    template.Must(template.ParseFS(templateFS, "templates/*.html")),
		validate: validator.New(),
	}
}

// page is the data every template receives.
type page struct {
	Title        string
	Messages     []string
	Club         booking.Club
	Competition  booking.Competition
	Competitions []booking.Competition
	Points       []booking.ClubPoints
	MaxPlaces    int
}

// =============================================================================
// PAGE HANDLERS
// =============================================================================

// Index shows the email form.
// GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "index.html", page{
		Title:    "Home",
		Messages: popFlash(w, r),
	})
}

// ShowSummary looks the club up by secretary email.
// POST /showSummary
func (h *Handler) ShowSummary(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	if err := h.validate.Var(email, "required"); err != nil {
		redirectWithFlash(w, r, msgMissingEmail)
		return
	}

	club, open, ok := h.Engine.Summary(r.Context(), email, h.Engine.Now())
	if !ok {
		redirectWithFlash(w, r, msgUnknownEmail)
		return
	}

	h.render(w, http.StatusOK, "welcome.html", page{
		Title:        "Summary",
		Club:         club,
		Competitions: open,
	})
}

// Book shows the booking form for a club and a competition.
// GET /book/{competition}/{club}
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	v := h.Engine.BookingPage(r.Context(),
		chi.URLParam(r, "competition"), chi.URLParam(r, "club"), h.Engine.Now())

	switch {
	case !v.ClubFound:
		redirectWithFlash(w, r, msgClubNotFound)
	case !v.CompetitionFound:
		redirectWithFlash(w, r, msgCompNotFound)
	case !v.Open:
		h.render(w, http.StatusOK, "welcome.html", page{
			Title:        "Summary",
			Messages:     []string{msgClosed},
			Club:         v.Club,
			Competitions: v.OpenCompetitions,
		})
	default:
		h.render(w, http.StatusOK, "booking.html", page{
			Title:       "Booking for " + v.Competition.Name,
			Club:        v.Club,
			Competition: v.Competition,
			MaxPlaces:   booking.MaxPlacesPerCompetition,
		})
	}
}

// PurchasePlaces books places from the booking form.
// POST /purchasePlaces
func (h *Handler) PurchasePlaces(w http.ResponseWriter, r *http.Request) {
	req := PurchaseRequest{
		Club:        r.PostFormValue("club"),
		Competition: r.PostFormValue("competition"),
		Places:      PlacesText(r.PostFormValue("places")),
	}
	if err := h.validate.Struct(req); err != nil {
		redirectWithFlash(w, r, msgMissingInfo)
		return
	}

	out, err := h.Engine.Purchase(r.Context(), req.Club, req.Competition, string(req.Places))
	if err != nil {
		redirectWithFlash(w, r, msgStorageFailure)
		return
	}
	if booking.IsNotFound(out.Err()) {
		redirectWithFlash(w, r, out.Message)
		return
	}

	h.render(w, http.StatusOK, "welcome.html", page{
		Title:        "Summary",
		Messages:     []string{out.Message},
		Club:         out.Club,
		Competitions: h.Engine.OpenCompetitions(out.Competitions, h.Engine.Now()),
	})
}

// Points shows every club's points. Read live, never from the cache.
// GET /points
func (h *Handler) Points(w http.ResponseWriter, r *http.Request) {
	clubs := h.Engine.Clubs(r.Context())
	points := make([]booking.ClubPoints, len(clubs))
	for i, c := range clubs {
		points[i] = booking.ClubPoints{Name: c.Name, Points: c.Points}
	}
	h.render(w, http.StatusOK, "points.html", page{Title: "Points", Points: points})
}

// Logout returns to the email form.
// GET /logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusNotFound, "404.html", page{Title: "Not found"})
}

// InternalError renders the 500 page.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusInternalServerError, "500.html", page{Title: "Error"})
}

// =============================================================================
// API HANDLERS
// =============================================================================

// APIPoints returns the points board. The answer may be served from the
// points cache.
// GET /api/points
func (h *Handler) APIPoints(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ClubPointsResponse{Clubs: h.Engine.ListClubPoints(r.Context())})
}

// APICompetitions returns the competitions still open for booking.
// GET /api/competitions
func (h *Handler) APICompetitions(w http.ResponseWriter, r *http.Request) {
	open := h.Engine.ListOpenCompetitions(r.Context(), h.Engine.Now())
	writeJSON(w, http.StatusOK, CompetitionsResponse{Competitions: toCompetitionDTOs(open)})
}

// APIPurchase books places from a JSON request.
// POST /api/purchases
func (h *Handler) APIPurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	out, err := h.Engine.Purchase(r.Context(), req.Club, req.Competition, string(req.Places))
	if err != nil {
		writeError(w, http.StatusInternalServerError, msgStorageFailure, err)
		return
	}
	if !out.Booked() {
		writeJSON(w, statusForCode(out.Code), ErrorResponse{Error: out.Message, Code: string(out.Code)})
		return
	}

	resp := PurchaseResponse{
		Receipt:         out.Receipt,
		Message:         out.Message,
		Club:            out.Club.Name,
		Competition:     req.Competition,
		Places:          out.Places,
		PointsRemaining: out.Club.Points,
		LedgerTotal:     out.LedgerTotal,
	}
	if c, ok := booking.FindCompetition(out.Competitions, req.Competition); ok {
		resp.PlacesRemaining = c.NumberOfPlaces
	}
	writeJSON(w, http.StatusCreated, resp)
}

// statusForCode maps a rejection to its HTTP status.
func statusForCode(code booking.Code) int {
	switch code {
	case booking.CodeNotFound:
		return http.StatusNotFound
	case booking.CodeInvalidQuantity:
		return http.StatusUnprocessableEntity
	case booking.CodeCompetitionClosed, booking.CodeCompetitionFull,
		booking.CodeInsufficientInventory, booking.CodeCapExceeded,
		booking.CodeInsufficientPoints:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// render executes a page into a buffer first so a template failure can
// still be answered with a clean 500.
func (h *Handler) render(w http.ResponseWriter, status int, name string, data page) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[API] rendering %s: %v", name, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = map[string]string{"cause": err.Error()}
	}
	writeJSON(w, status, resp)
}

func writeValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{Error: msgMissingInfo}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Details[fe.Field()] = "failed on '" + fe.Tag() + "'"
		}
	}
	writeJSON(w, http.StatusBadRequest, resp)
}
