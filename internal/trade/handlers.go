package trade

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/carstonks/options-engine/internal/catalog"
	"github.com/carstonks/options-engine/internal/contract"
	"github.com/carstonks/options-engine/internal/correlation"
	"github.com/carstonks/options-engine/internal/ledger"
	"github.com/carstonks/options-engine/internal/model"
)

// --- Request/Response types ---

// OpenPositionRequest is the JSON body for POST /positions.
type OpenPositionRequest struct {
	CarID            string `json:"carId"`
	Type             string `json:"type"`             // "CALL" or "PUT"
	ExpiryMonths     int    `json:"expiryMonths"`     // 1, 3 or 6
	TargetPercentage int    `json:"percentageChange"` // 1, 2, 5, 10, 15 or 30
	Quantity         int    `json:"quantity"`         // omitted → 1
}

// CarListResponse is the JSON body returned from GET /cars.
type CarListResponse struct {
	Cars   []model.Car `json:"cars"`
	Brands []string    `json:"brands"`
	Years  []int       `json:"years"`
}

// CarDetailResponse is the JSON body returned from GET /cars/{carID}.
type CarDetailResponse struct {
	model.Car
	Performance decimal.Decimal `json:"performance"`
}

// ClosePositionResponse is the JSON body returned from DELETE /positions/{id}.
type ClosePositionResponse struct {
	Position  model.Position     `json:"position"`
	Proceeds  decimal.Decimal    `json:"proceeds"`
	Stats     model.AccountStats `json:"stats"`
	Aggregate model.Aggregate    `json:"aggregate"`
}

// --- HTTP Handlers ---

// Routes mounts the API under r.
func (s *Service) Routes(r chi.Router) {
	r.Get("/cars", s.ListCars)
	r.Get("/cars/{carID}", s.GetCar)
	r.Get("/cars/{carID}/quote", s.GetQuote)
	r.Get("/trends", s.GetTrends)
	r.Post("/positions", s.HandleOpenPosition)
	r.Delete("/positions/{positionID}", s.HandleClosePosition)
	r.Get("/portfolio", s.GetPortfolio)
}

// ListCars handles GET /api/v1/cars
// Optional filters: ?brand=<name>&year=<yyyy>&sort=<price-desc|price-asc|name|performance>.
func (s *Service) ListCars(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{
		Brand:  q.Get("brand"),
		SortBy: q.Get("sort"),
	}
	if y := q.Get("year"); y != "" {
		year, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, "year must be a number", http.StatusBadRequest)
			return
		}
		f.Year = year
	}

	cars := s.catalog.List(f)
	if cars == nil {
		cars = []model.Car{}
	}

	writeJSON(w, http.StatusOK, CarListResponse{
		Cars:   cars,
		Brands: s.catalog.Brands(),
		Years:  s.catalog.Years(),
	})
}

// GetCar handles GET /api/v1/cars/{carID}
func (s *Service) GetCar(w http.ResponseWriter, r *http.Request) {
	car, err := s.catalog.Car(chi.URLParam(r, "carID"))
	if err != nil {
		writeError(w, "car not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, CarDetailResponse{Car: car, Performance: catalog.Performance(car).Round(2)})
}

// GetQuote handles GET /api/v1/cars/{carID}/quote?type=CALL&expiry=3&target=5&quantity=1
// Prices a prospective trade without placing it.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params, err := contract.ParseParams(strings.ToUpper(q.Get("type")), q.Get("expiry"), q.Get("target"), q.Get("quantity"))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	quote, err := s.Quote(chi.URLParam(r, "carID"), params)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// GetTrends handles GET /api/v1/trends
func (s *Service) GetTrends(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Trends())
}

// HandleOpenPosition handles POST /api/v1/positions
// Returns 201 with the decorated position.
func (s *Service) HandleOpenPosition(w http.ResponseWriter, r *http.Request) {
	var req OpenPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.CarID == "" {
		writeError(w, "carId is required", http.StatusBadRequest)
		return
	}
	t, err := model.ParseOptionType(strings.ToUpper(req.Type))
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	pos, err := s.OpenPosition(r.Context(), req.CarID, model.TradeParameters{
		Type:             t,
		ExpiryMonths:     req.ExpiryMonths,
		TargetPercentage: req.TargetPercentage,
		Quantity:         req.Quantity,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ledger.Summarize(pos))
}

// HandleClosePosition handles DELETE /api/v1/positions/{positionID}
func (s *Service) HandleClosePosition(w http.ResponseWriter, r *http.Request) {
	pos, p, err := s.ClosePosition(r.Context(), chi.URLParam(r, "positionID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClosePositionResponse{
		Position:  pos,
		Proceeds:  pos.CurrentValue,
		Stats:     p.Stats,
		Aggregate: p.Aggregate,
	})
}

// GetPortfolio handles GET /api/v1/portfolio
// Returns account stats, aggregates, and decorated positions.
func (s *Service) GetPortfolio(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Portfolio())
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrCarNotFound),
		errors.Is(err, ledger.ErrPositionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidOptionType),
		errors.Is(err, contract.ErrInvalidExpiry),
		errors.Is(err, contract.ErrInvalidTarget),
		errors.Is(err, contract.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, correlation.ErrPerCarLimitExceeded),
		errors.Is(err, correlation.ErrBrandLimitExceeded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, msg, status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
