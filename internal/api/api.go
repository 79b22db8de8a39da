package api

import (
	"dashboard-bootstrap/internal/database"
	"dashboard-bootstrap/pkg/api"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// LedgerService exposes the bootstrap run ledger read-only.
type LedgerService struct {
	db *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

func (s *LedgerService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(s.Health))
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", RestHandler(s.ListRuns))
		r.Get("/latest", RestHandler(s.LatestRun))
		r.Get("/{run_id}", RestHandler(s.GetRun))
	})
}

func (s *LedgerService) Health(r *http.Request) (any, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, CodedErrorf(http.StatusServiceUnavailable, "ledger database unavailable: %v", err)
	}
	if err := sqlDB.PingContext(r.Context()); err != nil {
		return nil, CodedErrorf(http.StatusServiceUnavailable, "ledger database unavailable: %v", err)
	}
	return api.HealthResponse{Status: "ok"}, nil
}

var validStatuses = map[string]bool{
	database.RunRunning:   true,
	database.RunSucceeded: true,
	database.RunDegraded:  true,
	database.RunFailed:    true,
}

func (s *LedgerService) ListRuns(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.ListRunsParams](r)
	if err != nil {
		return nil, err
	}

	if params.Limit < 0 {
		return nil, CodedErrorf(http.StatusBadRequest, "limit must not be negative")
	}
	if params.Limit == 0 {
		params.Limit = defaultListLimit
	}
	params.Limit = min(params.Limit, maxListLimit)

	status := strings.ToUpper(params.Status)
	if status != "" && !validStatuses[status] {
		return nil, CodedErrorf(http.StatusBadRequest, "invalid status '%s'", params.Status)
	}

	runs, err := database.ListRuns(r.Context(), s.db, status, params.Limit)
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}

	return convertRuns(runs), nil
}

func (s *LedgerService) LatestRun(r *http.Request) (any, error) {
	run, err := database.LatestRun(r.Context(), s.db)
	if errors.Is(err, database.ErrRunNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "no bootstrap runs recorded")
	}
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	return convertRun(run), nil
}

func (s *LedgerService) GetRun(r *http.Request) (any, error) {
	runId, err := URLParamUUID(r, "run_id")
	if err != nil {
		return nil, err
	}

	run, err := database.GetRun(r.Context(), s.db, runId)
	if errors.Is(err, database.ErrRunNotFound) {
		return nil, CodedErrorf(http.StatusNotFound, "run %s not found", runId)
	}
	if err != nil {
		return nil, CodedError(http.StatusInternalServerError, err)
	}
	return convertRun(run), nil
}
