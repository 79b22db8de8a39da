package api_test

import (
	"context"
	backend "dashboard-bootstrap/internal/api"
	"dashboard-bootstrap/internal/database"
	"dashboard-bootstrap/pkg/api"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createDB(t *testing.T) *gorm.DB {
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	return db
}

func createRun(t *testing.T, db *gorm.DB, status string, steps ...database.StepRecord) uuid.UUID {
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, database.CreateRun(ctx, db, id, "ip-10-0-0-7", map[string]any{"Port": 8501}))
	for _, s := range steps {
		require.NoError(t, database.SaveStep(ctx, db, id, s))
	}
	exitCode := map[string]int{database.RunSucceeded: 0, database.RunDegraded: 2, database.RunFailed: 1}[status]
	require.NoError(t, database.FinishRun(ctx, db, id, status, exitCode, ""))
	time.Sleep(5 * time.Millisecond)
	return id
}

func newRouter(db *gorm.DB) chi.Router {
	router := chi.NewRouter()
	backend.NewLedgerService(db).AddRoutes(router)
	return router
}

func get(t *testing.T, router chi.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newRouter(createDB(t)), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListRuns(t *testing.T) {
	db := createDB(t)
	first := createRun(t, db, database.RunSucceeded)
	second := createRun(t, db, database.RunDegraded)
	third := createRun(t, db, database.RunSucceeded)
	router := newRouter(db)

	rec := get(t, router, "/runs")
	require.Equal(t, http.StatusOK, rec.Code)
	var runs []api.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 3)
	assert.Equal(t, []uuid.UUID{third, second, first}, []uuid.UUID{runs[0].Id, runs[1].Id, runs[2].Id})
	assert.Equal(t, "ip-10-0-0-7", runs[0].Host)
	assert.NotNil(t, runs[0].CompletionTime)

	rec = get(t, router, "/runs?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, third, runs[0].Id)

	rec = get(t, router, "/runs?status=degraded")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, second, runs[0].Id)
	assert.Equal(t, 2, runs[0].ExitCode)
}

func TestListRunsBadParams(t *testing.T) {
	router := newRouter(createDB(t))

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/runs?limit=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/runs?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, router, "/runs?status=exploded").Code)
}

func TestGetRun(t *testing.T) {
	db := createDB(t)
	now := time.Now()
	id := createRun(t, db, database.RunFailed,
		database.StepRecord{Position: 1, Name: "packages", Policy: "FATAL", Status: database.StepSucceeded, Attempts: 1, Started: now, Finished: now},
		database.StepRecord{Position: 2, Name: "artifacts", Policy: "FATAL", Status: database.StepFailed, Attempts: 3, Error: "artifact fetch exhausted", Started: now, Finished: now},
		database.StepRecord{Position: 3, Name: "venv", Policy: "FATAL", Status: database.StepSkipped},
	)
	router := newRouter(db)

	rec := get(t, router, "/runs/"+id.String())
	require.Equal(t, http.StatusOK, rec.Code)

	var run api.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, id, run.Id)
	assert.Equal(t, database.RunFailed, run.Status)
	assert.JSONEq(t, `{"Port":8501}`, string(run.Config))
	require.Len(t, run.Steps, 3)
	assert.Equal(t, "artifacts", run.Steps[1].Name)
	assert.Equal(t, 3, run.Steps[1].Attempts)
	assert.Equal(t, "artifact fetch exhausted", run.Steps[1].Error)
	assert.Nil(t, run.Steps[2].StartTime)
}

func TestGetRunErrors(t *testing.T) {
	router := newRouter(createDB(t))

	assert.Equal(t, http.StatusBadRequest, get(t, router, "/runs/not-a-uuid").Code)
	assert.Equal(t, http.StatusNotFound, get(t, router, "/runs/"+uuid.New().String()).Code)
}

func TestLatestRun(t *testing.T) {
	db := createDB(t)
	router := newRouter(db)

	assert.Equal(t, http.StatusNotFound, get(t, router, "/runs/latest").Code)

	createRun(t, db, database.RunSucceeded)
	latest := createRun(t, db, database.RunDegraded)

	rec := get(t, router, "/runs/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var run api.Run
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, latest, run.Id)
}
