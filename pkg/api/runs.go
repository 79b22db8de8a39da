package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Step struct {
	Position       int        `json:"position"`
	Name           string     `json:"name"`
	Policy         string     `json:"policy"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	Error          string     `json:"error,omitempty"`
	StartTime      *time.Time `json:"start_time,omitempty"`
	CompletionTime *time.Time `json:"completion_time,omitempty"`
}

type Run struct {
	Id             uuid.UUID       `json:"id"`
	Host           string          `json:"host"`
	Status         string          `json:"status"`
	ExitCode       int             `json:"exit_code"`
	Error          string          `json:"error,omitempty"`
	CreationTime   time.Time       `json:"creation_time"`
	CompletionTime *time.Time      `json:"completion_time,omitempty"`
	Config         json.RawMessage `json:"config,omitempty"`
	Steps          []Step          `json:"steps,omitempty"`
}

type ListRunsParams struct {
	Limit  int    `schema:"limit"`
	Status string `schema:"status"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
