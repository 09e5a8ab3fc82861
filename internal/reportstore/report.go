package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	TypeAudit    = "audit"
	TypeDeepfake = "deepfake"
)

var ErrReportNotFound = errors.New("report not found")

type Report struct {
	Id       string          `json:"id"`
	Type     string          `json:"type"`
	FileURL  string          `json:"fileUrl,omitempty"`
	Metadata map[string]any  `json:"metadata,omitempty"`
	Status   string          `json:"status"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// Terminal reports whether the report has already been processed.
func (r Report) Terminal() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Store is where report records live. The worker reads a report once and
// writes its outcome with a single patch.
type Store interface {
	GetReport(ctx context.Context, id string) (Report, error)
	PatchReport(ctx context.Context, id string, result any, status string) (Report, error)
}

// StoreError is an unexpected answer from the report store.
type StoreError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("report store %s failed with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsRetryable reports whether repeating the call that returned err could
// succeed.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrReportNotFound) {
		return false
	}

	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		switch {
		case storeErr.StatusCode == http.StatusRequestTimeout, storeErr.StatusCode == http.StatusTooManyRequests:
			return true
		case storeErr.StatusCode >= 400 && storeErr.StatusCode < 500:
			return false
		}
	}

	return true
}
