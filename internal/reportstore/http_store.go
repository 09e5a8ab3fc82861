package reportstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// HTTPStore talks to the report API with a service token:
//
//	GET   /reports/{id}
//	PATCH /reports/{id}  {"result": ..., "status": ...}
type HTTPStore struct {
	client *resty.Client
}

var _ Store = (*HTTPStore)(nil)

func NewHTTPStore(baseURL, token string, timeout time.Duration) *HTTPStore {
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Accept", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPStore{client: client}
}

type patchRequest struct {
	Result any    `json:"result"`
	Status string `json:"status"`
}

func (s *HTTPStore) GetReport(ctx context.Context, id string) (Report, error) {
	res, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		Get("/reports/{id}")
	if err != nil {
		return Report{}, fmt.Errorf("error fetching report %s: %w", id, err)
	}

	return decodeReport(res, "get", id)
}

func (s *HTTPStore) PatchReport(ctx context.Context, id string, result any, status string) (Report, error) {
	res, err := s.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetHeader("Content-Type", "application/json").
		SetBody(patchRequest{Result: result, Status: status}).
		Patch("/reports/{id}")
	if err != nil {
		return Report{}, fmt.Errorf("error patching report %s: %w", id, err)
	}

	return decodeReport(res, "patch", id)
}

// decodeReport accepts the report either bare or wrapped as {"report": {...}}.
func decodeReport(res *resty.Response, op, id string) (Report, error) {
	if res.StatusCode() == http.StatusNotFound {
		return Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, id)
	}
	if !res.IsSuccess() {
		return Report{}, &StoreError{Op: op, StatusCode: res.StatusCode(), Body: res.String()}
	}

	body := gjson.ParseBytes(res.Body())
	if wrapped := body.Get("report"); wrapped.IsObject() {
		body = wrapped
	}

	var report Report
	if err := json.Unmarshal([]byte(body.Raw), &report); err != nil {
		return Report{}, fmt.Errorf("error decoding report %s: %w", id, err)
	}
	if report.Id == "" {
		report.Id = id
	}

	return report, nil
}
