// Package client calls a running book predictor over HTTP.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Book is the request body of /api/predict.
type Book struct {
	Ano            int    `json:"ano"`
	Paginas        int    `json:"paginas"`
	QueremLer      int    `json:"queremLer"`
	Autor          string `json:"autor"`
	Editora        string `json:"editora"`
	GeneroPrimario string `json:"generoPrimario"`
	SubGenero      string `json:"subGenero"`
}

// Health mirrors the server's /api/health response.
type Health struct {
	Status        string `json:"status"`
	ModelLoaded   bool   `json:"model_loaded"`
	ModelState    string `json:"model_state,omitempty"`
	SchemaVersion string `json:"schema_version"`
	Columns       int    `json:"columns"`
}

// APIError is a non-success envelope returned by the server.
type APIError struct {
	Status int
	Kind   string
	Field  string
	Msg    string
}

func (e *APIError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("predictor: %d %s: %s", e.Status, e.Kind, e.Msg)
	}
	return fmt.Sprintf("predictor: %d %s", e.Status, e.Msg)
}

type envelope struct {
	Prediction *float64 `json:"prediction"`
	Success    bool     `json:"success"`
	Error      string   `json:"error"`
	Kind       string   `json:"kind"`
	Field      string   `json:"field"`
}

type Client struct {
	base string
	rest *resty.Client
}

func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(10 * time.Second) // default fallback
	}
	r.JSONMarshal = json.Marshal
	r.JSONUnmarshal = json.Unmarshal
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Predict scores b and returns the model output.
func (c *Client) Predict(ctx context.Context, b Book) (float64, error) {
	return c.PredictRecord(ctx, b)
}

// PredictRecord posts an arbitrary body, for callers holding a loosely
// typed record.
func (c *Client) PredictRecord(ctx context.Context, body any) (float64, error) {
	var env envelope
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString()).
		SetBody(body).
		SetResult(&env).
		SetError(&env).
		Post(c.base + "/api/predict")
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}

	if resp.IsError() || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return 0, &APIError{Status: resp.StatusCode(), Kind: env.Kind, Field: env.Field, Msg: msg}
	}
	if env.Prediction == nil {
		return 0, fmt.Errorf("response has no prediction: %s", resp.String())
	}
	return *env.Prediction, nil
}

// Health fetches /api/health.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	resp, err := c.rest.R().
		SetContext(ctx).
		SetResult(&h).
		Get(c.base + "/api/health")
	if err != nil {
		return Health{}, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return Health{}, &APIError{Status: resp.StatusCode(), Msg: resp.String()}
	}
	return h, nil
}
