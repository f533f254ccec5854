package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	service "github.com/okian/fitscore/internal/app"
	"github.com/okian/fitscore/internal/domain/model"
	"github.com/okian/fitscore/internal/domain/roster"
)

// Client talks to the FitScore HTTP API. The cookie jar keeps the identity
// cookie, so every form after the first reuses one anonymous identity.
type Client struct {
	base string
	http *http.Client
}

// NewClient creates a client for base with a per-request timeout.
func NewClient(base string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		base: base,
		http: &http.Client{Timeout: timeout, Jar: jar},
	}
}

// apiError is the JSON error body of the API.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		e := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, e)
		return e
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Health checks /healthz.
func (c *Client) Health(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/healthz", nil, nil); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	return nil
}

// OpenForm mounts a form.
func (c *Client) OpenForm(ctx context.Context) (service.FormState, error) {
	var st service.FormState
	err := c.do(ctx, http.MethodPost, "/api/forms", nil, &st)
	return st, err
}

// WaitReady polls the form until sign-in settles.
func (c *Client) WaitReady(ctx context.Context, id string, every time.Duration) (service.FormState, error) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		var st service.FormState
		if err := c.do(ctx, http.MethodGet, "/api/forms/"+id, nil, &st); err != nil {
			return st, err
		}
		switch {
		case st.AuthError != "":
			return st, fmt.Errorf("%w: %s", ErrAuthFailed, st.AuthError)
		case st.AuthReady:
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, fmt.Errorf("%w: %w", ErrAuthTimeout, ctx.Err())
		case <-t.C:
		}
	}
}

// Submit posts an evaluation to a ready form.
func (c *Client) Submit(ctx context.Context, id string, ev model.Evaluation) (service.Confirmation, error) {
	var conf service.Confirmation
	err := c.do(ctx, http.MethodPost, "/api/forms/"+id+"/submit", ev, &conf)
	return conf, err
}

// Candidates reads one roster frame.
func (c *Client) Candidates(ctx context.Context) (roster.Frame, error) {
	var f roster.Frame
	err := c.do(ctx, http.MethodGet, "/api/candidates", nil, &f)
	return f, err
}
