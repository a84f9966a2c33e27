package sortify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPGateway talks to a hosted custom-label model over a JSON API:
// POST <url>/classify with a base64 image, GET <url>/model/status, and
// POST <url>/model/start | /model/stop for the model lifecycle.
type HTTPGateway struct {
	URL        string       // endpoint root, no trailing slash
	ModelARN   string       // identifies the hosted model version
	HTTPClient *http.Client // nil = http.DefaultClient
	UserAgent  string
	Timeout    time.Duration // per-call timeout (default: 30s)
}

const defaultGatewayTimeout = 30 * time.Second

type classifyRequest struct {
	Image         string  `json:"image"` // base64 JPEG bytes
	MinConfidence float64 `json:"min_confidence"`
	ModelARN      string  `json:"model_arn,omitempty"`
}

type classifyResponse struct {
	Labels []Label `json:"labels"`
}

// Classify submits compressed image bytes and returns the ranked label list.
// Transport failures, 429 and 5xx map to transient *RemoteError; any other
// non-200 status is permanent.
func (g *HTTPGateway) Classify(ctx context.Context, imageBytes []byte, minConfidence float64) ([]Label, error) {
	body, err := json.Marshal(classifyRequest{
		Image:         base64.StdEncoding.EncodeToString(imageBytes),
		MinConfidence: minConfidence,
		ModelARN:      g.ModelARN,
	})
	if err != nil {
		return nil, &RemoteError{Op: "classify", Err: err}
	}

	resp, err := g.post(ctx, "/classify", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := g.checkStatus("classify", resp); err != nil {
		return nil, err
	}

	var out classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &RemoteError{Op: "classify", Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Labels, nil
}

// ModelState is the lifecycle state of the hosted model version.
type ModelState string

const (
	ModelRunning  ModelState = "RUNNING"
	ModelStarting ModelState = "STARTING"
	ModelStopping ModelState = "STOPPING"
	ModelStopped  ModelState = "STOPPED"
	ModelFailed   ModelState = "FAILED"
)

type modelStatusResponse struct {
	Status ModelState `json:"status"`
}

// ModelStatus returns the current state of the hosted model version.
func (g *HTTPGateway) ModelStatus(ctx context.Context) (ModelState, error) {
	req, err := g.request(ctx, http.MethodGet, "/model/status", nil)
	if err != nil {
		return "", err
	}
	resp, err := g.do("status", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := g.checkStatus("status", resp); err != nil {
		return "", err
	}

	var out modelStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &RemoteError{Op: "status", Err: fmt.Errorf("decode response: %w", err)}
	}
	return out.Status, nil
}

type startModelRequest struct {
	ModelARN          string `json:"model_arn,omitempty"`
	MinInferenceUnits int    `json:"min_inference_units"`
}

// StartModel asks the service to start the hosted model version and polls
// until it reports RUNNING. Classification before that point fails transient.
func (g *HTTPGateway) StartModel(ctx context.Context, minInferenceUnits int) error {
	if minInferenceUnits <= 0 {
		minInferenceUnits = 1
	}
	body, err := json.Marshal(startModelRequest{ModelARN: g.ModelARN, MinInferenceUnits: minInferenceUnits})
	if err != nil {
		return &RemoteError{Op: "start", Err: err}
	}
	resp, err := g.post(ctx, "/model/start", body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if err := g.checkStatus("start", resp); err != nil {
		return err
	}
	return g.WaitForModel(ctx, 5*time.Second)
}

// WaitForModel polls the model status until RUNNING, a terminal failure, or
// ctx cancellation. Transient status errors keep the wait going.
func (g *HTTPGateway) WaitForModel(ctx context.Context, poll time.Duration) error {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		state, err := g.ModelStatus(ctx)
		switch {
		case err != nil && !IsTransient(err):
			return err
		case err == nil && state == ModelRunning:
			return nil
		case err == nil && state == ModelFailed:
			return &RemoteError{Op: "start", Err: errors.New("model entered FAILED state")}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// StopModel asks the service to stop the hosted model version.
func (g *HTTPGateway) StopModel(ctx context.Context) error {
	body, err := json.Marshal(startModelRequest{ModelARN: g.ModelARN})
	if err != nil {
		return &RemoteError{Op: "stop", Err: err}
	}
	resp, err := g.post(ctx, "/model/stop", body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return g.checkStatus("stop", resp)
}

func (g *HTTPGateway) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	op := path
	req, err := g.request(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return g.do(op, req)
}

func (g *HTTPGateway) request(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, g.URL+path, body)
	if err != nil {
		return nil, &RemoteError{Op: path, Err: err}
	}
	if g.UserAgent != "" {
		req.Header.Set("User-Agent", g.UserAgent)
	}
	return req, nil
}

func (g *HTTPGateway) do(op string, req *http.Request) (*http.Response, error) {
	client := g.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	if client.Timeout == 0 {
		timeout := g.Timeout
		if timeout <= 0 {
			timeout = defaultGatewayTimeout
		}
		c := *client
		c.Timeout = timeout
		client = &c
	}
	resp, err := client.Do(req)
	if err != nil {
		// Timeouts, refused connections, DNS hiccups: all worth retrying.
		return nil, &RemoteError{Op: op, Transient: true, Err: err}
	}
	return resp, nil
}

// checkStatus maps an HTTP status to the transient/permanent error split.
func (g *HTTPGateway) checkStatus(op string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &RemoteError{
			Op:        op,
			Status:    resp.StatusCode,
			Transient: true,
			Err:       fmt.Errorf("service returned %s", resp.Status),
		}
	default:
		return &RemoteError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("service returned %s", resp.Status),
		}
	}
}
