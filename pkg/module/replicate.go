package module

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rtuszik/flux-gallery/pkg/config"
	"github.com/rtuszik/flux-gallery/pkg/models"
	"github.com/sirupsen/logrus"
)

// remote prediction status
const (
	predStarting   = "starting"
	predProcessing = "processing"
	predSucceeded  = "succeeded"
	predFailed     = "failed"
	predCanceled   = "canceled"
)

// TokenProvider returns the current api token. The user can change the key
// at runtime through settings, so the client never caches it.
type TokenProvider func() string

// ReplicateClient wraps the hosted prediction api: submit a job, poll it to
// a terminal state. No retry policy here, callers decide.
type ReplicateClient struct {
	httpClient   *http.Client
	apiBase      string
	token        TokenProvider
	pollInterval time.Duration
	waitCeiling  time.Duration
}

func NewReplicateClient(cfg *config.Config, token TokenProvider) *ReplicateClient {
	return &ReplicateClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.HttpTimeout) * time.Second,
		},
		apiBase:      strings.TrimRight(cfg.ApiBase, "/"),
		token:        token,
		pollInterval: time.Duration(cfg.PollInterval) * time.Second,
		waitCeiling:  time.Duration(cfg.WaitCeiling) * time.Second,
	}
}

// Submit send one prediction request. model is either owner/name, routed to
// the model predictions endpoint, or owner/name:version, routed to the
// generic endpoint with an explicit version.
func (r *ReplicateClient) Submit(ctx context.Context, model string,
	input map[string]interface{}) (*models.Prediction, error) {
	var url string
	payload := models.PredictionRequest{Input: input}
	if idx := strings.LastIndex(model, ":"); idx != -1 {
		payload.Version = model[idx+1:]
		url = fmt.Sprintf("%s/v1/predictions", r.apiBase)
	} else {
		url = fmt.Sprintf("%s/v1/models/%s/predictions", r.apiBase, model)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ValidationError{Field: "input", Reason: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return nil, &TransportError{Op: "submit", Err: err}
	}
	r.setHeaders(req)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "submit", Err: err}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, &RemoteGenerationError{Reason: apiErrorReason(resp.StatusCode, data)}
	}
	pred := new(models.Prediction)
	if err := json.Unmarshal(data, pred); err != nil {
		return nil, &TransportError{Op: "submit", Err: err}
	}
	return pred, nil
}

// Await poll the prediction until it is terminal. Remote failures come back
// as status failed with the reason on the prediction, not as a Go error.
// Context cancellation returns within one poll interval with status
// canceled and no error. The wait ceiling turns into a TimeoutError.
func (r *ReplicateClient) Await(ctx context.Context, pred *models.Prediction) (*models.Prediction, error) {
	deadline := time.NewTimer(r.waitCeiling)
	defer deadline.Stop()
	for {
		switch pred.Status {
		case predSucceeded, predFailed, predCanceled:
			return pred, nil
		}
		select {
		case <-ctx.Done():
			pred.Status = predCanceled
			return pred, nil
		case <-deadline.C:
			return pred, &TimeoutError{PredictionId: pred.Id, CeilingSec: int32(r.waitCeiling / time.Second)}
		case <-time.After(r.pollInterval):
		}
		next, err := r.poll(ctx, pred)
		if err != nil {
			if ctx.Err() != nil {
				// cancelled while the poll call was in flight
				pred.Status = predCanceled
				return pred, nil
			}
			return pred, err
		}
		logrus.WithFields(logrus.Fields{"predictionId": pred.Id}).
			Debugf("prediction status %s", next.Status)
		pred = next
	}
}

func (r *ReplicateClient) poll(ctx context.Context, pred *models.Prediction) (*models.Prediction, error) {
	url := pred.Urls.Get
	if url == "" {
		url = fmt.Sprintf("%s/v1/predictions/%s", r.apiBase, pred.Id)
	}
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: err}
	}
	r.setHeaders(req)
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "poll", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "poll",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, apiErrorReason(resp.StatusCode, data))}
	}
	next := new(models.Prediction)
	if err := json.Unmarshal(data, next); err != nil {
		return nil, &TransportError{Op: "poll", Err: err}
	}
	return next, nil
}

func (r *ReplicateClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Token "+r.token())
	req.Header.Set("Content-Type", "application/json")
}

func apiErrorReason(code int, body []byte) string {
	apiErr := new(models.ApiError)
	if err := json.Unmarshal(body, apiErr); err == nil && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fmt.Sprintf("api status %d", code)
}
