package module

import "fmt"

// ValidationError bad request shape, rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// TransportError network or api unreachable. Retry is caller policy.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error on %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteGenerationError the remote service rejected or failed the job.
type RemoteGenerationError struct {
	PredictionId string
	Reason       string
}

func (e *RemoteGenerationError) Error() string {
	return fmt.Sprintf("remote generation failed (prediction %s): %s", e.PredictionId, e.Reason)
}

// DownloadError asset fetch failed after a nominally successful job.
type DownloadError struct {
	Url        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("download %s failed: %v", e.Url, e.Err)
	}
	return fmt.Sprintf("download %s failed: status %d", e.Url, e.StatusCode)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// TimeoutError no terminal state before the configured ceiling.
type TimeoutError struct {
	PredictionId string
	CeilingSec   int32
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("prediction %s did not finish within %ds", e.PredictionId, e.CeilingSec)
}

// ConfigError settings/config file unreadable, caller falls back to defaults.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
