package models

// GenerationRequest is one user request from the form. Immutable once
// submitted, the orchestrator only reads it.
type GenerationRequest struct {
	Prompt               string  `json:"prompt"`
	Model                string  `json:"model"` // owner/name or owner/name:version
	AspectRatio          string  `json:"aspect_ratio"`
	NumOutputs           int     `json:"num_outputs"`
	NumInferenceSteps    int     `json:"num_inference_steps"`
	GuidanceScale        float64 `json:"guidance_scale"`
	LoraScale            float64 `json:"lora_scale"`
	Seed                 *int64  `json:"seed,omitempty"`
	OutputFormat         string  `json:"output_format"`
	OutputQuality        int     `json:"output_quality"`
	DisableSafetyChecker bool    `json:"disable_safety_checker"`
}

// DefaultGenerationRequest mirrors the form defaults.
func DefaultGenerationRequest() GenerationRequest {
	return GenerationRequest{
		AspectRatio:          "1:1",
		NumOutputs:           1,
		NumInferenceSteps:    28,
		GuidanceScale:        3.5,
		LoraScale:            1.0,
		OutputFormat:         "png",
		OutputQuality:        80,
		DisableSafetyChecker: true,
	}
}

// ToInput maps the request to the prediction input payload. numOutputs and
// seed are per submission, the orchestrator splits a request into
// single-output submissions.
func (r *GenerationRequest) ToInput(numOutputs int, seed *int64) map[string]interface{} {
	input := map[string]interface{}{
		"prompt":                 r.Prompt,
		"aspect_ratio":           r.AspectRatio,
		"num_outputs":            numOutputs,
		"num_inference_steps":    r.NumInferenceSteps,
		"guidance_scale":         r.GuidanceScale,
		"lora_scale":             r.LoraScale,
		"output_format":          r.OutputFormat,
		"output_quality":         r.OutputQuality,
		"disable_safety_checker": r.DisableSafetyChecker,
	}
	if seed != nil {
		input["seed"] = *seed
	}
	return input
}

// PredictionRequest is the remote submit payload.
type PredictionRequest struct {
	Version string                 `json:"version,omitempty"`
	Input   map[string]interface{} `json:"input"`
}

// PredictionUrls polling/cancel endpoints returned by the remote api.
type PredictionUrls struct {
	Get    string `json:"get"`
	Cancel string `json:"cancel"`
}

// Prediction is the remote job as reported by the api.
// Status one of: starting, processing, succeeded, failed, canceled.
type Prediction struct {
	Id     string         `json:"id"`
	Status string         `json:"status"`
	Output []string       `json:"output"`
	Error  string         `json:"error"`
	Urls   PredictionUrls `json:"urls"`
}

// ApiError remote error payload on non-2xx responses.
type ApiError struct {
	Detail string `json:"detail"`
	Title  string `json:"title"`
	Status int    `json:"status"`
}
