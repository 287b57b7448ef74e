package config

// env
const (
	API_TOKEN = "REPLICATE_API_TOKEN"
)

// task status
const (
	TASK_PENDING   = "pending"
	TASK_RUNNING   = "running"
	TASK_SUCCEEDED = "succeeded"
	TASK_FAILED    = "failed"
	TASK_CANCELLED = "cancelled"
)

// failure detail tags
const (
	DETAIL_FETCH_FAILED = "fetch_failed"
	DETAIL_TIMEOUT      = "timeout"
)

// ERROR message
const (
	INTERNALERROR = "an internal error"
	BADREQUEST    = "bad request body"
	NOTFOUND      = "not found"
)

// generation parameter bounds, same ranges the form exposes
const (
	MIN_STEPS       = 1
	MAX_STEPS       = 50
	MAX_GUIDANCE    = 10.0
	MAX_LORA_SCALE  = 1.0
	MAX_QUALITY     = 100
	PROMPT_MAX_SIZE = 4096
)

var AspectRatios = []string{
	"1:1", "16:9", "21:9", "3:2", "2:3", "4:5", "5:4", "3:4", "4:3", "9:16", "9:21",
}

var OutputFormats = []string{"png", "jpg", "webp"}
