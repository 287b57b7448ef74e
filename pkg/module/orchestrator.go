package module

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rtuszik/flux-gallery/pkg/config"
	"github.com/rtuszik/flux-gallery/pkg/datastore"
	"github.com/rtuszik/flux-gallery/pkg/models"
	"github.com/rtuszik/flux-gallery/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Result is one terminal unit outcome, emitted in completion order.
type Result struct {
	RunId   string          `json:"runId"`
	TaskId  string          `json:"taskId"`
	Index   int             `json:"index"`
	Status  string          `json:"status"`
	Detail  string          `json:"detail,omitempty"`
	Error   string          `json:"error,omitempty"`
	ErrKind string          `json:"errKind,omitempty"`
	Entries []*GalleryEntry `json:"entries,omitempty"`
	Err     error           `json:"-"`
}

// Orchestrator fans a generation request out to N independent remote jobs,
// resolves them as they complete and reconciles results into the gallery.
type Orchestrator struct {
	client    *ReplicateClient
	fetcher   *Fetcher
	gallery   *Gallery
	settings  *SettingsManager
	taskStore datastore.Datastore
	registry  *RunRegistry

	maxOutputs int
}

func NewOrchestrator(cfg *config.Config, client *ReplicateClient, fetcher *Fetcher,
	gallery *Gallery, settings *SettingsManager, taskStore datastore.Datastore) *Orchestrator {
	return &Orchestrator{
		client:     client,
		fetcher:    fetcher,
		gallery:    gallery,
		settings:   settings,
		taskStore:  taskStore,
		registry:   NewRunRegistry(),
		maxOutputs: cfg.MaxOutputs,
	}
}

// Registry the in-flight run registry, for cancel/status lookup.
func (o *Orchestrator) Registry() *RunRegistry {
	return o.registry
}

// Generate validate the request, fan out one submission per requested
// output and return a channel of incremental results. The channel emits
// exactly NumOutputs results, one per unit as it reaches a terminal state,
// then closes. A ValidationError is the only way to fail before work starts.
func (o *Orchestrator) Generate(ctx context.Context, req *models.GenerationRequest) (*Run, <-chan Result, error) {
	if err := o.validate(req); err != nil {
		return nil, nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		Id:      uuid.NewString(),
		Request: *req,
		cancel:  cancel,
		done:    make(chan struct{}),
		counts:  make(map[string]int),
	}
	o.registry.Add(run)
	if o.settings != nil {
		if err := o.settings.RememberParams(*req); err != nil {
			logrus.Warnf("remember params err=%s", err.Error())
		}
	}

	results := make(chan Result, req.NumOutputs)
	var wg sync.WaitGroup
	for i := 0; i < req.NumOutputs; i++ {
		task := &Task{
			Id:          uuid.NewString(),
			RunId:       run.Id,
			Index:       i,
			Status:      config.TASK_PENDING,
			SubmittedAt: time.Now(),
		}
		o.putTaskRow(task, req)
		wg.Add(1)
		go func(task *Task) {
			defer wg.Done()
			o.runUnit(runCtx, run, task, req, results)
		}(task)
	}

	go func() {
		// wait for all units, then release the run
		wg.Wait()
		o.registry.Delete(run.Id)
		close(results)
		close(run.done)
		cancel()
	}()

	return run, results, nil
}

// runUnit drive one task to a terminal state: submit, await, fetch, append.
// Failures stay local to this unit.
func (o *Orchestrator) runUnit(ctx context.Context, run *Run, task *Task,
	req *models.GenerationRequest, results chan<- Result) {
	fields := logrus.Fields{"runId": run.Id, "taskId": task.Id, "index": task.Index}

	// cancelled before any network call
	select {
	case <-ctx.Done():
		o.finishUnit(run, task, results, config.TASK_CANCELLED, "", nil, nil)
		return
	default:
	}

	var seed *int64
	if req.Seed != nil {
		seed = utils.Int64(*req.Seed + int64(task.Index))
	}
	pred, err := o.client.Submit(ctx, req.Model, req.ToInput(1, seed))
	if err != nil {
		if ctx.Err() != nil {
			o.finishUnit(run, task, results, config.TASK_CANCELLED, "", nil, nil)
			return
		}
		logrus.WithFields(fields).Errorf("submit err=%s", err.Error())
		o.finishUnit(run, task, results, config.TASK_FAILED, "", nil, err)
		return
	}
	task.PredictionId = pred.Id
	task.setStatus(config.TASK_RUNNING)
	o.updateTaskRow(task)
	logrus.WithFields(fields).Infof("submitted prediction %s", pred.Id)

	pred, err = o.client.Await(ctx, pred)
	if err != nil {
		detail := ""
		var timeoutErr *TimeoutError
		if errors.As(err, &timeoutErr) {
			detail = config.DETAIL_TIMEOUT
		}
		logrus.WithFields(fields).Errorf("await err=%s", err.Error())
		o.finishUnit(run, task, results, config.TASK_FAILED, detail, nil, err)
		return
	}
	switch pred.Status {
	case predCanceled:
		o.finishUnit(run, task, results, config.TASK_CANCELLED, "", nil, nil)
		return
	case predFailed:
		remoteErr := &RemoteGenerationError{PredictionId: pred.Id, Reason: pred.Error}
		logrus.WithFields(fields).Errorf("remote failure: %s", pred.Error)
		o.finishUnit(run, task, results, config.TASK_FAILED, "", nil, remoteErr)
		return
	}

	if len(pred.Output) == 0 {
		err := &RemoteGenerationError{PredictionId: pred.Id, Reason: "prediction succeeded with no output"}
		o.finishUnit(run, task, results, config.TASK_FAILED, "", nil, err)
		return
	}
	task.OutputUrls = pred.Output

	entries := make([]*GalleryEntry, 0, len(pred.Output))
	for i, url := range pred.Output {
		asset, err := o.fetcher.Fetch(ctx, url, task.Id, i)
		if err != nil {
			// remote success, local delivery failure: the unit counts as
			// failed but the remote outcome is kept visible in the log
			logrus.WithFields(fields).Errorf(
				"prediction %s succeeded remotely but asset fetch failed: %s", pred.Id, err.Error())
			o.finishUnit(run, task, results, config.TASK_FAILED, config.DETAIL_FETCH_FAILED, entries, err)
			return
		}
		entry := NewGalleryEntry(task, req, url, asset.Path)
		o.gallery.Append(entry)
		entries = append(entries, entry)
	}
	logrus.WithFields(fields).Infof("unit finished, %d image(s)", len(entries))
	o.finishUnit(run, task, results, config.TASK_SUCCEEDED, "", entries, nil)
}

// finishUnit record the terminal state and emit the unit's result.
func (o *Orchestrator) finishUnit(run *Run, task *Task, results chan<- Result,
	status, detail string, entries []*GalleryEntry, err error) {
	task.setStatus(status)
	task.Detail = detail
	task.Err = err
	o.updateTaskRow(task)
	if o.taskStore != nil && len(entries) > 0 {
		paths := make([]string, 0, len(entries))
		for _, entry := range entries {
			paths = append(paths, entry.FilePath)
		}
		if err := o.taskStore.Update(task.Id, map[string]interface{}{
			datastore.KTaskImage: strings.Join(paths, ","),
		}); err != nil {
			logrus.WithFields(logrus.Fields{"taskId": task.Id}).Errorf("update task image err=%s", err.Error())
		}
	}
	run.recordTerminal(task.Status)

	result := Result{
		RunId:   run.Id,
		TaskId:  task.Id,
		Index:   task.Index,
		Status:  task.Status,
		Detail:  detail,
		Entries: entries,
		Err:     err,
	}
	if err != nil {
		result.Error = err.Error()
		result.ErrKind = errKind(err)
	}
	results <- result
}

func (o *Orchestrator) validate(req *models.GenerationRequest) error {
	if req.Prompt == "" {
		return &ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if len(req.Prompt) > config.PROMPT_MAX_SIZE {
		return &ValidationError{Field: "prompt", Reason: "too long"}
	}
	if req.Model == "" {
		return &ValidationError{Field: "model", Reason: "must not be empty"}
	}
	if req.NumOutputs < 1 || req.NumOutputs > o.maxOutputs {
		return &ValidationError{Field: "num_outputs",
			Reason: fmt.Sprintf("must be between 1 and %d", o.maxOutputs)}
	}
	if req.NumInferenceSteps < config.MIN_STEPS || req.NumInferenceSteps > config.MAX_STEPS {
		return &ValidationError{Field: "num_inference_steps",
			Reason: fmt.Sprintf("must be between %d and %d", config.MIN_STEPS, config.MAX_STEPS)}
	}
	if req.GuidanceScale < 0 || req.GuidanceScale > config.MAX_GUIDANCE {
		return &ValidationError{Field: "guidance_scale", Reason: "out of range"}
	}
	if req.LoraScale < 0 || req.LoraScale > config.MAX_LORA_SCALE {
		return &ValidationError{Field: "lora_scale", Reason: "out of range"}
	}
	if req.OutputQuality < 0 || req.OutputQuality > config.MAX_QUALITY {
		return &ValidationError{Field: "output_quality", Reason: "out of range"}
	}
	if !containsStr(config.AspectRatios, req.AspectRatio) {
		return &ValidationError{Field: "aspect_ratio", Reason: "unknown ratio"}
	}
	if !containsStr(config.OutputFormats, req.OutputFormat) {
		return &ValidationError{Field: "output_format", Reason: "unknown format"}
	}
	return nil
}

func (o *Orchestrator) putTaskRow(task *Task, req *models.GenerationRequest) {
	if o.taskStore == nil {
		return
	}
	params, _ := json.Marshal(req)
	if err := o.taskStore.Put(task.Id, map[string]interface{}{
		datastore.KTaskRunId:      task.RunId,
		datastore.KTaskIndex:      int64(task.Index),
		datastore.KTaskStatus:     task.Status,
		datastore.KTaskParams:     string(params),
		datastore.KTaskCreateTime: fmt.Sprintf("%d", utils.TimestampS()),
		datastore.KTaskModifyTime: fmt.Sprintf("%d", utils.TimestampS()),
	}); err != nil {
		logrus.WithFields(logrus.Fields{"taskId": task.Id}).Errorf("put task row err=%s", err.Error())
	}
}

func (o *Orchestrator) updateTaskRow(task *Task) {
	if o.taskStore == nil {
		return
	}
	values := map[string]interface{}{
		datastore.KTaskStatus:       task.Status,
		datastore.KTaskDetail:       task.Detail,
		datastore.KTaskPredictionId: task.PredictionId,
		datastore.KTaskModifyTime:   fmt.Sprintf("%d", utils.TimestampS()),
	}
	if task.Err != nil {
		values[datastore.KTaskDetail] = firstNonEmpty(task.Detail, task.Err.Error())
	}
	if err := o.taskStore.Update(task.Id, values); err != nil {
		logrus.WithFields(logrus.Fields{"taskId": task.Id}).Errorf("update task row err=%s", err.Error())
	}
}

func errKind(err error) string {
	var (
		validationErr *ValidationError
		transportErr  *TransportError
		remoteErr     *RemoteGenerationError
		downloadErr   *DownloadError
		timeoutErr    *TimeoutError
		configErr     *ConfigError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &remoteErr):
		return "remote"
	case errors.As(err, &downloadErr):
		return "download"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &configErr):
		return "config"
	}
	return "internal"
}

func containsStr(s []string, v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
