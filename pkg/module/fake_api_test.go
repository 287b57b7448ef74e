package module

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// fakeBehavior scripts one prediction's lifecycle on the fake api.
type fakeBehavior struct {
	pollsToFinish int
	finalStatus   string
	errText       string
	outputs       []string // asset paths on the fake server
	never         bool     // stay in processing forever
}

// fakeAPI is an in-process prediction api plus asset host. Behaviors are
// assigned to predictions in submission order.
type fakeAPI struct {
	mu        sync.Mutex
	submitted int
	polls     map[string]int
	behavior  map[string]fakeBehavior
	scripted  []fakeBehavior
	srv       *httptest.Server
}

func newFakeAPI(behaviors ...fakeBehavior) *fakeAPI {
	f := &fakeAPI{
		polls:    make(map[string]int),
		behavior: make(map[string]fakeBehavior),
		scripted: behaviors,
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	return f
}

func (f *fakeAPI) Close() { f.srv.Close() }

func (f *fakeAPI) URL() string { return f.srv.URL }

func (f *fakeAPI) submittedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

func (f *fakeAPI) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == "POST" && strings.HasSuffix(r.URL.Path, "/predictions"):
		f.handleSubmit(w)
	case r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/v1/predictions/"):
		f.handlePoll(w, strings.TrimPrefix(r.URL.Path, "/v1/predictions/"))
	case r.Method == "GET" && strings.HasPrefix(r.URL.Path, "/assets/"):
		f.handleAsset(w, r.URL.Path)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) handleSubmit(w http.ResponseWriter) {
	f.mu.Lock()
	idx := f.submitted
	f.submitted++
	id := fmt.Sprintf("p%d", idx)
	b := fakeBehavior{pollsToFinish: 1, finalStatus: "succeeded", outputs: []string{"/assets/out.png"}}
	if idx < len(f.scripted) {
		b = f.scripted[idx]
	}
	f.behavior[id] = b
	f.mu.Unlock()

	resp := map[string]interface{}{
		"id":     id,
		"status": "starting",
		"urls": map[string]string{
			"get":    f.srv.URL + "/v1/predictions/" + id,
			"cancel": f.srv.URL + "/v1/predictions/" + id + "/cancel",
		},
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeAPI) handlePoll(w http.ResponseWriter, id string) {
	f.mu.Lock()
	b, ok := f.behavior[id]
	if !ok {
		f.mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
		return
	}
	f.polls[id]++
	polls := f.polls[id]
	f.mu.Unlock()

	resp := map[string]interface{}{
		"id":     id,
		"status": "processing",
		"urls": map[string]string{
			"get": f.srv.URL + "/v1/predictions/" + id,
		},
	}
	if !b.never && polls >= b.pollsToFinish {
		resp["status"] = b.finalStatus
		if b.errText != "" {
			resp["error"] = b.errText
		}
		urls := make([]string, 0, len(b.outputs))
		for _, out := range b.outputs {
			urls = append(urls, f.srv.URL+out)
		}
		if len(urls) > 0 {
			resp["output"] = urls
		}
	}
	json.NewEncoder(w).Encode(resp)
}

func (f *fakeAPI) handleAsset(w http.ResponseWriter, path string) {
	if strings.Contains(path, "missing") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write([]byte("png-bytes-" + path))
}

func newTestClient(base string) *ReplicateClient {
	return &ReplicateClient{
		httpClient:   &http.Client{Timeout: 5 * time.Second},
		apiBase:      base,
		token:        func() string { return "test-token" },
		pollInterval: 5 * time.Millisecond,
		waitCeiling:  2 * time.Second,
	}
}

func newTestFetcher(outputDir string) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		outputDir:  outputDir,
	}
}
