// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
)

// FakeLucida is an in-process stand-in for the conversion API.
//
// Point a client's APIURL and JobURL at Server.URL. Status polls report "pending" PendingPolls times before
// FinalStatus ("completed" unless set).
type FakeLucida struct {
	Server       *httptest.Server
	Handoff      string
	ServerName   string
	PendingPolls int
	FinalStatus  string
	FinalMessage string
	Reject       string // when set, submissions answer success=false with this error
	Body         []byte
	ContentType  string

	mu          sync.Mutex
	polls       int
	submissions []map[string]any
}

// NewFakeLucida starts a FakeLucida that serves body for handoff and closes it on test cleanup.
func NewFakeLucida(t *testing.T, handoff string, body []byte) *FakeLucida {
	t.Helper()
	f := &FakeLucida{Handoff: handoff, ServerName: "hund", Body: body, ContentType: "audio/flac"}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/load", f.submit)
	mux.HandleFunc("GET /api/fetch/request/{handoff}", f.status)
	mux.HandleFunc("GET /api/fetch/request/{handoff}/download", f.download)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// Polls returns the number of status queries received.
func (f *FakeLucida) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}

// Submissions returns the decoded submission bodies received.
func (f *FakeLucida) Submissions() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.submissions...)
}

func (f *FakeLucida) submit(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.submissions = append(f.submissions, body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if f.Reject != "" {
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": f.Reject})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"success": true, "handoff": f.Handoff, "server": f.ServerName})
}

func (f *FakeLucida) status(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("handoff") != f.Handoff {
		http.NotFound(w, r)
		return
	}

	f.mu.Lock()
	f.polls++
	n := f.polls
	f.mu.Unlock()

	resp := map[string]string{"status": "pending"}
	if n > f.PendingPolls {
		resp["status"] = f.FinalStatus
		if resp["status"] == "" {
			resp["status"] = "completed"
		}
		if f.FinalMessage != "" {
			resp["message"] = f.FinalMessage
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (f *FakeLucida) download(w http.ResponseWriter, r *http.Request) {
	if r.PathValue("handoff") != f.Handoff {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", f.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	w.Write(f.Body)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
