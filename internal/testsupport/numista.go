package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"coinenrich/internal/numista"
)

// FakeNumista is an in-process stand-in for the Numista catalog API.
type FakeNumista struct {
	Server *httptest.Server

	mu            sync.Mutex
	types         map[int64]numista.Type
	failures      map[int64]int
	results       []numista.SearchType
	detailCalls   int
	searchQueries []url.Values
}

// NewFakeNumista starts a fake catalog server that is closed with the test.
func NewFakeNumista(t testing.TB) *FakeNumista {
	t.Helper()

	fake := &FakeNumista{
		types:    make(map[int64]numista.Type),
		failures: make(map[int64]int),
	}
	fake.Server = httptest.NewServer(http.HandlerFunc(fake.handle))
	t.Cleanup(fake.Server.Close)
	return fake
}

// AddType registers a type detail served by GET /types/{id}.
func (f *FakeNumista) AddType(detail numista.Type) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types[detail.ID] = detail
}

// FailType makes GET /types/{id} answer with the given status.
func (f *FakeNumista) FailType(id int64, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[id] = status
}

// SetSearchResults sets the candidates returned by every search.
func (f *FakeNumista) SetSearchResults(results ...numista.SearchType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = results
}

// DetailCalls returns the number of detail requests served.
func (f *FakeNumista) DetailCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.detailCalls
}

// SearchQueries returns the query strings of every search request served.
func (f *FakeNumista) SearchQueries() []url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]url.Values(nil), f.searchQueries...)
}

// Client returns a catalog client wired to the fake with pacing disabled.
func (f *FakeNumista) Client(t testing.TB) *numista.Client {
	t.Helper()

	client, err := numista.New("test-key", f.Server.URL, "en",
		numista.WithHTTPClient(f.Server.Client()),
		numista.WithRequestDelay(time.Millisecond),
		numista.WithMaxRetries(1),
		numista.WithSleeper(func(time.Duration) {}),
	)
	if err != nil {
		t.Fatalf("numista.New: %v", err)
	}
	return client
}

func (f *FakeNumista) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.URL.Path == "/types" {
		f.searchQueries = append(f.searchQueries, r.URL.Query())
		writeJSON(w, http.StatusOK, numista.SearchResponse{Count: len(f.results), Types: f.results})
		return
	}

	raw, ok := strings.CutPrefix(r.URL.Path, "/types/")
	id, err := strconv.ParseInt(raw, 10, 64)
	if !ok || err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error_message": "unknown endpoint"})
		return
	}
	f.detailCalls++
	if status, failing := f.failures[id]; failing {
		writeJSON(w, status, map[string]string{"error_message": "forced failure"})
		return
	}
	detail, ok := f.types[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error_message": "type not found"})
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
