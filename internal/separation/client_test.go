package separation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"stemdeck/internal/auth"
	"stemdeck/internal/config"
	"stemdeck/internal/media"
	"stemdeck/internal/objecturl"
	"stemdeck/internal/separation"
	"stemdeck/internal/services"
	"stemdeck/internal/testsupport"
)

func newClient(t *testing.T, baseURL string, opts ...separation.Option) *separation.Client {
	t.Helper()
	return newClientMode(t, baseURL, config.UploadModeMultipart, opts...)
}

func newClientMode(t *testing.T, baseURL, mode string, opts ...separation.Option) *separation.Client {
	t.Helper()
	opts = append([]separation.Option{
		separation.WithTokenProvider(auth.StaticToken("secret")),
		separation.WithSleeper(func(time.Duration) {}),
	}, opts...)
	client, err := separation.NewClient(separation.Config{BaseURL: baseURL, UploadMode: mode, InputPrefix: "inputs/"}, opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func openTrack(t *testing.T) *media.AudioFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	testsupport.WriteFile(t, path, 2048)
	file, err := media.Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return file
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestSubmitMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/separate" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("fileName"); got != "track.mp3" {
			t.Errorf("fileName = %q", got)
		}
		f, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if len(data) != 2048 || header.Filename != "track.mp3" {
				t.Errorf("uploaded %d bytes as %q", len(data), header.Filename)
			}
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"jobId": "job_1", "statusEndpoint": "/status/job_1"})
	}))
	defer srv.Close()

	resp, err := newClient(t, srv.URL+"/api/").Submit(context.Background(), openTrack(t))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.JobID != "job_1" || resp.StatusEndpoint != "/status/job_1" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSubmitPathMode(t *testing.T) {
	file := openTrack(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			FileName  string `json:"fileName"`
			InputPath string `json:"inputPath"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.FileName != "track.mp3" || body.InputPath != file.Path {
			t.Errorf("unexpected body %+v", body)
		}
		writeJSON(w, http.StatusOK, map[string]string{"jobId": "job_2"})
	}))
	defer srv.Close()

	resp, err := newClientMode(t, srv.URL, config.UploadModePath).Submit(context.Background(), file)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.JobID != "job_2" || resp.StatusEndpoint != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memoryStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects["media/"+key] = data
	return separation.S3URL("media", key), nil
}

func (m *memoryStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}

func TestSubmitObjectStoreMode(t *testing.T) {
	store := &memoryStore{}
	var inputPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			InputPath string `json:"inputPath"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		inputPath = body.InputPath
		writeJSON(w, http.StatusOK, map[string]string{"jobId": "job_3"})
	}))
	defer srv.Close()

	client := newClientMode(t, srv.URL, config.UploadModeObjectStore, separation.WithObjectStore(store))
	if _, err := client.Submit(context.Background(), openTrack(t)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	bucket, key, ok := separation.ParseS3URL(inputPath)
	if !ok || bucket != "media" || !strings.HasPrefix(key, "inputs/") || !strings.HasSuffix(key, "/track.mp3") {
		t.Fatalf("unexpected input path %q", inputPath)
	}
	data, err := client.Fetch(context.Background(), inputPath)
	if err != nil || len(data) != 2048 {
		t.Fatalf("fetch uploaded object: %d bytes, %v", len(data), err)
	}
}

func TestSubmitRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":             "Daily separation limit reached.",
			"code":              "RATE_LIMITED",
			"retryAfterSeconds": 90,
		})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Submit(context.Background(), openTrack(t))
	var rateErr *separation.RateLimitedError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitedError, got %v", err)
	}
	if rateErr.RetryAfter != 90*time.Second {
		t.Fatalf("retry after = %s", rateErr.RetryAfter)
	}
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatal("expected rate limited marker")
	}
	msg := services.UserMessage(err)
	if msg != "Daily separation limit reached. Please wait 90 seconds before trying again." {
		t.Fatalf("user message = %q", msg)
	}
}

func TestSubmitRateLimitedByCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Slow down.", "code": "RATE_LIMITED"})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Submit(context.Background(), openTrack(t))
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
}

func TestSubmitIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "overloaded"})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Submit(context.Background(), openTrack(t))
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
	if got := services.UserMessage(err); got != "overloaded" {
		t.Fatalf("user message = %q", got)
	}
}

func TestSubmitWithoutTokenMakesNoRequest(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := newClient(t, srv.URL, separation.WithTokenProvider(auth.StaticToken("")))
	_, err := client.Submit(context.Background(), openTrack(t))
	if !errors.Is(err, auth.ErrAuthRequired) {
		t.Fatalf("expected auth required, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no requests, got %d", calls)
	}
}

func TestStatusPrefersStatusEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status/job_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "Processing", "progress": 40, "message": "Separating"})
	}))
	defer srv.Close()

	status, err := newClient(t, srv.URL).Status(context.Background(), "job_1", "/status/job_1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.Status != separation.StatusProcessing || status.Progress == nil || *status.Progress != 40 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Terminal() {
		t.Fatal("processing is not terminal")
	}
}

func TestStatusFallsBackToJobPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/separate/job_9" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "completed", "stems": map[string]string{"vocals": "out/vocals.wav"}})
	}))
	defer srv.Close()

	status, err := newClient(t, srv.URL).Status(context.Background(), "job_9", "")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Terminal() || status.Stems["vocals"] != "out/vocals.wav" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		marker error
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"error":"gone"}`, marker: services.ErrNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{}`, marker: services.ErrAuthRequired},
		{name: "server error", status: http.StatusBadGateway, body: `oops`, marker: services.ErrTransient},
		{name: "malformed", status: http.StatusOK, body: `{"status":`, marker: services.ErrTransient},
		{name: "unknown status", status: http.StatusOK, body: `{"status":"queued-ish"}`, marker: services.ErrTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := newClient(t, srv.URL).Status(context.Background(), "job_1", "")
			if !errors.Is(err, tt.marker) {
				t.Fatalf("expected %v, got %v", tt.marker, err)
			}
			if calls != 1 {
				t.Fatalf("status must not retry, got %d calls", calls)
			}
		})
	}
}

func TestNotFoundUserMessage(t *testing.T) {
	err := &separation.HTTPStatusError{StatusCode: http.StatusNotFound, Message: "job expired"}
	if got := services.UserMessage(err); !strings.Contains(got, "not found or expired") {
		t.Fatalf("user message = %q", got)
	}
}

func TestFetchResolvesRelativeAndRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/out/vocals.wav" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("RIFF"))
	}))
	defer srv.Close()

	var slept []time.Duration
	client := newClient(t, srv.URL+"/api", separation.WithSleeper(func(d time.Duration) { slept = append(slept, d) }))
	data, err := client.Fetch(context.Background(), "out/vocals.wav")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(data) != "RIFF" || calls != 2 || len(slept) != 1 {
		t.Fatalf("data=%q calls=%d slept=%v", data, calls, slept)
	}
}

func TestFetchDoesNotLeakTokenToOtherHosts(t *testing.T) {
	cdn := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("unexpected authorization header %q", auth)
		}
		_, _ = w.Write([]byte("data"))
	}))
	defer cdn.Close()

	client := newClient(t, "http://service.invalid")
	if _, err := client.Fetch(context.Background(), cdn.URL+"/stems/a.wav"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestFetchObjectURL(t *testing.T) {
	registry := objecturl.NewRegistry()
	handle := registry.Create([]byte("pcm"))
	defer handle.Release()

	client := newClient(t, "http://service.invalid", separation.WithRegistry(registry))
	data, err := client.Fetch(context.Background(), handle.URL())
	if err != nil || !bytes.Equal(data, []byte("pcm")) {
		t.Fatalf("Fetch: %q, %v", data, err)
	}
}

func TestConstraintsRetriesThenDecodes(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"mimeTypes":  []string{"audio/wav"},
			"extensions": []string{".wav"},
			"maxBytes":   1024,
		})
	}))
	defer srv.Close()

	c, err := newClient(t, srv.URL).Constraints(context.Background())
	if err != nil {
		t.Fatalf("Constraints: %v", err)
	}
	if calls != 3 || c.MaxBytes != 1024 || len(c.Extensions) != 1 {
		t.Fatalf("calls=%d constraints=%+v", calls, c)
	}
}

func TestNewClientRejectsBadBaseURL(t *testing.T) {
	_, err := separation.NewClient(separation.Config{BaseURL: "not a url"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
