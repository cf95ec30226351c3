package mockbackend

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"stemdeck/internal/audio"
	"stemdeck/internal/logging"
	"stemdeck/internal/separation"
	"stemdeck/internal/upload"
)

type job struct {
	id       string
	fileName string
	created  time.Time
	polls    int
	input    []byte
	failed   string
	done     bool
	assets   map[string][]byte
	stemURLs map[string]string
}

type submitBody struct {
	FileName  string `json:"fileName"`
	InputPath string `json:"inputPath"`
}

type submitResponse struct {
	JobID          string `json:"jobId"`
	StatusEndpoint string `json:"statusEndpoint"`
}

type statusResponse struct {
	Status   string            `json:"status"`
	Progress *float64          `json:"progress,omitempty"`
	Message  string            `json:"message,omitempty"`
	Stage    string            `json:"stage,omitempty"`
	ETA      *float64          `json:"etaSeconds,omitempty"`
	Stems    map[string]string `json:"stems,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if limited, wait := s.rateLimited(); limited {
		seconds := wait.Seconds()
		w.Header().Set("Retry-After", strconv.Itoa(int(seconds)))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:             "Too many separations in progress.",
			Code:              separation.CodeRateLimited,
			RetryAfterSeconds: &seconds,
		})
		return
	}

	name, data, status, err := s.readInput(w, r)
	if err != nil {
		writeError(w, status, err.Error(), "")
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "input is empty", "")
		return
	}

	s.mu.Lock()
	s.nextID++
	j := &job{
		id:       fmt.Sprintf("job_%d", s.nextID),
		fileName: name,
		created:  s.opts.Now(),
		input:    data,
	}
	s.jobs[j.id] = j
	s.mu.Unlock()

	s.logger.Info("job accepted",
		logging.JobID(j.id),
		logging.String("file", name),
		logging.Int("size_bytes", len(data)),
	)
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: j.id, StatusEndpoint: "/status/" + j.id})
}

func (s *Server) readInput(w http.ResponseWriter, r *http.Request) (string, []byte, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBytes+(1<<20))
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return "", nil, statusForBodyError(err), fmt.Errorf("parse multipart upload: %w", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, http.StatusBadRequest, errors.New("multipart field \"file\" is required")
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return "", nil, http.StatusBadRequest, fmt.Errorf("read upload: %w", err)
		}
		name := strings.TrimSpace(r.FormValue("fileName"))
		if name == "" {
			name = header.Filename
		}
		if int64(len(data)) > s.opts.MaxBytes {
			return "", nil, http.StatusRequestEntityTooLarge, errors.New("file exceeds the upload limit")
		}
		return name, data, 0, nil
	}

	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return "", nil, statusForBodyError(err), fmt.Errorf("decode request: %w", err)
	}
	if strings.TrimSpace(body.InputPath) == "" {
		return "", nil, http.StatusBadRequest, errors.New("inputPath is required")
	}
	name := strings.TrimSpace(body.FileName)
	if name == "" {
		name = path.Base(body.InputPath)
	}
	if bucket, key, ok := separation.ParseS3URL(body.InputPath); ok {
		if s.opts.Store == nil {
			return "", nil, http.StatusBadRequest, errors.New("object store inputs are not configured")
		}
		data, err := s.opts.Store.Get(r.Context(), bucket, key)
		if err != nil {
			return "", nil, http.StatusBadRequest, fmt.Errorf("read input object: %w", err)
		}
		return name, data, 0, nil
	}
	data, err := os.ReadFile(body.InputPath)
	if err != nil {
		return "", nil, http.StatusBadRequest, fmt.Errorf("read input path: %w", err)
	}
	return name, data, 0, nil
}

func statusForBodyError(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (s *Server) rateLimited() (bool, time.Duration) {
	if s.opts.MaxActiveJobs <= 0 {
		return false, 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked()
	active := 0
	for _, j := range s.jobs {
		if !j.done && j.failed == "" {
			active++
		}
	}
	return active >= s.opts.MaxActiveJobs, s.opts.RetryAfter
}

func (s *Server) expireLocked() {
	now := s.opts.Now()
	for id, j := range s.jobs {
		if now.Sub(j.created) > s.opts.TTL {
			delete(s.jobs, id)
			s.logger.Debug("job expired", logging.JobID(id))
		}
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	s.expireLocked()
	j, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "job not found or expired", "")
		return
	}
	resp := s.advanceLocked(j)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// advanceLocked moves j one poll forward: starting, Steps processing polls,
// then completed (or failed).
func (s *Server) advanceLocked(j *job) statusResponse {
	if j.failed != "" {
		return statusResponse{Status: separation.StatusFailed, Error: j.failed}
	}
	if j.done {
		return statusResponse{Status: separation.StatusCompleted, Stems: j.stemURLs}
	}
	j.polls++
	steps := s.opts.Steps
	switch {
	case j.polls == 1:
		zero := 0.0
		return statusResponse{Status: separation.StatusStarting, Progress: &zero, Message: "Loading separation model"}
	case j.polls <= steps+1:
		progress := float64(j.polls-1) * 100 / float64(steps+1)
		eta := float64(steps+2-j.polls) * etaPerStep.Seconds()
		resp := statusResponse{Status: separation.StatusProcessing, Progress: &progress, Message: "Separating stems", ETA: &eta}
		if j.polls == steps+1 {
			resp.Stage = "exporting"
			resp.Message = "Exporting stems"
		}
		return resp
	}

	if strings.Contains(strings.ToLower(j.fileName), "fail") {
		j.failed = "Separation failed for " + j.fileName
		return statusResponse{Status: separation.StatusFailed, Error: j.failed}
	}
	if err := s.renderLocked(j); err != nil {
		j.failed = err.Error()
		s.logger.Warn("separation failed", logging.JobID(j.id), logging.Error(err))
		return statusResponse{Status: separation.StatusFailed, Error: j.failed}
	}
	j.done = true
	j.input = nil
	return statusResponse{Status: separation.StatusCompleted, Stems: j.stemURLs}
}

func (s *Server) renderLocked(j *job) error {
	buf, err := audio.Decode(j.input)
	if err != nil {
		return fmt.Errorf("could not decode %s: %w", j.fileName, err)
	}
	parts := split(buf, s.opts.StemSet)
	j.assets = make(map[string][]byte, len(parts))
	j.stemURLs = make(map[string]string, len(parts))
	for _, name := range s.opts.StemSet.Names() {
		part, ok := parts[name]
		if !ok {
			continue
		}
		data, err := audio.EncodeWAVBytes(part)
		if err != nil {
			return fmt.Errorf("encode %s: %w", name, err)
		}
		file := string(name) + ".wav"
		j.assets[file] = data
		j.stemURLs[string(name)] = "assets/" + j.id + "/" + file
	}
	return nil
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	s.expireLocked()
	var data []byte
	if j, ok := s.jobs[vars["id"]]; ok {
		data = j.assets[vars["file"]]
	}
	s.mu.Unlock()
	if data == nil {
		writeError(w, http.StatusNotFound, "asset not found", "")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (s *Server) handleConstraints(w http.ResponseWriter, r *http.Request) {
	c := upload.Fallback()
	c.MaxBytes = s.opts.MaxBytes
	writeJSON(w, http.StatusOK, c)
}

// Jobs reports how many jobs are tracked.
func (s *Server) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}
