package main

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"stemdeck/internal/deps"
	"stemdeck/internal/job"
	"stemdeck/internal/stems"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("job_1", statusError, "upload failed", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "job_1:", "[ERROR] upload failed")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("job_1", statusOK, "2 stems ready", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestProgressPrinterCollapsesUpdates(t *testing.T) {
	var out bytes.Buffer
	p := newProgressPrinter(&out, false)

	polling := func(progress int) job.Snapshot {
		return job.Snapshot{
			State:  job.StatePolling,
			JobID:  "job_7",
			Status: job.ProcessingStatus{Stage: job.StageProcessing, Progress: progress},
		}
	}
	p.observe(job.Snapshot{State: job.StateSubmitting, FileName: "song.wav"})
	p.observe(polling(11))
	p.observe(polling(14))
	p.observe(polling(27))
	withETA := polling(55)
	withETA.Status.ETA = 90 * time.Second
	p.observe(withETA)
	p.observe(job.Snapshot{State: job.StateComplete, JobID: "job_7", Stems: []*stems.Result{{}, {}}})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d:\n%s", len(lines), out.String())
	}
	requireContains(t, lines[0], "uploading song.wav")
	requireContains(t, lines[1], "11%")
	requireContains(t, lines[2], "27%")
	requireContains(t, lines[3], "eta 01:30")
	requireContains(t, lines[4], "[OK] 2 stems ready")
}

func TestDependencyLines(t *testing.T) {
	statuses := []deps.Status{
		{Name: "Audio output", Command: "pacat", Available: true},
		{Name: "Visualizer", Command: "cava", Optional: true, Detail: "binary \"cava\" not found"},
		{Name: "Encoder"},
	}
	lines := dependencyLines(statuses, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	requireContains(t, lines[0], "[OK] Ready (command: pacat)")
	requireContains(t, lines[1], "[WARN] binary \"cava\" not found")
	requireContains(t, lines[2], "[ERROR] not available")
}

func TestJobStatusLine(t *testing.T) {
	if _, ok := jobStatusLine(job.Snapshot{State: job.StateIdle}, false); ok {
		t.Fatal("idle snapshots should print nothing")
	}
	line, ok := jobStatusLine(job.Snapshot{
		State:        job.StateError,
		JobID:        "job_3",
		Message:      "Please sign in to separate audio.",
		AuthRequired: true,
	}, false)
	if !ok {
		t.Fatal("expected an error line")
	}
	requireContains(t, line, "job_3:")
	requireContains(t, line, "[WARN] Please sign in")

	line, _ = jobStatusLine(job.Snapshot{State: job.StateError, Message: "Model ran out of memory"}, false)
	requireContains(t, line, "Separation:")
	requireContains(t, line, "[ERROR] Model ran out of memory")
}

func TestEncodeJSONKeepsSignedURLs(t *testing.T) {
	var out bytes.Buffer
	result := separateOutput{JobID: "job_1", Stems: []separateStemJSON{{Name: "vocals", URL: "https://cdn.example/v.wav?sig=a&exp=1"}}}
	if err := encodeJSON(&out, result); err != nil {
		t.Fatalf("encode: %v", err)
	}
	requireContains(t, out.String(), `"url": "https://cdn.example/v.wav?sig=a&exp=1"`)
}

func TestPrintStemTableFooterAndWrap(t *testing.T) {
	var out bytes.Buffer
	longURL := "https://cdn.example/stems/" + strings.Repeat("a", 2*locationWidth) + ".wav"
	printStemTable(&out, separateOutput{
		JobID: "job_9",
		File:  "song.mp3",
		Stems: []separateStemJSON{
			{Label: "Vocals", Duration: 3.5, URL: longURL},
			{Label: "Music", Duration: 4.25, Exported: "/tmp/song_no_vocals.wav"},
		},
	})
	got := out.String()
	requireContains(t, got, "Job job_9: 2 stems for song.mp3")
	requireContains(t, got, "/tmp/song_no_vocals.wav")
	requireContains(t, strings.ToLower(got), "2 stems")
	requireContains(t, got, "4.25s")
	if strings.Contains(got, longURL) {
		t.Fatalf("expected long location to wrap:\n%s", got)
	}
}
