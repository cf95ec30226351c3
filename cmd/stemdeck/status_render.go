package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"stemdeck/internal/job"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 14
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

// jobStatusLine renders one progress line for a controller snapshot. ok is
// false for snapshots that print nothing.
func jobStatusLine(snap job.Snapshot, colorize bool) (string, bool) {
	kind := statusInfo
	message := string(snap.Status.Stage)
	switch snap.State {
	case job.StateIdle:
		return "", false
	case job.StateSubmitting:
		message = "uploading " + snap.FileName
	case job.StatePolling:
		message = fmt.Sprintf("%s %d%%", snap.Status.Stage, snap.Status.Progress)
		if snap.Status.Message != "" {
			message += " · " + snap.Status.Message
		}
		if snap.Status.HasETA() {
			message += " · eta " + formatSeconds(snap.Status.ETA.Seconds())
		}
	case job.StateLoadingResults:
		message = "downloading stems"
	case job.StateComplete:
		kind = statusOK
		message = fmt.Sprintf("%d stems ready", len(snap.Stems))
	case job.StateError:
		kind = statusError
		if snap.AuthRequired {
			kind = statusWarn
		}
		message = snap.Message
	}
	label := "Separation"
	if snap.JobID != "" {
		label = snap.JobID
	}
	return renderStatusLine(label, kind, message, colorize), true
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
