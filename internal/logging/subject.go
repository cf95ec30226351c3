package logging

import "strings"

// FormatSubject builds the job/stage/stem subject string used in console output.
func FormatSubject(jobID, stage, stem string) string {
	jobID = strings.TrimSpace(jobID)
	stage = strings.TrimSpace(stage)
	stem = strings.TrimSpace(stem)
	parts := make([]string, 0, 2)
	switch {
	case jobID != "" && stage != "":
		parts = append(parts, "Job "+jobID+" ("+stage+")")
	case jobID != "":
		parts = append(parts, "Job "+jobID)
	case stage != "":
		parts = append(parts, stage)
	}
	if stem != "" {
		parts = append(parts, strings.ReplaceAll(stem, "_", " "))
	}
	return strings.Join(parts, " · ")
}
