package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"stemdeck/internal/job"
	"stemdeck/internal/waveform"
)

// View renders the player. It records the waveform row position for mouse
// seeking, so it runs on a pointer receiver.
func (m *Model) View() string {
	w := max(40, m.width-6)
	var b strings.Builder
	title := m.opts.Title
	if title == "" {
		title = "stemdeck"
	}
	fmt.Fprintln(&b, titleStyle.Render(title))
	row := 1

	if m.hasJob {
		status := m.renderJob(w)
		fmt.Fprintln(&b, panelStyle.Render(status))
		row += lipgloss.Height(status) + 2
	}

	transport := m.session.Transport()
	sb := &strings.Builder{}
	fmt.Fprintln(sb, sectionStyle.Render("Transport"))
	played := 0.0
	if d := transport.Duration(); d > 0 {
		played = transport.CurrentTime() / d
	}
	glyphs, split := waveform.Render(m.wave, w, played)
	runes := []rune(glyphs)
	split = min(max(split, 0), len(runes))
	fmt.Fprintln(sb, playedStyle.Render(string(runes[:split]))+pendingStyle.Render(string(runes[split:])))
	m.waveX, m.waveY, m.waveW = 2, row+2, len(runes)
	state := "paused"
	if transport.IsPlaying() {
		state = okStyle.Render("playing")
	}
	fmt.Fprintf(sb, "%s / %s  %s  rate %.1fx  level %s",
		formatClock(transport.CurrentTime()), formatClock(transport.Duration()),
		state, transport.Rate(), meter(m.session.Graph().Analyser().Level(), 10))
	panel := sb.String()
	fmt.Fprintln(&b, panelStyle.Render(panel))
	row += lipgloss.Height(panel) + 2

	fmt.Fprintln(&b, panelStyle.Render(m.renderStems(w)))

	fmt.Fprintln(&b, panelStyle.Render(sectionStyle.Render("Lyrics")+"\n"+m.lyricsVP.View()))

	if m.showLogs {
		fmt.Fprintln(&b, panelStyle.Render(m.renderLogs(w)))
	}
	if m.notice != "" {
		if m.noticeOK {
			fmt.Fprintln(&b, okStyle.Render(m.notice))
		} else {
			fmt.Fprintln(&b, errorStyle.Render(m.notice))
		}
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderJob(w int) string {
	snap := m.snapshot
	sb := &strings.Builder{}
	fmt.Fprintln(sb, sectionStyle.Render("Separation"))
	name := snap.FileName
	if name == "" {
		name = "-"
	}
	fmt.Fprintf(sb, "%s  %s", name, string(snap.State))
	if snap.JobID != "" {
		fmt.Fprintf(sb, "  %s", faintStyle.Render(snap.JobID))
	}
	switch snap.State {
	case job.StateError:
		msg := snap.Message
		if snap.AuthRequired {
			msg += " Run `stemdeck login` first."
		}
		fmt.Fprintf(sb, "\n%s", errorStyle.Render(msg))
	case job.StateIdle, job.StateComplete:
	default:
		status := snap.Status
		line := fmt.Sprintf("%s %3d%%", progressBar(status.Progress, max(10, w-30)), status.Progress)
		if status.Message != "" {
			line += "  " + status.Message
		}
		if status.HasETA() {
			line += "  eta " + formatClock(status.ETA.Seconds())
		}
		fmt.Fprintf(sb, "\n%s", line)
	}
	return sb.String()
}

func (m *Model) renderStems(w int) string {
	sb := &strings.Builder{}
	fmt.Fprint(sb, sectionStyle.Render("Stems"))
	results := m.session.Stems()
	if len(results) == 0 {
		fmt.Fprint(sb, "\n"+faintStyle.Render("waiting for stems"))
		return sb.String()
	}
	router := m.session.Router()
	barW := max(10, w/3)
	for i, stem := range results {
		marker := "  "
		if i == m.selected {
			marker = focusStyle.Render("> ")
		}
		label := lipgloss.NewStyle().Foreground(lipgloss.Color(stem.Color)).Render(fmt.Sprintf("%-10s", stem.Label))
		level := stem.Volume.Level()
		vol := fmt.Sprintf("[%s] %3.0f%%", sliderBar(level, barW), level*100)
		if stem.Volume.Muted() {
			vol += " " + errorStyle.Render("muted")
		}
		line := marker + label + " " + vol
		if router != nil {
			line += "  " + routeLabel(router.Snapshot(), stem.Name, router.Devices())
		}
		fmt.Fprint(sb, "\n"+line)
	}
	return sb.String()
}

func (m *Model) renderLogs(w int) string {
	sb := &strings.Builder{}
	fmt.Fprint(sb, sectionStyle.Render("Logs"))
	if len(m.logs) == 0 {
		fmt.Fprint(sb, "\n"+faintStyle.Render("no log lines"))
	}
	for _, evt := range m.logs {
		line := fmt.Sprintf("%s %-5s %s", evt.Timestamp.Format("15:04:05"), evt.Level.String(), evt.Message)
		if evt.Component != "" {
			line = fmt.Sprintf("%s [%s]", line, evt.Component)
		}
		if len(line) > w {
			line = line[:w]
		}
		fmt.Fprint(sb, "\n"+line)
	}
	return sb.String()
}

func sliderBar(value float64, width int) string {
	pos := int(math.Round(value * float64(width)))
	pos = min(max(pos, 0), width)
	return strings.Repeat("=", pos) + strings.Repeat("-", width-pos)
}

func progressBar(percent, width int) string {
	filled := min(max(percent*width/100, 0), width)
	return okStyle.Render(strings.Repeat("█", filled)) + pendingStyle.Render(strings.Repeat("░", width-filled))
}

func meter(level float64, width int) string {
	filled := min(max(int(math.Round(level*float64(width)*2)), 0), width)
	return strings.Repeat("▮", filled) + strings.Repeat("▯", width-filled)
}

func formatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
