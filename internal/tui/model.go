package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"stemdeck/internal/job"
	"stemdeck/internal/logging"
	"stemdeck/internal/lyrics"
	"stemdeck/internal/routing"
	"stemdeck/internal/services"
	"stemdeck/internal/session"
	"stemdeck/internal/stems"
	"stemdeck/internal/waveform"
)

const (
	tickInterval  = 100 * time.Millisecond
	seekStep      = 5.0
	rateStep      = 0.1
	volumeStep    = 0.05
	logLines      = 6
	lyricsHeight  = 7
	defaultWidth  = 80
	defaultHeight = 32
)

// Options wires the player to its collaborators. Session is required.
type Options struct {
	Title              string
	Session            *session.Session
	Controller         *job.Controller
	Hub                *logging.StreamHub
	Lyrics             []lyrics.Line
	LyricsPath         string
	Waveform           []float64
	WaveformResolution int
	LyricGrace         time.Duration
	Logger             *slog.Logger
}

type tickMsg time.Time

type jobMsg job.Snapshot

type lyricsMsg struct {
	lines []lyrics.Line
	err   error
}

// Model is the bubbletea model for the player.
type Model struct {
	opts     Options
	session  *session.Session
	logger   *slog.Logger
	keys     keyMap
	help     help.Model
	lyricsVP viewport.Model
	follower *lyrics.Follower

	width  int
	height int

	lines    []lyrics.Line
	wave     []float64
	selected int
	showLogs bool
	logs     []logging.LogEvent
	notice   string
	noticeOK bool

	snapshot  job.Snapshot
	hasJob    bool
	loadedJob string

	// waveform hit area, recorded during View
	waveX, waveY, waveW int
}

// New builds a player model.
func New(opts Options) (*Model, error) {
	if opts.Session == nil {
		return nil, errors.New("player requires a session")
	}
	if opts.WaveformResolution <= 0 {
		opts.WaveformResolution = 200
	}
	if opts.LyricGrace <= 0 {
		opts.LyricGrace = lyrics.DefaultGrace
	}
	logger := opts.Logger
	if logger == nil {
		logger = opts.Session.Logger()
	}
	m := &Model{
		opts:     opts,
		session:  opts.Session,
		logger:   logging.NewComponentLogger(logger, "player"),
		keys:     defaultKeys(),
		help:     help.New(),
		lyricsVP: viewport.New(defaultWidth-4, lyricsHeight),
		follower: lyrics.NewFollower(opts.LyricGrace),
		width:    defaultWidth,
		height:   defaultHeight,
		lines:    opts.Lyrics,
		wave:     opts.Waveform,
	}
	if opts.Controller != nil {
		m.snapshot = opts.Controller.Snapshot()
		m.hasJob = true
	}
	if m.wave == nil {
		m.refreshWaveform()
	}
	m.renderLyrics(-1)
	return m, nil
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init starts the refresh ticker and re-reads the controller so transitions
// published before the program subscribed are not lost.
func (m *Model) Init() tea.Cmd {
	if m.opts.Controller == nil {
		return tick()
	}
	controller := m.opts.Controller
	return tea.Batch(tick(), func() tea.Msg { return jobMsg(controller.Snapshot()) })
}

// Update handles input, ticks and collaborator messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.lyricsVP.Width = max(20, msg.Width-6)
		m.help.Width = msg.Width
		m.renderLyrics(m.activeLine())
		return m, nil
	case tickMsg:
		m.refresh()
		return m, tick()
	case jobMsg:
		m.applySnapshot(job.Snapshot(msg))
		return m, nil
	case lyricsMsg:
		if msg.err != nil {
			m.setNotice("lyrics reload failed: "+msg.err.Error(), false)
			return m, nil
		}
		m.lines = msg.lines
		m.follower.Reset()
		m.renderLyrics(m.activeLine())
		m.setNotice(fmt.Sprintf("lyrics reloaded (%d lines)", len(msg.lines)), true)
		return m, nil
	case tea.MouseMsg:
		return m.handleMouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	transport := m.session.Transport()
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Logs):
		m.showLogs = !m.showLogs
	case key.Matches(msg, m.keys.Play):
		m.report(m.session.TogglePlay())
	case key.Matches(msg, m.keys.Back):
		m.seek(transport.CurrentTime() - seekStep)
	case key.Matches(msg, m.keys.Forward):
		m.seek(transport.CurrentTime() + seekStep)
	case key.Matches(msg, m.keys.Slower):
		m.report(transport.SetRate(transport.Rate() - rateStep))
	case key.Matches(msg, m.keys.Faster):
		m.report(transport.SetRate(transport.Rate() + rateStep))
	case key.Matches(msg, m.keys.PrevStem):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keys.NextStem):
		if m.selected < len(m.session.Stems())-1 {
			m.selected++
		}
	case key.Matches(msg, m.keys.VolUp):
		m.nudgeVolume(volumeStep)
	case key.Matches(msg, m.keys.VolDown):
		m.nudgeVolume(-volumeStep)
	case key.Matches(msg, m.keys.Mute):
		if stem, ok := m.selectedStem(); ok {
			m.report(m.session.ToggleMute(stem.Name))
		}
	case key.Matches(msg, m.keys.Route):
		m.toggleRoute(int(msg.String()[0] - '1'))
	case key.Matches(msg, m.keys.Retry):
		m.retryJob()
	case key.Matches(msg, m.keys.CancelJob):
		if m.opts.Controller != nil && m.snapshot.State.Busy() {
			m.setNotice("separation cancelled", true)
			return m, cancelJob(m.opts.Controller)
		}
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		if msg.Y == m.waveY && m.waveW > 0 && msg.X >= m.waveX && msg.X < m.waveX+m.waveW {
			fraction := waveform.ColumnFraction(msg.X-m.waveX, m.waveW)
			m.seek(waveform.SeekTarget(fraction, m.session.Transport().Duration()))
		}
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		m.follower.ManualScroll()
		var cmd tea.Cmd
		m.lyricsVP, cmd = m.lyricsVP.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) seek(position float64) {
	m.report(m.session.Transport().Seek(position))
	m.follower.Reset()
}

func (m *Model) selectedStem() (*stems.Result, bool) {
	results := m.session.Stems()
	if m.selected < 0 || m.selected >= len(results) {
		return nil, false
	}
	return results[m.selected], true
}

func (m *Model) nudgeVolume(delta float64) {
	stem, ok := m.selectedStem()
	if !ok {
		return
	}
	m.report(m.session.SetVolume(stem.Name, stem.Volume.Level()+delta))
}

func (m *Model) toggleRoute(index int) {
	stem, ok := m.selectedStem()
	router := m.session.Router()
	if !ok || router == nil {
		return
	}
	devices := router.Devices()
	if index < 0 || index >= len(devices) {
		return
	}
	router.Toggle(stem.Name, devices[index].ID)
}

func (m *Model) retryJob() {
	if m.opts.Controller == nil || m.snapshot.State != job.StateError {
		return
	}
	// Submit returns once the service acknowledges, so keep it off the UI loop.
	controller := m.opts.Controller
	go func() {
		if err := controller.Retry(context.Background()); err != nil {
			m.logger.Debug("retry ended with error", logging.Error(err))
		}
	}()
}

// cancelJob runs Cancel off the event loop; the resulting idle snapshot
// arrives as a jobMsg.
func cancelJob(controller *job.Controller) tea.Cmd {
	return func() tea.Msg {
		controller.Cancel()
		return nil
	}
}

func (m *Model) report(err error) {
	if err == nil {
		return
	}
	m.setNotice(err.Error(), false)
}

func (m *Model) setNotice(text string, ok bool) {
	m.notice = text
	m.noticeOK = ok
}

func (m *Model) applySnapshot(snap job.Snapshot) {
	m.snapshot = snap
	m.hasJob = true
	if snap.State != job.StateComplete || snap.JobID == m.loadedJob {
		return
	}
	if err := m.session.LoadStems(snap.Stems); err != nil {
		m.logger.Error("load separated stems failed", logging.Error(err))
		m.setNotice(services.UserMessage(err), false)
		return
	}
	m.loadedJob = snap.JobID
	m.selected = 0
	m.refreshWaveform()
	m.setNotice(fmt.Sprintf("%d stems ready", len(snap.Stems)), true)
}

func (m *Model) refreshWaveform() {
	results := m.session.Stems()
	if len(results) == 0 {
		m.wave = waveform.Placeholder(m.opts.WaveformResolution)
		return
	}
	longest := results[0]
	for _, result := range results[1:] {
		if result.Duration() > longest.Duration() {
			longest = result
		}
	}
	var err error
	if longest.Buffer == nil {
		err = errors.New("stem has no decoded audio")
	}
	m.wave, _ = waveform.SampleOrPlaceholder(longest.Buffer, err, m.opts.WaveformResolution)
}

func (m *Model) activeLine() int {
	return lyrics.ActiveLine(m.session.Transport().CurrentTime(), m.lines)
}

func (m *Model) refresh() {
	index := m.activeLine()
	m.renderLyrics(index)
	if m.follower.Update(index) {
		m.lyricsVP.SetYOffset(lyrics.Center(index, len(m.lines), m.lyricsVP.Height))
	}
	if m.opts.Hub != nil {
		m.logs, _ = m.opts.Hub.Tail(logLines)
	}
}

func (m *Model) renderLyrics(index int) {
	if len(m.lines) == 0 {
		m.lyricsVP.SetContent(faintStyle.Render("no lyrics"))
		return
	}
	now := m.session.Transport().CurrentTime()
	rows := make([]string, 0, len(m.lines))
	for i, line := range m.lines {
		rows = append(rows, renderLyricLine(line, i == index, now))
	}
	m.lyricsVP.SetContent(strings.Join(rows, "\n"))
}

func renderLyricLine(line lyrics.Line, active bool, now float64) string {
	text := line.Text
	if active && len(line.Words) > 0 {
		word := lyrics.ActiveWord(now, line)
		parts := make([]string, len(line.Words))
		for i, w := range line.Words {
			if i == word {
				parts[i] = activeWord.Render(w.Text)
			} else {
				parts[i] = activeLine.Render(w.Text)
			}
		}
		text = strings.Join(parts, " ")
	} else if active {
		text = activeLine.Render(text)
	}
	if line.Translation != "" {
		text += "  " + faintStyle.Render(line.Translation)
	}
	return text
}

func routeLabel(snap routing.Routing, stem stems.Name, devices []routing.Device) string {
	parts := make([]string, 0, len(devices))
	for i, device := range devices {
		label := fmt.Sprintf("%d %s", i+1, device.Name)
		if snap.Has(stem, device.ID) {
			parts = append(parts, btnOnStyle.Render(label))
		} else {
			parts = append(parts, btnStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}
