// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Thermoquad/telelink/pkg/sensors"
	"github.com/Thermoquad/telelink/pkg/xbee"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live ground station view",
	Long: `Run the ground station with a terminal UI.

Shows the latest sensor snapshot, link statistics, watchdog state and recent
events. Press 'm' to change the requested sensor mask (numbers like 0x1F or
group names like GPS|ANALOG), 'q' to quit.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	addRecordFlags(monitorCmd)
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type sensorsMsg struct {
	snapshot sensors.Snapshot
}

type watchdogMsg struct{}

type frameMsg struct {
	identifier uint8
}

// programListener forwards ground events into the running program.
// Events before the program starts are dropped.
type programListener struct {
	p atomic.Pointer[tea.Program]
}

func (l *programListener) send(msg tea.Msg) {
	if p := l.p.Load(); p != nil {
		p.Send(msg)
	}
}

func (l *programListener) OnSensorsUpdated(s sensors.Snapshot) { l.send(sensorsMsg{snapshot: s}) }
func (l *programListener) OnWatchdogTriggered()                { l.send(watchdogMsg{}) }
func (l *programListener) OnLinkFrame(f *xbee.Frame)            { l.send(frameMsg{identifier: f.Identifier()}) }

//////////////////////////////////////////////////////////////
// Model
//////////////////////////////////////////////////////////////

type monitorEvent struct {
	timestamp time.Time
	message   string
	isError   bool
}

type monitorModel struct {
	gs       *groundStation
	connInfo string

	sensorTable table.Model
	maskInput   textinput.Model
	editingMask bool

	updates    uint64
	lastUpdate time.Time
	alarmed    bool
	lastAlarm  time.Time

	events    []monitorEvent
	maxEvents int

	width    int
	height   int
	quitting bool
}

var sensorColumns = []table.Column{
	{Title: "Group", Width: 14},
	{Title: "Field", Width: 12},
	{Title: "Value", Width: 18},
}

func initialMonitorModel(gs *groundStation) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "0x1F or GPS|ANALOG"
	ti.CharLimit = 48
	ti.Width = 24

	t := table.New(
		table.WithColumns(sensorColumns),
		table.WithRows(snapshotRows(sensors.Snapshot{})),
		table.WithHeight(len(snapshotRows(sensors.Snapshot{}))+1),
		table.WithFocused(false),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = lipgloss.NewStyle()
	t.SetStyles(styles)

	return monitorModel{
		gs:          gs,
		connInfo:    gs.connInfo,
		sensorTable: t,
		maskInput:   ti,
		maxEvents:   100,
		width:       80,
		height:      24,
	}
}

// snapshotRows lists every field of a snapshot in wire order
func snapshotRows(s sensors.Snapshot) []table.Row {
	rows := make([]table.Row, 0, 20)
	for i, mv := range s.Analog {
		rows = append(rows, table.Row{"Analog", fmt.Sprintf("ch%d", i), fmt.Sprintf("%.3f mV", mv)})
	}
	rows = append(rows,
		table.Row{"Barometer", "raw T", fmt.Sprintf("%d", s.Barometer.RawTemperature)},
		table.Row{"Barometer", "raw P", fmt.Sprintf("%d", s.Barometer.RawPressure)},
	)
	inertial := func(group string, r sensors.InertialReading) {
		rows = append(rows,
			table.Row{group, "x", fmt.Sprintf("%.4f", float32(r.X)*r.Scale)},
			table.Row{group, "y", fmt.Sprintf("%.4f", float32(r.Y)*r.Scale)},
			table.Row{group, "z", fmt.Sprintf("%.4f", float32(r.Z)*r.Scale)},
		)
	}
	inertial("Accelerometer", s.Accel)
	inertial("Gyroscope", s.Gyro)
	rows = append(rows,
		table.Row{"GPS", "latitude", fmt.Sprintf("%.6f", s.GPS.Latitude)},
		table.Row{"GPS", "longitude", fmt.Sprintf("%.6f", s.GPS.Longitude)},
		table.Row{"GPS", "altitude", fmt.Sprintf("%.1f m", s.GPS.Altitude)},
	)
	return rows
}

func (m monitorModel) Init() tea.Cmd {
	return monitorTickCmd()
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editingMask {
			return m.updateMaskInput(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "m":
			m.editingMask = true
			m.maskInput.SetValue("")
			return m, m.maskInput.Focus()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case monitorTickMsg:
		if m.alarmed && time.Since(m.lastAlarm) > 2*cfg.Radio.WatchdogInterval && !m.gs.watchdog.Expired() {
			m.alarmed = false
			m.addEvent("Link restored", false)
		}
		return m, monitorTickCmd()

	case sensorsMsg:
		m.updates++
		m.lastUpdate = time.Now()
		m.sensorTable.SetRows(snapshotRows(msg.snapshot))

	case watchdogMsg:
		if !m.alarmed {
			m.addEvent("Watchdog: no link activity", true)
		}
		m.alarmed = true
		m.lastAlarm = time.Now()

	case frameMsg:
		switch msg.identifier {
		case xbee.APIModemStatus:
			m.addEvent("Radio modem status received", false)
		case xbee.APIRxPacket16, xbee.APITxStatus:
		default:
			m.addEvent(fmt.Sprintf("Unexpected frame %s", xbee.FormatFrameType(msg.identifier)), true)
		}
	}
	return m, nil
}

func (m monitorModel) updateMaskInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editingMask = false
		m.maskInput.Blur()
		return m, nil
	case "enter":
		m.editingMask = false
		m.maskInput.Blur()
		mask, err := sensors.ParseMask(m.maskInput.Value())
		if err != nil {
			m.addEvent(err.Error(), true)
			return m, nil
		}
		if err := m.gs.SetMask(mask); err != nil {
			m.addEvent(fmt.Sprintf("Mask request failed: %v", err), true)
			return m, nil
		}
		m.addEvent(fmt.Sprintf("Requested %s", mask), false)
		return m, nil
	}
	var cmd tea.Cmd
	m.maskInput, cmd = m.maskInput.Update(msg)
	return m, cmd
}

func (m *monitorModel) addEvent(message string, isError bool) {
	m.events = append(m.events, monitorEvent{timestamp: time.Now(), message: message, isError: isError})
	if len(m.events) > m.maxEvents {
		m.events = m.events[len(m.events)-m.maxEvents:]
	}
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("TELELINK - GROUND STATION"))
	s.WriteString("\n")
	conn := m.connInfo
	if conn == "" {
		conn = "UDP only"
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | 'm' mask | 'q' quit", conn)))
	s.WriteString("\n\n")

	if m.alarmed {
		s.WriteString(errorStyle.Render("✗ WATCHDOG: no link activity"))
	} else {
		s.WriteString(valueStyle.Render("✓ Link alive"))
	}
	if !m.lastUpdate.IsZero() {
		s.WriteString(headerStyle.Render(fmt.Sprintf("  (last update %s ago)", time.Since(m.lastUpdate).Truncate(time.Millisecond))))
	}
	s.WriteString("\n\n")

	left := boxStyle.Render(m.sensorTable.View())
	right := boxStyle.Render(m.linkView(labelStyle, valueStyle, errorStyle))
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	s.WriteString("\n")

	if m.editingMask {
		s.WriteString(labelStyle.Render("Mask: "))
		s.WriteString(m.maskInput.View())
		s.WriteString("\n")
	}

	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	logHeight := m.height - 30
	if logHeight < 3 {
		logHeight = 3
	}
	start := len(m.events) - logHeight
	if start < 0 {
		start = 0
	}
	var events strings.Builder
	if len(m.events) == 0 {
		events.WriteString(headerStyle.Render("  (no events yet)"))
	}
	for _, e := range m.events[start:] {
		ts := headerStyle.Render(e.timestamp.Format("15:04:05.000"))
		if e.isError {
			events.WriteString(fmt.Sprintf("%s %s\n", ts, errorStyle.Render("✗ "+e.message)))
		} else {
			events.WriteString(fmt.Sprintf("%s %s\n", ts, warningStyle.Render("ℹ "+e.message)))
		}
	}
	s.WriteString(boxStyle.Width(m.width - 4).Render(events.String()))
	return s.String()
}

func (m monitorModel) linkView(label, value, bad lipgloss.Style) string {
	var b strings.Builder
	line := func(name string, v string, style lipgloss.Style) {
		b.WriteString(fmt.Sprintf("%s %s\n", label.Render(name), style.Render(v)))
	}

	line("Updates:", fmt.Sprintf("%d", m.updates), value)
	if c := m.gs.client; c != nil {
		counts := c.Counts()
		line("UDP mask:", c.Mask().String(), value)
		line("UDP applied:", fmt.Sprintf("%d", counts.Applied), value)
		line("UDP stale:", fmt.Sprintf("%d", counts.Stale), value)
		line("Round trip:", c.RoundTrip().String(), value)
	}
	if r := m.gs.receiver; r != nil {
		counts := r.Counts()
		line("Radio applied:", fmt.Sprintf("%d", counts.Applied), value)
		line("Radio stale:", fmt.Sprintf("%d", counts.Stale), value)
	}
	if l := m.gs.link; l != nil {
		st := l.Statistics().Snapshot()
		errStyle := value
		if st.ChecksumErrors+st.LengthErrors > 0 {
			errStyle = bad
		}
		line("Frames:", fmt.Sprintf("%d (%.1f/s)", st.TotalFrames, st.FrameRate), value)
		line("Frame errors:", fmt.Sprintf("%d", st.ChecksumErrors+st.LengthErrors), errStyle)
		line("TX failures:", fmt.Sprintf("%d", st.TxFailures), value)
	}
	if s := m.gs.stream; s != nil {
		received, dropped, badCRC := s.Counts()
		line("Messages:", fmt.Sprintf("%d", received), value)
		line("Dropped:", fmt.Sprintf("%d", dropped), value)
		line("CRC mismatch:", fmt.Sprintf("%d", badCRC), value)
	}
	line("Alarms:", fmt.Sprintf("%d", m.gs.watchdog.Fires()), value)
	return strings.TrimSuffix(b.String(), "\n")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	listener := &programListener{}
	gs, err := startGround(ctx, listener)
	if err != nil {
		return err
	}

	p := tea.NewProgram(initialMonitorModel(gs), tea.WithAltScreen())
	listener.p.Store(p)
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	_, err = p.Run()
	listener.p.Store(nil)
	stop()
	gs.wait()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
