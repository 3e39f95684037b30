package ui

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"primerpal/internal/logging"
	"primerpal/internal/output"
	"primerpal/internal/volume"
)

const (
	countPlaceholder  = "--"
	volumePlaceholder = "---"

	// divider, status or prompt, help
	footerHeight = 3

	defaultCapacityUL = 20000
)

// SaveFunc writes the script for vm to path.
type SaveFunc func(vm volume.Map, path string) (output.Result, error)

// FormOptions configure a FormModel.
type FormOptions struct {
	Styles     Styles
	OutputDir  string
	Filename   string  // initial Save As name
	CapacityUL float64 // reservoir warning threshold
	Save       SaveFunc
	Initial    *volume.Model // optional prefill
}

// savedMsg reports the outcome of a save command.
type savedMsg struct {
	path string
	res  output.Result
	err  error
}

// FormModel is the interactive dilution form: a sample count, one volume
// field per slot, an output file name and a live water total.
type FormModel struct {
	styles  Styles
	opts    FormOptions
	volumes *volume.Model

	count    textinput.Model
	countRaw string
	fields   []textinput.Model
	filename textinput.Model

	saveAs textinput.Model
	saving bool

	// 0 = count, 1..len(fields) = volumes, len(fields)+1 = filename
	focus int

	status    string
	statusErr bool

	viewport viewport.Model
	ready    bool
	width    int
	quitting bool
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 20
	return ti
}

// NewFormModel builds the form.
func NewFormModel(opts FormOptions) FormModel {
	if opts.CapacityUL <= 0 {
		opts.CapacityUL = defaultCapacityUL
	}
	m := FormModel{
		styles:   opts.Styles,
		opts:     opts,
		volumes:  volume.New(),
		count:    newInput(countPlaceholder, 3),
		filename: newInput(output.DefaultFilename, 256),
		saveAs:   newInput(output.DefaultFilename, 256),
	}
	m.filename.Width = 32
	m.saveAs.Width = 40
	name := opts.Filename
	if name == "" {
		name = output.DefaultFilename
	}
	m.filename.SetValue(name)

	if opts.Initial != nil && opts.Initial.Count() > 0 {
		m.volumes = opts.Initial
		m.countRaw = strconv.Itoa(opts.Initial.Count())
		m.count.SetValue(m.countRaw)
		m.rebuildFields()
	}
	m.count.Focus()
	return m
}

// Init implements tea.Model.
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Status returns the status line text.
func (m FormModel) Status() string { return m.status }

// Saving reports whether the Save As prompt is open.
func (m FormModel) Saving() bool { return m.saving }

// Volumes returns the live volume model.
func (m FormModel) Volumes() *volume.Model { return m.volumes }

// Update implements tea.Model.
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		h := msg.Height - footerHeight
		if h < 3 {
			h = 3
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, h)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = h
		}
		m.syncViewport()
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Save failed: %v", msg.err)
			m.statusErr = true
			logging.Get(logging.CategoryUI).Error("save to %s failed: %v", msg.path, msg.err)
		} else {
			m.status = "Script saved as " + filepath.Base(msg.path)
			m.statusErr = false
			logging.Get(logging.CategoryUI).Info("saved %s (%d bytes)", msg.path, msg.res.Bytes)
		}
		return m, nil

	case tea.KeyMsg:
		if m.saving {
			return m.updateSaveAs(msg)
		}
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "tab", "down", "enter":
			m.moveFocus(1)
			return m, nil
		case "shift+tab", "up":
			m.moveFocus(-1)
			return m, nil
		case "pgdown":
			m.viewport.HalfViewDown()
			return m, nil
		case "pgup":
			m.viewport.HalfViewUp()
			return m, nil
		case "ctrl+g":
			cmd := m.save(output.ResolvePath(m.opts.OutputDir, output.DefaultFilename))
			return m, cmd
		case "ctrl+s":
			m.openSaveAs()
			return m, textinput.Blink
		}
		return m.updateFocused(msg)
	}
	return m, nil
}

func (m *FormModel) updateFocused(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.focus == 0:
		m.count, cmd = m.count.Update(msg)
		if v := m.count.Value(); v != m.countRaw {
			m.countRaw = v
			m.volumes.SetSampleCount(v)
			m.rebuildFields()
		}
	case m.focus <= len(m.fields):
		i := m.focus - 1
		m.fields[i], cmd = m.fields[i].Update(msg)
		if err := m.volumes.SetVolume(volume.SlotAt(i), m.fields[i].Value()); err != nil {
			logging.Get(logging.CategoryUI).Warn("volume field out of sync: %v", err)
		}
	default:
		m.filename, cmd = m.filename.Update(msg)
	}
	m.syncViewport()
	return *m, cmd
}

func (m *FormModel) updateSaveAs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return *m, tea.Quit
	case "esc":
		// Cancelled: nothing written, status untouched.
		m.closeSaveAs()
		return *m, nil
	case "enter":
		path := output.ResolvePath(m.opts.OutputDir, m.saveAs.Value())
		m.closeSaveAs()
		cmd := m.save(path)
		return *m, cmd
	}
	var cmd tea.Cmd
	m.saveAs, cmd = m.saveAs.Update(msg)
	return *m, cmd
}

func (m *FormModel) openSaveAs() {
	name := strings.TrimSpace(m.filename.Value())
	if name == "" {
		name = output.DefaultFilename
	}
	m.input(m.focus).Blur()
	m.saveAs.SetValue(name)
	m.saveAs.CursorEnd()
	m.saveAs.Focus()
	m.saving = true
}

func (m *FormModel) closeSaveAs() {
	m.saveAs.Blur()
	m.saving = false
	m.input(m.focus).Focus()
}

func (m *FormModel) save(path string) tea.Cmd {
	if m.volumes.Count() == 0 {
		m.status = "Enter the number of oligos first"
		m.statusErr = true
		return nil
	}
	if m.opts.Save == nil {
		m.status = "Saving is not available"
		m.statusErr = true
		return nil
	}
	vm := m.volumes.Snapshot()
	save := m.opts.Save
	return func() tea.Msg {
		res, err := save(vm, path)
		return savedMsg{path: path, res: res, err: err}
	}
}

func (m *FormModel) input(i int) *textinput.Model {
	switch {
	case i == 0:
		return &m.count
	case i <= len(m.fields):
		return &m.fields[i-1]
	default:
		return &m.filename
	}
}

func (m *FormModel) moveFocus(delta int) {
	n := len(m.fields) + 2
	m.input(m.focus).Blur()
	m.focus = ((m.focus+delta)%n + n) % n
	m.input(m.focus).Focus()
	m.syncViewport()
}

func (m *FormModel) rebuildFields() {
	slots := m.volumes.Slots()
	m.fields = make([]textinput.Model, len(slots))
	for i, slot := range slots {
		ti := newInput(volumePlaceholder, 12)
		if raw, ok := m.volumes.Raw(slot); ok {
			ti.SetValue(raw)
		}
		m.fields[i] = ti
	}
}

// totalLine renders the water requirement, flagged above capacity.
func (m FormModel) totalLine() string {
	total := m.volumes.TotalWaterRequired()
	line := "Minimum volume molecular grade water needed: " + volume.FormatWater(total)
	if total > m.opts.CapacityUL {
		return m.styles.Warning.Render(line + "  ! exceeds reservoir capacity")
	}
	return m.styles.Info.Render(line)
}

// body renders the form and returns the line holding the focused field.
func (m FormModel) body() (string, int) {
	s := m.styles
	var lines []string
	focusLine := 0
	label := func(i int, text string) string {
		if i == m.focus && !m.saving {
			return s.FocusedLabel.Render(text)
		}
		return s.Label.Render(text)
	}

	lines = append(lines,
		s.Header.Render("Primer Pal Oligo Dilution Script Generator"),
		"",
		s.Body.Render("Number of oligos to dilute (24 max):"),
	)
	if m.focus == 0 {
		focusLine = len(lines)
	}
	lines = append(lines,
		label(0, "n")+"  "+m.count.View(),
		"",
		s.Muted.Render("Protocol will use one p300 and one p20 tip for each oligo."),
	)

	if len(m.fields) > 0 {
		lines = append(lines, "", s.Body.Render("Enter the volume of molecular grade water needed for each oligo:"))
		for i, f := range m.fields {
			if m.focus == i+1 {
				focusLine = len(lines)
			}
			lines = append(lines, label(i+1, volume.SlotAt(i).String())+"  "+f.View())
		}
	}

	capML := strconv.FormatFloat(m.opts.CapacityUL/1000, 'f', -1, 64)
	lines = append(lines,
		"",
		m.totalLine(),
		s.Muted.Render("Note: water in falcon tube should not exceed "+capML+" mL to avoid contamination."),
		"",
	)
	if m.focus == len(m.fields)+1 {
		focusLine = len(lines)
	}
	lines = append(lines, s.Body.Render("Output:")+" "+m.filename.View())

	return strings.Join(lines, "\n"), focusLine
}

func (m *FormModel) syncViewport() {
	if !m.ready {
		return
	}
	content, line := m.body()
	m.viewport.SetContent(content)
	if line < m.viewport.YOffset {
		m.viewport.SetYOffset(line)
	} else if line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line - m.viewport.Height + 1)
	}
}

func (m FormModel) footer() string {
	s := m.styles
	width := m.width
	if width <= 0 {
		width = 60
	}

	var middle, help string
	if m.saving {
		middle = s.Prompt.Render("Save protocol as: ") + m.saveAs.View()
		help = "enter save • esc cancel"
	} else {
		switch {
		case m.status == "":
			middle = ""
		case m.statusErr:
			middle = s.Error.Render(m.status)
		default:
			middle = s.Success.Render(m.status)
		}
		help = "tab/↑↓ move • ctrl+g generate • ctrl+s save as • esc quit"
	}
	return s.RenderDivider(width) + "\n" + middle + "\n" + s.Footer.Render(help)
}

// View implements tea.Model.
func (m FormModel) View() string {
	if m.quitting {
		return ""
	}
	var body string
	if m.ready {
		body = m.viewport.View()
	} else {
		body, _ = m.body()
	}
	return body + "\n" + m.footer()
}
