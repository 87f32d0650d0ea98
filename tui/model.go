package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ShoshinNikita/camoview/camoview"
	"github.com/ShoshinNikita/camoview/imagecache"
	"github.com/ShoshinNikita/camoview/pkg/rlog"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Images loads record previews. It is implemented by [imagecache.Dispatcher].
type Images interface {
	Select(urls []string) int
	Tick() bool
	Loading() bool
	QueueLen() int
	Key(url string) camoview.ResourceKey
	Results() *imagecache.ResultTable[Preview]
	ClearCache() error
}

type Installer interface {
	Install(ctx context.Context, rec camoview.Record) (dir string, err error)
}

// WakeMsg is sent when new images are ready to be displayed.
type WakeMsg struct{}

type frameMsg struct{}

type installedMsg struct {
	vehicle string
	dir     string
	err     error
}

type cacheClearedMsg struct {
	err error
}

// Waker delivers wakeups from image workers to the UI. Multiple wakeups are
// coalesced into a single [WakeMsg].
type Waker struct {
	ch chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

func NewWaker() *Waker {
	return &Waker{
		ch:   make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Wake never blocks. It is safe to call after Close.
func (w *Waker) Wake() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// Close releases the pending wait command.
func (w *Waker) Close() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
}

func (w *Waker) wait() tea.Msg {
	select {
	case <-w.ch:
		return WakeMsg{}
	case <-w.done:
		return nil
	}
}

type Config struct {
	FrameInterval  time.Duration
	InstallTimeout time.Duration
}

// Model is the root UI model. Its Update method is the only place where images
// are consumed and previews are rendered.
type Model struct {
	cfg       Config
	catalog   camoview.Catalog
	images    Images
	installer Installer
	waker     *Waker

	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	search   textinput.Model
	tagInput textinput.Model

	searching bool
	query     string

	// tags are catalog and custom tags. The tag bar is shown in tagging mode.
	tags         []string
	selectedTags []string
	tagging      bool
	addingTags   bool
	tagCursor    int

	// filtered is used instead of the catalog when a filter is set.
	filtered []camoview.Record
	filter   bool
	total    int
	index    int
	record   camoview.Record
	hasRec   bool

	status string
	err    error

	width  int
	height int
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7dcfff"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#d7af5f"))
	previewStyle = lipgloss.NewStyle().MarginRight(1)
	cursorStyle  = lipgloss.NewStyle().Reverse(true)
)

func NewModel(cfg Config, catalog camoview.Catalog, images Images, installer Installer, waker *Waker) (*Model, error) {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = 50 * time.Millisecond
	}
	if cfg.InstallTimeout <= 0 {
		cfg.InstallTimeout = 10 * time.Minute
	}
	if waker == nil {
		waker = NewWaker()
	}

	search := textinput.New()
	search.Placeholder = "vehicle or description"
	search.Prompt = "/ "

	tagInput := textinput.New()
	tagInput.Placeholder = "comma-separated tags"
	tagInput.Prompt = "+ "

	m := &Model{
		cfg:       cfg,
		catalog:   catalog,
		images:    images,
		installer: installer,
		waker:     waker,
		//
		keys:     defaultKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		search:   search,
		tagInput: tagInput,
	}

	if err := m.loadTags(); err != nil {
		return nil, err
	}
	if err := m.reload(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.nextFrame(),
		m.waker.wait,
	)
}

func (m *Model) nextFrame() tea.Cmd {
	return tea.Tick(m.cfg.FrameInterval, func(time.Time) tea.Msg {
		return frameMsg{}
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case frameMsg:
		m.images.Tick()
		return m, m.nextFrame()

	case WakeMsg:
		m.images.Tick()
		return m, m.waker.wait

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case installedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("couldn't install %q: %w", msg.vehicle, msg.err)
			rlog.Error(m.err)
		} else {
			m.err = nil
			m.status = fmt.Sprintf("%q was installed to %q", msg.vehicle, msg.dir)
		}
		return m, nil

	case cacheClearedMsg:
		if msg.err != nil {
			m.err = msg.err
			rlog.Error(m.err)
		} else {
			m.err = nil
			m.status = "image cache was cleared"
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case m.searching:
			return m.updateSearch(msg)
		case m.addingTags:
			return m.updateTagInput(msg)
		case m.tagging:
			return m.updateTags(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		m.query = strings.TrimSpace(m.search.Value())
		m.setError(m.reload())
		return m, nil

	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue(m.query)
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Prev):
		m.setError(m.move(m.index - 1))

	case key.Matches(msg, m.keys.Next):
		m.setError(m.move(m.index + 1))

	case key.Matches(msg, m.keys.First):
		m.setError(m.move(0))

	case key.Matches(msg, m.keys.Last):
		m.setError(m.move(m.total - 1))

	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Tags):
		m.tagging = true

	case key.Matches(msg, m.keys.Install):
		if !m.hasRec {
			return m, nil
		}
		m.status = fmt.Sprintf("installing %q...", m.record.VehicleName)
		return m, m.install(m.record)

	case key.Matches(msg, m.keys.ClearCache):
		return m, m.clearCache()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m *Model) updateTags(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Tags), msg.Type == tea.KeyEsc, msg.Type == tea.KeyEnter:
		m.tagging = false

	case key.Matches(msg, m.keys.Prev):
		m.tagCursor = max(0, m.tagCursor-1)

	case key.Matches(msg, m.keys.Next):
		m.tagCursor = max(0, min(m.tagCursor+1, len(m.tags)-1))

	case key.Matches(msg, m.keys.ToggleTag):
		if m.tagCursor < len(m.tags) {
			m.toggleTag(m.tags[m.tagCursor])
			m.setError(m.reload())
		}

	case key.Matches(msg, m.keys.ResetTags):
		if len(m.selectedTags) > 0 {
			m.selectedTags = nil
			m.setError(m.reload())
		}

	case key.Matches(msg, m.keys.AddTags):
		m.addingTags = true
		return m, m.tagInput.Focus()
	}

	return m, nil
}

func (m *Model) updateTagInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		value := m.tagInput.Value()
		m.addingTags = false
		m.tagInput.Blur()
		m.tagInput.Reset()

		if strings.TrimSpace(value) == "" {
			return m, nil
		}
		if err := m.catalog.AddCustomTags(context.Background(), value); err != nil {
			m.setError(fmt.Errorf("couldn't add custom tags: %w", err))
			return m, nil
		}
		m.setError(m.loadTags())
		return m, nil

	case tea.KeyEsc:
		m.addingTags = false
		m.tagInput.Blur()
		m.tagInput.Reset()
		return m, nil
	}

	var cmd tea.Cmd
	m.tagInput, cmd = m.tagInput.Update(msg)
	return m, cmd
}

// loadTags merges catalog and custom tags.
func (m *Model) loadTags() error {
	ctx := context.Background()

	tags, err := m.catalog.Tags(ctx)
	if err != nil {
		return fmt.Errorf("couldn't load tags: %w", err)
	}
	custom, err := m.catalog.CustomTags(ctx)
	if err != nil {
		return fmt.Errorf("couldn't load custom tags: %w", err)
	}

	tags = append(tags, custom...)
	slices.Sort(tags)
	m.tags = slices.Compact(tags)
	m.tagCursor = max(0, min(m.tagCursor, len(m.tags)-1))

	return nil
}

func (m *Model) toggleTag(tag string) {
	if i := slices.Index(m.selectedTags, tag); i >= 0 {
		m.selectedTags = slices.Delete(m.selectedTags, i, i+1)
		return
	}
	m.selectedTags = append(m.selectedTags, tag)
	slices.Sort(m.selectedTags)
}

func (m *Model) quit() (tea.Model, tea.Cmd) {
	m.waker.Close()
	return m, tea.Quit
}

func (m *Model) setError(err error) {
	m.err = err
	if err != nil {
		rlog.Error(err)
	}
}

func (m *Model) install(rec camoview.Record) tea.Cmd {
	installer, timeout := m.installer, m.cfg.InstallTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		dir, err := installer.Install(ctx, rec)
		return installedMsg{vehicle: rec.VehicleName, dir: dir, err: err}
	}
}

func (m *Model) clearCache() tea.Cmd {
	images := m.images
	return func() tea.Msg {
		return cacheClearedMsg{err: images.ClearCache()}
	}
}

// reload applies the current filter and selects the first record.
func (m *Model) reload() error {
	ctx := context.Background()

	m.filter = m.query != "" || len(m.selectedTags) > 0
	if m.filter {
		records, err := m.catalog.Search(ctx, m.query, slices.Clone(m.selectedTags))
		if err != nil {
			return fmt.Errorf("couldn't search records: %w", err)
		}
		m.filtered = records
		m.total = len(records)
	} else {
		total, err := m.catalog.Count(ctx)
		if err != nil {
			return fmt.Errorf("couldn't count records: %w", err)
		}
		m.filtered = nil
		m.total = total
	}

	m.index = -1
	return m.move(0)
}

// move selects the record at index i and requests its images.
func (m *Model) move(i int) error {
	if m.total == 0 {
		m.index = 0
		m.hasRec = false
		m.record = camoview.Record{}
		m.images.Select(nil)
		return nil
	}

	i = max(0, min(i, m.total-1))
	if i == m.index && m.hasRec {
		return nil
	}

	var (
		rec camoview.Record
		ok  bool
	)
	if m.filter {
		rec, ok = m.filtered[i], true
	} else {
		var err error
		rec, ok, err = m.catalog.RecordByIndex(context.Background(), i)
		if err != nil {
			return fmt.Errorf("couldn't load record #%d: %w", i, err)
		}
	}
	if !ok {
		return fmt.Errorf("record #%d not found", i)
	}

	m.index = i
	m.record = rec
	m.hasRec = true
	m.status = ""
	m.images.Select(rec.ImageURLs)

	return nil
}

func (m *Model) View() string {
	var b strings.Builder

	// Header
	header := titleStyle.Render("camoview")
	if m.total > 0 {
		header += dimStyle.Render(fmt.Sprintf("  [%d/%d]", m.index+1, m.total))
	}
	if m.query != "" {
		header += dimStyle.Render(fmt.Sprintf("  search: %q", m.query))
	}
	if len(m.selectedTags) > 0 {
		header += dimStyle.Render("  tags: ") + tagStyle.Render(formatTags(m.selectedTags))
	}
	b.WriteString(header + "\n\n")

	if !m.hasRec {
		b.WriteString("No records found\n")
	} else {
		b.WriteString(m.viewRecord())
	}

	// Status
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View() + "\n")
	}
	if m.tagging {
		b.WriteString(m.viewTags() + "\n")
	}
	if m.addingTags {
		b.WriteString(m.tagInput.View() + "\n")
	}
	if m.images.Loading() || m.images.QueueLen() > 0 {
		b.WriteString(m.spinner.View() + " loading images\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()) + "\n")
	} else if m.status != "" {
		b.WriteString(m.status + "\n")
	}

	b.WriteString("\n" + m.help.View(m.keys))

	return b.String()
}

func (m *Model) viewRecord() string {
	rec := m.record

	var b strings.Builder
	b.WriteString(titleStyle.Render(rec.VehicleName))
	if rec.Nickname != "" {
		b.WriteString(dimStyle.Render(" by " + rec.Nickname))
	}
	b.WriteString("\n")

	var info []string
	if rec.PostDate != "" {
		info = append(info, rec.PostDate)
	}
	if rec.FileSize != "" {
		info = append(info, rec.FileSize)
	}
	info = append(info, fmt.Sprintf("%d downloads", rec.Downloads), fmt.Sprintf("%d likes", rec.Likes))
	b.WriteString(dimStyle.Render(strings.Join(info, " · ")) + "\n")

	if len(rec.Hashtags) > 0 {
		b.WriteString(tagStyle.Render(formatTags(rec.Hashtags)) + "\n")
	}
	if rec.Description != "" {
		desc := rec.Description
		if m.width > 0 {
			desc = lipgloss.NewStyle().Width(m.width).Render(desc)
		}
		b.WriteString("\n" + desc + "\n")
	}

	b.WriteString("\n" + m.viewPreviews(rec.ImageURLs) + "\n")

	return b.String()
}

func (m *Model) viewTags() string {
	if len(m.tags) == 0 {
		return dimStyle.Render("no tags")
	}

	items := make([]string, 0, len(m.tags))
	for i, tag := range m.tags {
		item := "[ ] #" + tag
		if slices.Contains(m.selectedTags, tag) {
			item = tagStyle.Render("[x] #" + tag)
		}
		if i == m.tagCursor {
			item = cursorStyle.Render(item)
		}
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

func formatTags(tags []string) string {
	res := make([]string, 0, len(tags))
	for _, tag := range tags {
		res = append(res, "#"+tag)
	}
	return strings.Join(res, " ")
}

func (m *Model) viewPreviews(urls []string) string {
	if len(urls) == 0 {
		return dimStyle.Render("no images")
	}

	var (
		results = m.images.Results()
		blocks  []string
		seen    = make(map[camoview.ResourceKey]bool)
		missing int
	)
	for _, url := range urls {
		key := m.images.Key(url)
		if seen[key] {
			continue
		}
		seen[key] = true

		preview, ok := results.Get(key)
		if !ok {
			missing++
			continue
		}
		blocks = append(blocks, previewStyle.Render(preview.String()))
	}

	res := lipgloss.JoinHorizontal(lipgloss.Top, blocks...)
	if missing > 0 {
		if res != "" {
			res += "\n"
		}
		res += dimStyle.Render(fmt.Sprintf("%d of %d images are not loaded", missing, len(seen)))
	}
	return res
}
