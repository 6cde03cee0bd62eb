// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"imgfs/lib/imgfs"
)

// row is one rendered line in the directory pane: a directory entry
// together with the inode it resolves to, fetched eagerly so sorting
// and the detail pane never need a second round trip through the
// engine's mutex.
type row struct {
	name string
	ino  uint32
	in   *imgfs.Inode
}

// frame is one level of navigation history: the directory inode shown
// at that level, its listing, and where the cursor and scroll offset
// were left when the user descended past it.
type frame struct {
	dirIno uint32
	name   string
	rows   []row
	cursor int
	offset int
}

type model struct {
	engine     *imgfs.FS
	maxDepth   int
	stack      []frame
	width      int
	height     int
	detail     viewport.Model
	err        error
	fsTotal    uint32
	fsFree     uint32
}

func newModel(engine *imgfs.FS, maxDepth int) (*model, error) {
	total, free := engine.Statfs()
	m := &model{
		engine:   engine,
		maxDepth: maxDepth,
		detail:   viewport.New(0, 0),
		fsTotal:  total,
		fsFree:   free,
	}
	rootRows, err := m.loadRows(engine.RootIno())
	if err != nil {
		return nil, err
	}
	m.stack = []frame{{dirIno: engine.RootIno(), name: "/", rows: rootRows}}
	return m, nil
}

func (m *model) loadRows(dirIno uint32) ([]row, error) {
	entries, err := m.engine.Readdir(dirIno)
	if err != nil {
		return nil, err
	}
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		in, err := m.engine.Stat(e.Ino)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row{name: e.Name, ino: e.Ino, in: in})
	}
	sort.Slice(rows, func(i, j int) bool {
		iDir, jDir := rows[i].in.IsDir(), rows[j].in.IsDir()
		if iDir != jDir {
			return iDir
		}
		return rows[i].name < rows[j].name
	})
	return rows, nil
}

func (m *model) top() *frame { return &m.stack[len(m.stack)-1] }

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		detailWidth := m.width - listWidth(m.width) - 1
		m.detail.Width = detailWidth
		m.detail.Height = m.height - 2
		return m, nil

	case tea.KeyMsg:
		switch {
		case matchesKey(msg, defaultKeyMap.Quit):
			return m, tea.Quit
		case matchesKey(msg, defaultKeyMap.Up):
			m.moveCursor(-1)
		case matchesKey(msg, defaultKeyMap.Down):
			m.moveCursor(1)
		case matchesKey(msg, defaultKeyMap.PageUp):
			m.moveCursor(-m.listHeight())
		case matchesKey(msg, defaultKeyMap.PageDown):
			m.moveCursor(m.listHeight())
		case matchesKey(msg, defaultKeyMap.Enter):
			m.descend()
		case matchesKey(msg, defaultKeyMap.Back):
			m.ascend()
		}
	}
	m.syncDetail()
	return m, nil
}

func (m *model) moveCursor(delta int) {
	top := m.top()
	if len(top.rows) == 0 {
		return
	}
	top.cursor += delta
	if top.cursor < 0 {
		top.cursor = 0
	}
	if top.cursor >= len(top.rows) {
		top.cursor = len(top.rows) - 1
	}
	height := m.listHeight()
	if top.cursor < top.offset {
		top.offset = top.cursor
	}
	if top.cursor >= top.offset+height {
		top.offset = top.cursor - height + 1
	}
}

func (m *model) descend() {
	top := m.top()
	if len(top.rows) == 0 {
		return
	}
	selected := top.rows[top.cursor]
	if !selected.in.IsDir() {
		return
	}
	if len(m.stack) >= m.maxDepth {
		m.err = fmt.Errorf("maximum browse depth (%d) reached", m.maxDepth)
		return
	}
	rows, err := m.loadRows(selected.ino)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.stack = append(m.stack, frame{dirIno: selected.ino, name: selected.name, rows: rows})
}

func (m *model) ascend() {
	if len(m.stack) == 1 {
		return
	}
	m.stack = m.stack[:len(m.stack)-1]
	m.err = nil
}

func (m *model) listHeight() int {
	h := m.height - 2
	if h < 1 {
		h = 1
	}
	return h
}

func (m *model) syncDetail() {
	top := m.top()
	if len(top.rows) == 0 {
		m.detail.SetContent("(empty directory)")
		return
	}
	m.detail.SetContent(renderDetail(top.rows[top.cursor]))
}

func renderDetail(r row) string {
	var b strings.Builder
	kind := "file"
	if r.in.IsDir() {
		kind = "directory"
	}
	fmt.Fprintf(&b, "name:        %s\n", r.name)
	fmt.Fprintf(&b, "inode:       %d\n", r.in.Ino)
	fmt.Fprintf(&b, "type:        %s\n", kind)
	fmt.Fprintf(&b, "size:        %d bytes\n", r.in.Size)
	fmt.Fprintf(&b, "block_count: %d\n", r.in.BlockCount)
	b.WriteString("blocks:\n")
	for i := uint32(0); i < r.in.BlockCount; i++ {
		fmt.Fprintf(&b, "  [%d] -> block %d\n", i, r.in.Blocks[i])
	}
	return b.String()
}

func matchesKey(msg tea.KeyMsg, binding interface{ Keys() []string }) bool {
	for _, k := range binding.Keys() {
		if msg.String() == k {
			return true
		}
	}
	return false
}

func listWidth(total int) int {
	w := total * 2 / 5
	if w < 24 {
		w = 24
	}
	return w
}

func (m *model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	listW := listWidth(m.width)
	detailW := m.width - listW - 1

	listStyle := lipgloss.NewStyle().
		Width(listW).Height(m.height - 2).
		BorderStyle(lipgloss.NormalBorder()).BorderForeground(defaultTheme.BorderColor).
		BorderRight(true).PaddingRight(1)
	detailStyle := lipgloss.NewStyle().Width(detailW).Height(m.height - 2).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Foreground(defaultTheme.HeaderForeground).Bold(true)
	helpStyle := lipgloss.NewStyle().Foreground(defaultTheme.HelpText)

	top := m.top()
	var listLines []string
	height := m.listHeight()
	end := top.offset + height
	if end > len(top.rows) {
		end = len(top.rows)
	}
	for i := top.offset; i < end; i++ {
		r := top.rows[i]
		line := formatRow(r)
		if i == top.cursor {
			line = lipgloss.NewStyle().
				Background(defaultTheme.SelectedBackground).
				Foreground(defaultTheme.SelectedForeground).
				Render(line)
		}
		listLines = append(listLines, line)
	}

	header := headerStyle.Render(breadcrumb(m.stack))
	list := listStyle.Render(strings.Join(listLines, "\n"))
	detail := detailStyle.Render(m.detail.View())

	body := lipgloss.JoinHorizontal(lipgloss.Top, list, detail)

	status := fmt.Sprintf("%d/%d blocks free", m.fsFree, m.fsTotal)
	if m.err != nil {
		status = fmt.Sprintf("error: %v", m.err)
	}
	help := helpStyle.Render(fmt.Sprintf("j/k move  enter open  backspace up  q quit   %s", status))

	return lipgloss.JoinVertical(lipgloss.Left, header, body, help)
}

func formatRow(r row) string {
	if r.in.IsDir() {
		return lipgloss.NewStyle().Foreground(defaultTheme.DirectoryColor).Render(r.name + "/")
	}
	return fmt.Sprintf("%-30s %8d bytes", r.name, r.in.Size)
}

func breadcrumb(stack []frame) string {
	if len(stack) == 1 {
		return "/"
	}
	names := make([]string, 0, len(stack)-1)
	for _, f := range stack[1:] {
		names = append(names, f.name)
	}
	return "/" + strings.Join(names, "/")
}
