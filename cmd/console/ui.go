package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jwebster45206/dilemma-engine/internal/handlers"
	"github.com/jwebster45206/dilemma-engine/pkg/finalscore"
	"github.com/jwebster45206/dilemma-engine/pkg/highscore"
	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
	"github.com/jwebster45206/dilemma-engine/pkg/reveal"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
	"github.com/jwebster45206/dilemma-engine/pkg/scoring"
)

const (
	PlaceHolderText = "Who are you? e.g. Strategos of Athens, 431 BCE"
	hallOfFameShown = 10
	revealFrameRate = 50 * time.Millisecond
	remoteWait      = 30 * time.Second
)

type stage int

const (
	stageRole stage = iota
	stageDilemma
	stageAftermath
	stageScore
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config    *ConsoleConfig
	api       *apiClient
	client    *http.Client
	logger    *slog.Logger
	sessionID string

	store *run.Store
	board *highscore.Board
	final *finalscore.Screen

	stage         stage
	roleInput     textinput.Model
	spinner       spinner.Model
	storyViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	err           error
	loading       string
	notice        string

	intro      string
	systemName string
	dilemma    *prompts.DilemmaReply
	selected   int

	showQuitModal bool
}

type roleValidatedMsg struct {
	role string
	resp *handlers.ValidateRoleResponse
	err  error
}

type runStartedMsg struct {
	state      run.GameRunState
	intro      string
	systemName string
	reply      *prompts.DilemmaReply
	err        error
}

type dilemmaMsg struct {
	title  string
	choice string
	reply  *prompts.DilemmaReply
	err    error
}

type boardLoadedMsg struct {
	entries []highscore.Entry
	err     error
}

type revealTickMsg time.Time

type remoteRankMsg finalscore.Update

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(1).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	narratorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	gainStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")) // green

	lossStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")) // salmon

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

var categoryLabels = map[scoring.Category]string{
	scoring.CategoryPeople: "The people",
	scoring.CategoryMiddle: "The powerful",
	scoring.CategoryMom:    "Mom",
}

func NewConsoleUI(cfg *ConsoleConfig, api *apiClient, client *http.Client, logger *slog.Logger) ConsoleUI {
	ti := textinput.New()
	ti.Placeholder = PlaceHolderText
	ti.Prompt = promptStyle.Render(":: ")
	ti.CharLimit = 200
	ti.Width = 50
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	return ConsoleUI{
		config:        cfg,
		api:           api,
		client:        client,
		logger:        logger,
		sessionID:     uuid.NewString(),
		stage:         stageRole,
		roleInput:     ti,
		spinner:       sp,
		storyViewport: storyVp,
		metaViewport:  viewport.New(20, 20),
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		storyWidth, metaWidth := m.panelWidths()
		m.storyViewport.Width = storyWidth - 2
		m.storyViewport.Height = m.height - 6
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 3
		m.roleInput.Width = storyWidth - 8
		m.ready = true
		m.refresh()
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.storyViewport, cmd = m.storyViewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading != "" {
			m.refresh()
		}
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.showQuitModal = true
			return m, nil
		}
		if m.loading != "" {
			return m, nil
		}
		return m.handleKey(msg)

	case roleValidatedMsg:
		if msg.err != nil {
			m.loading = ""
			m.err = msg.err
			break
		}
		if !msg.resp.Valid {
			m.loading = ""
			m.notice = "That role won't work: " + msg.resp.Reason
			break
		}
		m.loading = "Setting the stage..."
		m.refresh()
		return m, m.startRun(msg.role)

	case runStartedMsg:
		m.loading = ""
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.store = run.NewStore(msg.state)
		m.intro = msg.intro
		m.systemName = msg.systemName
		m.dilemma = msg.reply
		m.selected = 0
		m.stage = stageDilemma
		m.roleInput.Blur()

	case dilemmaMsg:
		m.loading = ""
		if msg.err != nil {
			m.err = msg.err
			break
		}
		m.applyChoice(msg)

	case boardLoadedMsg:
		m.loading = ""
		return m.enterScore(msg)

	case revealTickMsg:
		if m.final == nil || m.stage != stageScore {
			return m, nil
		}
		m.final.Tick(time.Time(msg))
		m.refresh()
		if m.final.Display().State != reveal.StateSettled {
			return m, revealTick()
		}
		return m, nil

	case remoteRankMsg:
		if msg.IsPersonalBest {
			m.notice = fmt.Sprintf("New personal best! Global rank #%d", msg.GlobalRank)
		} else if msg.GlobalRank > 0 {
			m.notice = fmt.Sprintf("Global rank #%d", msg.GlobalRank)
		}
	}

	m.refresh()
	return m, nil
}

func (m ConsoleUI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.stage {
	case stageRole:
		if msg.Type == tea.KeyEnter {
			role := strings.TrimSpace(m.roleInput.Value())
			if role == "" {
				return m, nil
			}
			m.err = nil
			m.notice = ""
			m.loading = "Checking your role..."
			m.refresh()
			return m, m.validateRole(role)
		}
		var cmd tea.Cmd
		m.roleInput, cmd = m.roleInput.Update(msg)
		m.refresh()
		return m, cmd

	case stageDilemma:
		if m.dilemma == nil {
			return m, nil
		}
		switch msg.String() {
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
		case "down", "j":
			if m.selected < len(m.dilemma.Actions)-1 {
				m.selected++
			}
		case "1", "2", "3":
			if i := int(msg.String()[0] - '1'); i < len(m.dilemma.Actions) {
				m.selected = i
			}
		case "enter":
			if m.selected >= len(m.dilemma.Actions) {
				return m, nil
			}
			m.err = nil
			m.notice = ""
			m.loading = "The city reacts..."
			m.refresh()
			return m, m.choose(m.dilemma.Title, m.dilemma.Actions[m.selected].Title)
		default:
			var cmd tea.Cmd
			m.storyViewport, cmd = m.storyViewport.Update(msg)
			return m, cmd
		}
		m.refresh()
		return m, nil

	case stageAftermath:
		if msg.Type == tea.KeyEnter {
			m.loading = "Counting the votes..."
			m.refresh()
			return m, m.loadBoard()
		}

	case stageScore:
		return m.handleScoreKey(msg)
	}

	var cmd tea.Cmd
	m.storyViewport, cmd = m.storyViewport.Update(msg)
	m.refresh()
	return m, cmd
}

func (m ConsoleUI) handleScoreKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		m.final.Skip()
	case "r":
		if _, err := m.final.Replay(time.Now()); err != nil {
			m.err = err
			break
		}
		m.notice = ""
		m.refresh()
		return m, revealTick()
	case "c":
		id := m.store.Snapshot().ID.String()
		if err := clipboard.WriteAll(handlers.ShareURL(m.config.ShareBaseURL, id)); err != nil {
			m.notice = "Could not copy: " + err.Error()
		} else {
			m.notice = "Share link copied to clipboard"
		}
	case "n":
		m.final.Close()
		m.final = nil
		if err := m.store.Dispatch(run.Reset{Now: time.Now()}); err != nil {
			m.logger.Warn("Failed to reset run", "error", err)
		}
		m.stage = stageRole
		m.dilemma = nil
		m.intro = ""
		m.systemName = ""
		m.notice = ""
		m.roleInput.Reset()
		m.roleInput.Focus()
		m.refresh()
		return m, textinput.Blink
	case "q":
		m.showQuitModal = true
	}
	m.refresh()
	return m, nil
}

// applyChoice resolves the current day with the shifts reported by the
// reply for the next day, then shows that reply.
func (m *ConsoleUI) applyChoice(msg dilemmaMsg) {
	shift := msg.reply.SupportShift
	deltas := run.SupportDeltas{
		People: shift.People.Delta,
		Middle: shift.Middle.Delta,
		Mom:    shift.Mom.Delta,
	}
	if err := m.store.Dispatch(run.ResolveDay{
		Title:  msg.title,
		Choice: msg.choice,
		Deltas: deltas,
		Now:    time.Now(),
	}); err != nil {
		m.err = err
		return
	}
	m.notice = describeShift(deltas, m.config.FreePlay)
	m.dilemma = msg.reply
	m.selected = 0
	if m.store.Snapshot().Phase() == run.PhaseAftermath {
		m.stage = stageAftermath
	}
}

func (m ConsoleUI) enterScore(msg boardLoadedMsg) (tea.Model, tea.Cmd) {
	m.board = highscore.NewBoard(highscore.HallOfFameSize)
	if msg.err != nil {
		m.logger.Warn("Hall of Fame unavailable", "error", msg.err)
		m.notice = "Hall of Fame unavailable, ranking locally"
	}
	for _, e := range msg.entries {
		m.board.Add(e)
	}

	m.final = finalscore.NewScreen(finalscore.Config{
		Store:     m.store,
		Board:     m.board,
		Submitter: highscore.NewClient(m.config.APIBaseURL, m.client),
		Logger:    m.logger,
		SessionID: m.sessionID,
	})
	if _, err := m.final.Enter(time.Now()); err != nil {
		m.err = err
		m.refresh()
		return m, nil
	}
	m.stage = stageScore
	m.refresh()
	return m, tea.Batch(revealTick(), waitForRemote(m.final.Updates()))
}

func (m ConsoleUI) validateRole(role string) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.api.validateRole(context.Background(), role)
		return roleValidatedMsg{role: role, resp: resp, err: err}
	}
}

// startRun gathers the role content and the first dilemma. Missing
// flavour content is logged and skipped; only the dilemma is required.
func (m ConsoleUI) startRun(role string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		var systemName string
		if analysis, err := m.api.analyzeRole(ctx, role); err != nil {
			m.logger.Warn("Role analysis failed", "role", role, "error", err)
		} else {
			systemName = analysis.SystemName
		}

		name := "Anonymous"
		if names, err := m.api.suggestNames(ctx, role); err != nil {
			m.logger.Warn("Name suggestions failed", "role", role, "error", err)
		} else if names.Any.Name != "" {
			name = names.Any.Name
		}

		intro, err := m.api.intro(ctx, role, "")
		if err != nil {
			m.logger.Warn("Intro paragraph failed", "role", role, "error", err)
		}

		now := time.Now()
		s, err := run.Reduce(run.Default(), run.StartRun{
			UserID:    m.config.UserID,
			RoleKey:   role,
			RoleTitle: role,
			FreePlay:  m.config.FreePlay,
			Now:       now,
		})
		if err != nil {
			return runStartedMsg{err: err}
		}
		s, err = run.Reduce(s, run.SetProfile{
			Character:       &run.Character{Name: name, About: role},
			PoliticalSystem: systemName,
			Now:             now,
		})
		if err != nil {
			return runStartedMsg{err: err}
		}

		reply, err := m.api.dilemma(ctx, s, "")
		return runStartedMsg{state: s, intro: intro, systemName: systemName, reply: reply, err: err}
	}
}

// choose asks for the next day's content as if the current day were
// already resolved. The reply carries the support shifts for the choice.
func (m ConsoleUI) choose(title, choice string) tea.Cmd {
	preview := m.store.Snapshot()
	preview.History = append(preview.History, run.DayRecord{Day: preview.Day, Title: title, Choice: choice})
	preview.Day++
	return func() tea.Msg {
		reply, err := m.api.dilemma(context.Background(), preview, choice)
		return dilemmaMsg{title: title, choice: choice, reply: reply, err: err}
	}
}

func (m ConsoleUI) loadBoard() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.api.highscores(context.Background(), highscore.HallOfFameSize)
		return boardLoadedMsg{entries: entries, err: err}
	}
}

func revealTick() tea.Cmd {
	return tea.Tick(revealFrameRate, func(t time.Time) tea.Msg {
		return revealTickMsg(t)
	})
}

func waitForRemote(updates <-chan finalscore.Update) tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-updates:
			return remoteRankMsg(u)
		case <-time.After(remoteWait):
			return nil
		}
	}
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m.quit()
		default:
			switch msg.String() {
			case "y", "Y":
				return m.quit()
			case "n", "N":
				m.showQuitModal = false
				if m.stage == stageRole {
					m.roleInput.Focus()
					return m, textinput.Blink
				}
				return m, nil
			}
		}
	}

	return m, nil
}

// quit waits briefly for a pending highscore submission before exiting.
func (m ConsoleUI) quit() (tea.Model, tea.Cmd) {
	if m.final != nil {
		done := make(chan struct{})
		go func() {
			m.final.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
		m.final.Close()
	}
	return m, tea.Quit
}

func (m ConsoleUI) panelWidths() (int, int) {
	storyWidth := int(float64(m.width)*0.7) - 4
	return storyWidth, m.width - storyWidth - 6
}

// refresh rebuilds both panels for the current width.
func (m *ConsoleUI) refresh() {
	if !m.ready {
		return
	}
	width := m.storyViewport.Width - 6
	if width < 20 {
		width = 20
	}
	m.storyViewport.SetContent(m.writeStory(width))
	m.metaViewport.SetContent(m.writeMetadata())
}

func (m ConsoleUI) writeStory(width int) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("DILEMMA ENGINE") + "\n\n")

	switch m.stage {
	case stageRole:
		content.WriteString(wordwrap.String("Describe the role you want to play: a ruler, a rebel or anyone who holds power, in any era real or imagined.", width) + "\n\n")

	case stageDilemma:
		if m.intro != "" && m.store.Snapshot().Day == 1 {
			content.WriteString(narratorStyle.Render(wordwrap.String(m.intro, width)) + "\n\n")
			content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")
		}
		if m.dilemma != nil {
			content.WriteString(renderDilemma(m.dilemma, m.selected, width))
		}

	case stageAftermath:
		content.WriteString(headingStyle.Render(m.dilemma.Title) + "\n\n")
		content.WriteString(narratorStyle.Render(wordwrap.String(m.dilemma.Monologue, width)) + "\n\n")
		content.WriteString(promptStyle.Render("Press Enter to see your final score") + "\n")

	case stageScore:
		content.WriteString(m.renderScore(width))
	}

	if m.notice != "" {
		content.WriteString("\n" + loadingStyle.Render(wordwrap.String(m.notice, width)) + "\n")
	}
	if m.err != nil {
		content.WriteString("\n" + errorStyle.Render(wordwrap.String("Error: "+m.err.Error(), width)) + "\n")
	}
	if m.loading != "" {
		content.WriteString("\n" + m.spinner.View() + " " + loadingStyle.Render(m.loading) + "\n")
	}
	return content.String()
}

func renderDilemma(d *prompts.DilemmaReply, selected, width int) string {
	var content strings.Builder
	content.WriteString(headingStyle.Render(fmt.Sprintf("Day %d: %s", d.Day, d.Title)) + "\n\n")
	content.WriteString(wordwrap.String(d.Description, width) + "\n\n")
	for i, a := range d.Actions {
		line := fmt.Sprintf("%d. %s", i+1, a.Title)
		if i == selected {
			content.WriteString(selectedItemStyle.Render("▶ "+line) + "\n")
		} else {
			content.WriteString("  " + line + "\n")
		}
		if a.Summary != "" {
			content.WriteString(promptStyle.Render(wordwrap.String("   "+a.Summary, width)) + "\n")
		}
	}
	content.WriteString("\n" + promptStyle.Render("Use ↑/↓ or 1-3 to choose, Enter to decide") + "\n")
	return content.String()
}

func (m ConsoleUI) renderScore(width int) string {
	var content strings.Builder
	content.WriteString(headingStyle.Render("FINAL SCORE") + "\n\n")

	disp := m.final.Display()
	breakdown := m.final.Breakdown()
	for i, step := range breakdown.Sequence() {
		value := 0
		if i < len(disp.Values) {
			value = disp.Values[i]
		}
		content.WriteString(fmt.Sprintf("%-14s %4d / %d\n", categoryLabels[step.Category], value, scoring.MaxPointsPerTrack))
	}
	content.WriteString(separatorStyle.Render(strings.Repeat("─", min(width, 30))) + "\n")
	content.WriteString(titleStyle.Render(fmt.Sprintf("%-14s %4d / %d", "Total", disp.Total, breakdown.MaxFinal)) + "\n\n")

	if disp.State != reveal.StateSettled {
		content.WriteString(promptStyle.Render("Press Space to skip") + "\n")
		return content.String()
	}

	if rank := m.final.Rank(); rank != highscore.NotRanked {
		content.WriteString(fmt.Sprintf("Hall of Fame rank: #%d\n", rank))
	} else {
		content.WriteString("Not in the Hall of Fame this time.\n")
	}
	if remote, ok := m.final.Remote(); ok && remote.UserRank > 0 {
		content.WriteString(fmt.Sprintf("Your rank among your own runs: #%d\n", remote.UserRank))
	}

	content.WriteString("\n" + headingStyle.Render("HALL OF FAME") + "\n")
	for i, e := range m.board.Top(hallOfFameShown) {
		content.WriteString(fmt.Sprintf("%2d. %-20s %5d  %s\n", i+1, truncate(e.Name, 20), e.Score, truncate(e.Role, max(width-32, 8))))
	}

	content.WriteString("\n" + promptStyle.Render("C: copy share link  R: replay  N: new game  Q: quit") + "\n")
	return content.String()
}

func (m ConsoleUI) writeMetadata() string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("YOUR REIGN") + "\n\n")

	if m.store == nil {
		content.WriteString("No run yet.\n\n")
	} else {
		s := m.store.Snapshot()
		content.WriteString("Name:\n" + s.Character.Name + "\n\n")
		content.WriteString("Role:\n" + wordwrap.String(s.RoleTitle, max(m.metaViewport.Width, 10)) + "\n\n")
		if m.systemName != "" {
			content.WriteString("System:\n" + m.systemName + "\n\n")
		}
		switch s.Phase() {
		case run.PhaseDilemma:
			content.WriteString(fmt.Sprintf("Day:\n%d of %d\n\n", s.Day, s.TotalDays))
		default:
			content.WriteString("Day:\nAftermath\n\n")
		}

		barWidth := max(m.metaViewport.Width-8, 5)
		content.WriteString("Support:\n")
		content.WriteString(renderMeter(categoryLabels[scoring.CategoryPeople], s.SupportPeople, barWidth))
		content.WriteString(renderMeter(categoryLabels[scoring.CategoryMiddle], s.SupportMiddle, barWidth))
		if !s.FreePlay {
			content.WriteString(renderMeter(categoryLabels[scoring.CategoryMom], s.SupportMom, barWidth))
		}
		content.WriteString("\n")
	}

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Confirm\n")
	return content.String()
}

func renderMeter(label string, percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	filled = max(0, min(width, filled))
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return fmt.Sprintf("%s\n%s %3.0f%%\n", label, separatorStyle.Render(bar), percent)
}

// describeShift summarises the support change of a decision, for example
// "The people +5, The powerful -3".
func describeShift(d run.SupportDeltas, freePlay bool) string {
	type part struct {
		label string
		delta float64
	}
	parts := []part{
		{categoryLabels[scoring.CategoryPeople], d.People},
		{categoryLabels[scoring.CategoryMiddle], d.Middle},
	}
	if !freePlay {
		parts = append(parts, part{categoryLabels[scoring.CategoryMom], d.Mom})
	}

	var out []string
	for _, p := range parts {
		switch {
		case p.delta > 0:
			out = append(out, gainStyle.Render(fmt.Sprintf("%s +%.0f", p.label, p.delta)))
		case p.delta < 0:
			out = append(out, lossStyle.Render(fmt.Sprintf("%s %.0f", p.label, p.delta)))
		}
	}
	if len(out) == 0 {
		return "Nobody's opinion of you changed."
	}
	return strings.Join(out, ", ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to step down?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth, metaWidth := m.panelWidths()

	parts := []string{m.storyViewport.View()}
	if m.stage == stageRole {
		parts = append(parts,
			"",
			separatorStyle.Render(strings.Repeat("─", max(storyWidth-4, 1))),
			m.roleInput.View(),
		)
	}

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, parts...),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}
