package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/dilemma-engine/pkg/chat"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
)

// DayKind selects the turn template for a day.
type DayKind int

const (
	DayOpening DayKind = iota
	DayBridge
	DayClimax
	DayAftermath
)

// DefaultTopics rotate through the bridge days.
var DefaultTopics = []string{
	"the economy and taxes",
	"security and the army",
	"justice and the courts",
	"religion and tradition",
	"foreign relations",
	"public health",
	"land and resources",
}

// KindForDay maps a day number onto its template. Day 1 sets the scene, the
// last dilemma day is the climax, and the day after it is the aftermath.
func KindForDay(day, totalDays int) DayKind {
	if totalDays <= 0 {
		totalDays = run.DefaultTotalDays
	}
	switch {
	case day <= 1:
		return DayOpening
	case day > totalDays:
		return DayAftermath
	case day == totalDays:
		return DayClimax
	default:
		return DayBridge
	}
}

// DilemmaSystemPromptTemplate describes the reply schema for dilemma turns.
const DilemmaSystemPromptTemplate = `You are the game master of a political role-play. The player is %s%s.
%s
Each turn you present ONE dilemma the player must decide.

Player goals:
%s

Write in %s.

OUTPUT (JSON only, no prose around it):
- title: string, at most 8 words
- description: string, 2 to 4 sentences, second person
- actions: array of EXACTLY 3 objects {title, summary}; distinct, each a real trade-off
- supportShift: object {people, middle, mom}, each {delta, why}; delta is a whole number from -%d to %d describing how the group reacted to the player's PREVIOUS decision
  • people: the general population
  • middle: the power-holders around the player
  • mom: the player's personal anchor, the one person whose trust they cannot buy
- objectiveCompleted: boolean, true only when the previous decision clearly achieved a player goal
On the aftermath day there are no actions; instead write monologue: string, an advisor's closing speech of 4 to 6 sentences.`

// Builder constructs the messages for one dilemma turn.
type Builder struct {
	state          *run.GameRunState
	tone           string
	lang           string
	topics         []string
	previousChoice string
}

// New creates a builder with the default topic rotation.
func New() *Builder {
	return &Builder{topics: DefaultTopics}
}

// WithRun sets the run the turn is for.
func (b *Builder) WithRun(s run.GameRunState) *Builder {
	b.state = &s
	return b
}

// WithTone sets the writing tone.
func (b *Builder) WithTone(tone string) *Builder {
	b.tone = tone
	return b
}

// WithLanguage sets the reply language as a BCP 47 code.
func (b *Builder) WithLanguage(code string) *Builder {
	b.lang = code
	return b
}

// WithTopics replaces the topic rotation.
func (b *Builder) WithTopics(topics []string) *Builder {
	if len(topics) > 0 {
		b.topics = topics
	}
	return b
}

// WithPreviousChoice sets the action the player took yesterday.
func (b *Builder) WithPreviousChoice(choice string) *Builder {
	b.previousChoice = choice
	return b
}

// Build returns the system message and the turn message.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.state == nil {
		return nil, fmt.Errorf("run is required")
	}
	if b.state.RoleKey == "" && b.state.RoleTitle == "" {
		return nil, fmt.Errorf("role is required")
	}
	if b.state.Day < 1 {
		return nil, fmt.Errorf("day %d is out of range", b.state.Day)
	}
	return []chat.ChatMessage{
		chat.System(b.systemPrompt()),
		chat.User(b.turnPrompt()),
	}, nil
}

func (b *Builder) systemPrompt() string {
	s := b.state
	role := s.RoleTitle
	if role == "" {
		role = s.RoleKey
	}
	setting := ""
	if s.Setting != "" {
		setting = " in " + s.Setting
	}

	goals := "- (none stated)"
	if len(s.Goals) > 0 {
		lines := make([]string, len(s.Goals))
		for i, g := range s.Goals {
			lines[i] = "- " + g
		}
		goals = strings.Join(lines, "\n")
	}

	return fmt.Sprintf(DilemmaSystemPromptTemplate,
		role, setting,
		GetTonePrompt(b.tone),
		goals,
		LanguageName(b.lang),
		MaxSupportShift, MaxSupportShift,
	)
}

func (b *Builder) turnPrompt() string {
	s := b.state
	var sb strings.Builder
	fmt.Fprintf(&sb, "Day %d of %d.\n", s.Day, s.TotalDays)

	kind := KindForDay(s.Day, s.TotalDays)
	if kind != DayOpening && b.previousChoice != "" {
		fmt.Fprintf(&sb, "Yesterday the player chose: %s\n", b.previousChoice)
	}

	switch kind {
	case DayOpening:
		sb.WriteString("Set the scene: introduce the seat of power and the first crisis. ")
		sb.WriteString("There is no previous decision, so every supportShift delta is 0.\n")
		sb.WriteString("Axes to probe: []")
	case DayClimax:
		sb.WriteString("This is the final dilemma. Tie together the threads of earlier days")
		if titles := b.previousTitles(); titles != "" {
			fmt.Fprintf(&sb, " (%s)", titles)
		}
		sb.WriteString(" into one decisive choice.")
	case DayAftermath:
		sb.WriteString("The days of decision are over. Give no actions. ")
		sb.WriteString("Write the advisor's monologue reflecting on how the player's reign will be remembered.")
	default:
		fmt.Fprintf(&sb, "Open with one sentence bridging from yesterday, then present a new dilemma about %s.", b.topicForDay(s.Day))
	}
	return sb.String()
}

func (b *Builder) topicForDay(day int) string {
	if len(b.topics) == 0 {
		return "governance"
	}
	i := (day - 2) % len(b.topics)
	if i < 0 {
		i = 0
	}
	return b.topics[i]
}

func (b *Builder) previousTitles() string {
	var titles []string
	for _, h := range b.state.History {
		if h.Title != "" {
			titles = append(titles, h.Title)
		}
	}
	return strings.Join(titles, "; ")
}

// BuildDilemmaMessages is a convenience function for the common case.
func BuildDilemmaMessages(s run.GameRunState, tone, lang, previousChoice string) ([]chat.ChatMessage, error) {
	return New().
		WithRun(s).
		WithTone(tone).
		WithLanguage(lang).
		WithPreviousChoice(previousChoice).
		Build()
}
