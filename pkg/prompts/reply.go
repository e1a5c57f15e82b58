package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

// MaxSupportShift bounds each support delta the model may report.
const MaxSupportShift = 20

var ErrInvalidReply = errors.New("invalid dilemma reply")

// Action is one of the choices offered for a dilemma.
type Action struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Shift is how one group reacted to the previous decision.
type Shift struct {
	Delta float64 `json:"delta"`
	Why   string  `json:"why,omitempty"`
}

// SupportShift holds the reaction of every support group.
type SupportShift struct {
	People Shift `json:"people"`
	Middle Shift `json:"middle"`
	Mom    Shift `json:"mom"`
}

// DilemmaReply is a validated model reply for one day.
type DilemmaReply struct {
	Day                int          `json:"day"`
	Title              string       `json:"title"`
	Description        string       `json:"description"`
	Actions            []Action     `json:"actions"`
	SupportShift       SupportShift `json:"supportShift"`
	ObjectiveCompleted bool         `json:"objectiveCompleted"`
	Monologue          string       `json:"monologue,omitempty"`
	Fallback           bool         `json:"fallback,omitempty"`
}

// ParseDilemmaReply decodes and validates an untrusted reply. Code fences
// around the JSON are tolerated; deltas are rounded and clamped to
// MaxSupportShift. Dilemma days need a title, a description and exactly
// three actions. The aftermath day needs a monologue and gets no actions.
func ParseDilemmaReply(raw string, day, totalDays int) (*DilemmaReply, error) {
	var r DilemmaReply
	if err := json.Unmarshal([]byte(StripCodeFence(raw)), &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	r.Day = day
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Monologue = strings.TrimSpace(r.Monologue)

	if KindForDay(day, totalDays) == DayAftermath {
		if r.Monologue == "" {
			return nil, fmt.Errorf("%w: aftermath reply has no monologue", ErrInvalidReply)
		}
		r.Actions = nil
	} else {
		if r.Title == "" || r.Description == "" {
			return nil, fmt.Errorf("%w: title and description are required", ErrInvalidReply)
		}
		if len(r.Actions) != 3 {
			return nil, fmt.Errorf("%w: expected 3 actions, got %d", ErrInvalidReply, len(r.Actions))
		}
		for i := range r.Actions {
			r.Actions[i].Title = strings.TrimSpace(r.Actions[i].Title)
			if r.Actions[i].Title == "" {
				return nil, fmt.Errorf("%w: action %d has no title", ErrInvalidReply, i+1)
			}
		}
	}

	if KindForDay(day, totalDays) == DayOpening {
		r.SupportShift = SupportShift{}
	}
	r.SupportShift.People.Delta = clampShift(r.SupportShift.People.Delta)
	r.SupportShift.Middle.Delta = clampShift(r.SupportShift.Middle.Delta)
	r.SupportShift.Mom.Delta = clampShift(r.SupportShift.Mom.Delta)
	return &r, nil
}

// FallbackDilemma is served when the model fails or replies with garbage.
func FallbackDilemma(day, totalDays int) DilemmaReply {
	if KindForDay(day, totalDays) == DayAftermath {
		return DilemmaReply{
			Day:       day,
			Title:     "The Aftermath",
			Monologue: "The days of decision are behind you. Some will call your choices wisdom and others will call them betrayal. What remains is the city you leave behind, and the people who must live in it. History will take its time deciding which of them was right.",
			Fallback:  true,
		}
	}
	return DilemmaReply{
		Day:         day,
		Title:       "A Quiet Crisis",
		Description: "Grain stores are running low and the council is divided. Merchants want prices freed, the poor want bread rationed, and your closest confidant warns that either choice will cost you someone's trust.",
		Actions: []Action{
			{Title: "Free the markets", Summary: "Let prices rise and trust trade to refill the stores."},
			{Title: "Ration the grain", Summary: "Seize the stores and hand out equal portions."},
			{Title: "Buy from abroad", Summary: "Empty the treasury to import grain at a premium."},
		},
		Fallback: true,
	}
}

// StripCodeFence removes a surrounding ``` or ```json fence.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && fenceTag.MatchString(strings.TrimSpace(s[:nl])) {
		s = s[nl+1:]
	} else {
		s = inlineJSONTag.ReplaceAllString(s, "")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var (
	fenceTag      = regexp.MustCompile(`^[A-Za-z0-9_+-]*$`)
	inlineJSONTag = regexp.MustCompile(`^(?i)json\s*`)
)

func clampShift(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-MaxSupportShift, math.Min(MaxSupportShift, math.Round(v)))
}
