package prompts

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/dilemma-engine/pkg/chat"
	"github.com/jwebster45206/dilemma-engine/pkg/roles"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Tone names accepted by the dilemma builder.
const (
	ToneSerious   = "serious"
	ToneDramatic  = "dramatic"
	ToneSatirical = "satirical"
)

const ToneSeriousPrompt = `Write in a grounded, historically plausible register. Consequences are realistic and nobody is a cartoon villain. `
const ToneDramaticPrompt = `Write with vivid stakes and sharp reversals. Characters speak with conviction and the pressure mounts each day. `
const ToneSatiricalPrompt = `Write with dry political satire. Officials are self-serving in recognisable ways, but the choices still carry real weight. `

// GetTonePrompt returns the instruction for a tone, defaulting to serious.
func GetTonePrompt(tone string) string {
	switch strings.ToLower(strings.TrimSpace(tone)) {
	case ToneDramatic:
		return ToneDramaticPrompt
	case ToneSatirical:
		return ToneSatiricalPrompt
	default:
		return ToneSeriousPrompt
	}
}

// LanguageName returns the English name of a BCP 47 language code, or
// "English" when the code is empty or unknown.
func LanguageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "English"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "English"
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return "English"
	}
	return name
}

const IntroParagraphPrompt = `You write the opening paragraph of a political role-play game. In 4 to 6 sentences, in second person, place the player in their role at the moment they take power. Mention one pressure from the people and one from the powerful. Respond with JSON: {"paragraph": string}.`

// IntroParagraph builds the request for POST /api/intro-paragraph.
func IntroParagraph(role, gender string) []chat.ChatMessage {
	user := fmt.Sprintf("Role: %s", strings.TrimSpace(role))
	if g := strings.TrimSpace(gender); g != "" {
		user += fmt.Sprintf("\nPlayer gender: %s", g)
	}
	return []chat.ChatMessage{chat.System(IntroParagraphPrompt), chat.User(user)}
}

const ValidateRolePrompt = `Decide whether the text describes a role a player could hold in a political game: a person holding or seeking power over a community, real or fictional, in any era. Reject empty, abusive or nonsensical text. Respond with JSON only: {"valid": boolean, "reason": string}.`

// ValidateRole builds the request for POST /api/validate-role.
func ValidateRole(text string) []chat.ChatMessage {
	return []chat.ChatMessage{chat.System(ValidateRolePrompt), chat.User(strings.TrimSpace(text))}
}

const NameSuggestionsPrompt = `Suggest character names that fit the role's era and place. Give one male, one female and one gender-neutral name, each with a one-sentence portrait description for an image model. Respond with JSON only: {"male": {"name": string, "prompt": string}, "female": {...}, "any": {...}}.`

// NameSuggestions builds the request for POST /api/name-suggestions.
func NameSuggestions(role string) []chat.ChatMessage {
	return []chat.ChatMessage{chat.System(NameSuggestionsPrompt), chat.User("Role: " + strings.TrimSpace(role))}
}

const BackgroundObjectPrompt = `Name one physical object, in 3 to 8 words with an article, that would sit behind this character in a portrait and signal their role. Respond with JSON only: {"object": string}.`

// BackgroundObject builds the request for POST /api/bg-suggestion.
func BackgroundObject(role, gender string) []chat.ChatMessage {
	user := "Role: " + strings.TrimSpace(role)
	if g := strings.TrimSpace(gender); g != "" {
		user += "\nGender: " + g
	}
	return []chat.ChatMessage{chat.System(BackgroundObjectPrompt), chat.User(user)}
}

const AnalyzeRolePromptTemplate = `Analyse the political system the role operates in.
- systemName must be exactly one of: %s.
- systemDesc is one sentence.
- flavor is a short evocative line about the seat of power.
- holders lists 3 to 5 groups that hold power, with percent values summing to 100.
- playerIndex is the index in holders of the group the player belongs to.
Respond with JSON only: {"systemName": string, "systemDesc": string, "flavor": string, "holders": [{"name": string, "percent": number, "note": string}], "playerIndex": number}.`

// AnalyzeRole builds the request for POST /api/analyze-role.
func AnalyzeRole(role string) []chat.ChatMessage {
	system := fmt.Sprintf(AnalyzeRolePromptTemplate, strings.Join(roles.SystemNames, ", "))
	return []chat.ChatMessage{chat.System(system), chat.User("Role: " + strings.TrimSpace(role))}
}

const MirrorSummaryPrompt = `You are a mirror that reflects the player's values back to them. Given their strongest values, write two sentences in second person, warm but honest, naming what they protect and where it comes from. Respond with JSON only: {"summary": string}.`

// MirrorSummary builds the request for POST /api/mirror-summary.
func MirrorSummary(topWhat, topWhence, topOverall []string) []chat.ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "What they value: %s\n", joinOrNone(topWhat))
	fmt.Fprintf(&b, "How they justify it: %s\n", joinOrNone(topWhence))
	fmt.Fprintf(&b, "Strongest overall: %s", joinOrNone(topOverall))
	return []chat.ChatMessage{chat.System(MirrorSummaryPrompt), chat.User(b.String())}
}

// FallbackMirrorSummary is used when the model cannot be reached.
func FallbackMirrorSummary(topOverall []string) string {
	if len(topOverall) == 0 {
		return "You led by instinct more than doctrine, and your choices tell a story still being written."
	}
	return fmt.Sprintf("You kept returning to %s. Whatever the cost, that is what you chose to protect.", strings.Join(topOverall, " and "))
}

func joinOrNone(items []string) string {
	var kept []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return "none"
	}
	return strings.Join(kept, ", ")
}
