package roles

import (
	"strings"
)

// DefaultBackgroundObject is used when no rule matches the role.
const DefaultBackgroundObject = "a quill resting beside an inkwell"

type objectRule struct {
	keywords []string
	object   string
}

// backgroundRules are checked in order against the lowercased role text and
// the first rule with a matching substring wins.
var backgroundRules = []objectRule{
	{[]string{"mars", "colony", "space", "orbital"}, "a dust-scuffed pressure helmet"},
	{[]string{"athens", "athenian", "greek", "sparta", "strategos"}, "a marble bust of Athena"},
	{[]string{"rome", "roman", "senator", "caesar"}, "a bronze legion eagle"},
	{[]string{"general", "military", "army", "junta", "colonel"}, "a campaign map with brass markers"},
	{[]string{"king", "queen", "monarch", "emperor", "throne", "tsar"}, "a jeweled crown on a velvet cushion"},
	{[]string{"president", "white house", "washington"}, "a presidential seal"},
	{[]string{"prime minister", "parliament"}, "a red dispatch box"},
	{[]string{"priest", "pope", "church", "temple", "imam"}, "a smoking censer"},
	{[]string{"pirate", "captain", "ship", "admiral"}, "a ship's wheel"},
	{[]string{"mayor", "city", "town"}, "a ceremonial chain of office"},
	{[]string{"ceo", "company", "corporate", "merchant"}, "a ledger bound in leather"},
	{[]string{"revolution", "rebel", "insurgent"}, "a torn banner"},
}

// BackgroundSuggestion picks a backdrop object for the role by keyword.
func BackgroundSuggestion(role string) string {
	r := strings.ToLower(role)
	for _, rule := range backgroundRules {
		for _, kw := range rule.keywords {
			if strings.Contains(r, kw) {
				return rule.object
			}
		}
	}
	return DefaultBackgroundObject
}

// NameSuggestion is one suggested character name with the avatar prompt
// that goes with it.
type NameSuggestion struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// NameSuggestions holds one suggestion per gender option.
type NameSuggestions struct {
	Male   NameSuggestion `json:"male"`
	Female NameSuggestion `json:"female"`
	Any    NameSuggestion `json:"any"`
}

// Complete reports whether every slot has a name.
func (n NameSuggestions) Complete() bool {
	return n.Male.Name != "" && n.Female.Name != "" && n.Any.Name != ""
}

var fallbackNames = map[Category][3]string{
	CategoryAthens:       {"Kleon", "Aspasia", "Nikias"},
	CategoryNorthAmerica: {"James Whitaker", "Abigail Carter", "Jordan Hayes"},
	CategoryMarsColony:   {"Idris Kael", "Mira Solenne", "Rowan Vega"},
	CategoryOther:        {"Alexander", "Helena", "Morgan"},
}

// FallbackNames returns fixed suggestions for when the name generator is
// unavailable. Any slot already filled in s is kept.
func FallbackNames(role string, s NameSuggestions) NameSuggestions {
	names := fallbackNames[Categorize(role)]
	fill := func(slot *NameSuggestion, name, gender string) {
		if slot.Name == "" {
			slot.Name = name
		}
		if slot.Prompt == "" {
			slot.Prompt = AvatarPrompt(role, gender, slot.Name)
		}
	}
	fill(&s.Male, names[0], "male")
	fill(&s.Female, names[1], "female")
	fill(&s.Any, names[2], "")
	return s
}

// AvatarPrompt builds a portrait prompt for the image model.
func AvatarPrompt(role, gender, name string) string {
	var b strings.Builder
	b.WriteString("Painterly head-and-shoulders portrait of ")
	if name != "" {
		b.WriteString(name)
		b.WriteString(", ")
	}
	switch strings.ToLower(gender) {
	case "male":
		b.WriteString("a man serving as ")
	case "female":
		b.WriteString("a woman serving as ")
	default:
		b.WriteString("a person serving as ")
	}
	b.WriteString(strings.TrimSpace(role))
	b.WriteString(", period-appropriate attire, soft dramatic lighting, neutral background")
	return b.String()
}
