package roles

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// DefaultSystemName is used when nothing in the text points at a system.
const DefaultSystemName = "Representative Democracy"

// SystemNames is the fixed list of political systems the game displays.
var SystemNames = []string{
	"Absolute Monarchy",
	"Constitutional Monarchy",
	"Direct Democracy",
	"Representative Democracy",
	"Parliamentary Democracy",
	"Presidential Republic",
	"Military Junta",
	"Dictatorship",
	"One-Party State",
	"Theocracy",
	"Oligarchy",
	"Plutocracy",
	"Technocracy",
	"Tribal Confederation",
	"Colonial Administration",
	"Anarchy",
}

type systemRule struct {
	pattern *regexp.Regexp
	name    string
}

// systemRules are checked in order and the first match wins. Several
// patterns overlap ("general" in a junta, "king" in a constitutional
// monarchy), so the order is part of the behavior.
var systemRules = []systemRule{
	{regexp.MustCompile(`(?i)\b(junta|military|generals?|colonels?|coup|martial law)\b`), "Military Junta"},
	{regexp.MustCompile(`(?i)(theocra|\bclergy\b|\bpriests?\b|\bcaliph|\bayatollah|\bdivine mandate|\bchurch rule)`), "Theocracy"},
	{regexp.MustCompile(`(?i)(constitutional monarch|crown and parliament|\bfigurehead (king|queen|monarch))`), "Constitutional Monarchy"},
	{regexp.MustCompile(`(?i)(absolute monarch|divine right|\b(tsar|czar|emperor|empress|pharaoh|sultan|kings?|queens?|monarch|throne)\b)`), "Absolute Monarchy"},
	{regexp.MustCompile(`(?i)(one[- ]party|single[- ]party|\bcommunist|\bpolitburo|\bsoviet|\bparty secretary)`), "One-Party State"},
	{regexp.MustCompile(`(?i)(direct democra|\bekklesia\b|\bassembly of (all )?citizens|\bathen(s|ian)\b|\breferend)`), "Direct Democracy"},
	{regexp.MustCompile(`(?i)(\bparliament|\bprime minister|\bwestminster)`), "Parliamentary Democracy"},
	{regexp.MustCompile(`(?i)(\bpresident|\bcongress\b)`), "Presidential Republic"},
	{regexp.MustCompile(`(?i)(\bdictator|\bstrongman\b|\bautocra|\btyrant)`), "Dictatorship"},
	{regexp.MustCompile(`(?i)(plutocra|\bbillionaires?\b|\bmerchant princes?\b|\bcorporat|\bcompany town\b)`), "Plutocracy"},
	{regexp.MustCompile(`(?i)(oligarch|\baristocra|\bnobles?\b|\bcouncil of elders\b|\bfew families\b)`), "Oligarchy"},
	{regexp.MustCompile(`(?i)(\bcolonial\b|\bviceroy|\bprotectorate\b|\boccupation authority\b)`), "Colonial Administration"},
	{regexp.MustCompile(`(?i)(technocra|\bengineers?\b|\bscientists?\b|\bmars\b|\bspace colony\b|\balgorithm)`), "Technocracy"},
	{regexp.MustCompile(`(?i)(\btrib(e|es|al)\b|\bclans?\b|\bchieftain|\bconfedera)`), "Tribal Confederation"},
	{regexp.MustCompile(`(?i)(anarch|\blawless|\bno government\b|\bstateless\b)`), "Anarchy"},
	{regexp.MustCompile(`(?i)(democra|\brepublic\b|\belected\b|\belections?\b)`), "Representative Democracy"},
}

// IsSystemName reports whether name is one of SystemNames, ignoring case.
func IsSystemName(name string) bool {
	_, ok := canonicalSystem(name)
	return ok
}

// CoerceSystemName maps a free-text system name onto SystemNames. A value
// that is already a member is returned in its canonical spelling. Otherwise
// the name and any extra hint text are matched against ordered keyword
// rules, falling back to DefaultSystemName.
func CoerceSystemName(name string, hints ...string) string {
	if canonical, ok := canonicalSystem(name); ok {
		return canonical
	}
	text := strings.Join(append([]string{name}, hints...), " ")
	for _, rule := range systemRules {
		if rule.pattern.MatchString(text) {
			return rule.name
		}
	}
	return DefaultSystemName
}

func canonicalSystem(name string) (string, bool) {
	folder := cases.Fold()
	key := folder.String(strings.Join(strings.Fields(name), " "))
	if key == "" {
		return "", false
	}
	for _, s := range SystemNames {
		if folder.String(s) == key {
			return s, true
		}
	}
	return "", false
}
