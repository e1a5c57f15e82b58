// Package analytics answers questions about played runs from exported
// in-game and summary logs: who finished which roles, how far players got,
// and where the two logs disagree.
package analytics

import (
	"sort"
	"strings"
	"time"

	"github.com/jwebster45206/dilemma-engine/pkg/roles"
)

// FinalDay is the day on which a run reaches its aftermath.
const FinalDay = 8

// TrackedRoles are the scenario categories the reports look at.
var TrackedRoles = []roles.Category{
	roles.CategoryAthens,
	roles.CategoryNorthAmerica,
	roles.CategoryMarsColony,
}

// Excluded is a set of user IDs left out of every report, such as staff
// accounts used for testing.
type Excluded map[string]bool

// NewExcluded builds a set from a comma-separated list.
func NewExcluded(list string) Excluded {
	ex := Excluded{}
	for _, id := range strings.Split(list, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ex[id] = true
		}
	}
	return ex
}

func (e Excluded) has(userID string) bool {
	return e[userID]
}

// RoleSet is the tracked categories a user touched.
type RoleSet map[roles.Category]bool

// Has reports whether c is in the set.
func (s RoleSet) Has(c roles.Category) bool { return s[c] }

// Sorted returns the categories in TrackedRoles order.
func (s RoleSet) Sorted() []roles.Category {
	var out []roles.Category
	for _, c := range TrackedRoles {
		if s[c] {
			out = append(out, c)
		}
	}
	return out
}

// Profiles maps each non-excluded user to the tracked roles they have
// summaries for. Users whose summaries are all for other roles appear
// with an empty set.
func Profiles(summaries []SummaryRow, ex Excluded) map[string]RoleSet {
	out := map[string]RoleSet{}
	for _, row := range summaries {
		if row.UserID == "" || ex.has(row.UserID) {
			continue
		}
		set, ok := out[row.UserID]
		if !ok {
			set = RoleSet{}
			out[row.UserID] = set
		}
		if c := roles.Categorize(row.Role); c != roles.CategoryOther {
			set[c] = true
		}
	}
	return out
}

// InGameProfiles is Profiles for in-game rows.
func InGameProfiles(rows []InGameRow, ex Excluded) map[string]RoleSet {
	out := map[string]RoleSet{}
	for _, row := range rows {
		if row.UserID == "" || ex.has(row.UserID) {
			continue
		}
		set, ok := out[row.UserID]
		if !ok {
			set = RoleSet{}
			out[row.UserID] = set
		}
		if c := roles.Categorize(row.Role); c != roles.CategoryOther {
			set[c] = true
		}
	}
	return out
}

// Group classifies a user by the tracked roles they completed.
type Group string

const (
	GroupAllThree     Group = "all_three"
	GroupAthensOnly   Group = "athens_only"
	GroupAthensNA     Group = "athens_north_america"
	GroupAthensMars   Group = "athens_mars"
	GroupNoAthens     Group = "no_athens"
	GroupNoValidRoles Group = "no_valid_roles"
)

// Groups lists every Group in report order.
var Groups = []Group{GroupAllThree, GroupAthensOnly, GroupAthensNA, GroupAthensMars, GroupNoAthens, GroupNoValidRoles}

// Classify places a role set in exactly one Group.
func Classify(set RoleSet) Group {
	athens := set.Has(roles.CategoryAthens)
	na := set.Has(roles.CategoryNorthAmerica)
	mars := set.Has(roles.CategoryMarsColony)

	switch {
	case athens && na && mars:
		return GroupAllThree
	case athens && na:
		return GroupAthensNA
	case athens && mars:
		return GroupAthensMars
	case athens:
		return GroupAthensOnly
	case na || mars:
		return GroupNoAthens
	default:
		return GroupNoValidRoles
	}
}

// ClassifyUsers counts users per Group. Every Group is present in the result.
func ClassifyUsers(profiles map[string]RoleSet) map[Group]int {
	counts := make(map[Group]int, len(Groups))
	for _, g := range Groups {
		counts[g] = 0
	}
	for _, set := range profiles {
		counts[Classify(set)]++
	}
	return counts
}

// MissingRoles returns the tracked roles a user has no summary for. A user
// who completed all three has none.
func MissingRoles(set RoleSet) []roles.Category {
	var out []roles.Category
	for _, c := range TrackedRoles {
		if !set.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

// Completion records whether a user reached the final day in a role they
// have no summary for.
type Completion struct {
	UserID      string
	Role        roles.Category
	ReachedDay8 bool
}

// Day8Completion checks, for each missing role of each user with at least
// one valid summary, whether the in-game log shows that role reaching the
// final day. Results are sorted by user then role order.
func Day8Completion(summaries []SummaryRow, ingame []InGameRow, ex Excluded) []Completion {
	profiles := Profiles(summaries, ex)

	reached := map[string]RoleSet{}
	for _, row := range ingame {
		if row.Day != FinalDay || ex.has(row.UserID) {
			continue
		}
		c := roles.Categorize(row.Role)
		if c == roles.CategoryOther {
			continue
		}
		if reached[row.UserID] == nil {
			reached[row.UserID] = RoleSet{}
		}
		reached[row.UserID][c] = true
	}

	var out []Completion
	for _, user := range sortedUsers(profiles) {
		set := profiles[user]
		if len(set) == 0 {
			continue
		}
		for _, c := range MissingRoles(set) {
			out = append(out, Completion{
				UserID:      user,
				Role:        c,
				ReachedDay8: reached[user].Has(c),
			})
		}
	}
	return out
}

// MaxDay returns the highest day each user reached in their target role.
// Users with no in-game rows for the target are absent. Rows with day 0
// were not integers in the source and are ignored.
func MaxDay(ingame []InGameRow, targets map[string]roles.Category) map[string]int {
	out := map[string]int{}
	for _, row := range ingame {
		target, ok := targets[row.UserID]
		if !ok || row.Day <= 0 {
			continue
		}
		if roles.Categorize(row.Role) != target {
			continue
		}
		if row.Day > out[row.UserID] {
			out[row.UserID] = row.Day
		}
	}
	return out
}

// Discrepancy is a user whose in-game log covers roles that have no summary.
type Discrepancy struct {
	UserID             string
	Group              Group
	Summarized         []roles.Category
	UnsummarizedPlayed []roles.Category
}

// Discrepancies finds users whose in-game logs show tracked roles absent from
// their summaries. Users who completed all three roles are skipped.
func Discrepancies(summaries []SummaryRow, ingame []InGameRow, ex Excluded) []Discrepancy {
	profiles := Profiles(summaries, ex)
	played := InGameProfiles(ingame, ex)

	var out []Discrepancy
	for _, user := range sortedUsers(profiles) {
		set := profiles[user]
		group := Classify(set)
		if group == GroupAllThree || group == GroupNoValidRoles {
			continue
		}
		var extra []roles.Category
		for _, c := range MissingRoles(set) {
			if played[user].Has(c) {
				extra = append(extra, c)
			}
		}
		if len(extra) == 0 {
			continue
		}
		out = append(out, Discrepancy{
			UserID:             user,
			Group:              group,
			Summarized:         set.Sorted(),
			UnsummarizedPlayed: extra,
		})
	}
	return out
}

// MissingSummaries narrows Discrepancies to users who only have an Athens
// summary.
func MissingSummaries(summaries []SummaryRow, ingame []InGameRow, ex Excluded) []Discrepancy {
	var out []Discrepancy
	for _, d := range Discrepancies(summaries, ingame, ex) {
		if d.Group == GroupAthensOnly {
			out = append(out, d)
		}
	}
	return out
}

// FilterValidUsers keeps in-game rows whose user has a summary and is not
// excluded. It returns the kept rows and how many were dropped.
func FilterValidUsers(ingame []InGameRow, summaries []SummaryRow, ex Excluded) ([]InGameRow, int) {
	valid := map[string]bool{}
	for _, row := range summaries {
		if row.UserID != "" && !ex.has(row.UserID) {
			valid[row.UserID] = true
		}
	}
	kept := make([]InGameRow, 0, len(ingame))
	for _, row := range ingame {
		if valid[row.UserID] {
			kept = append(kept, row)
		}
	}
	return kept, len(ingame) - len(kept)
}

// DateRange returns the earliest and latest timestamps in rows. ok is false
// when no row has a timestamp.
func DateRange(rows []InGameRow) (first, last time.Time, ok bool) {
	for _, row := range rows {
		if row.Timestamp.IsZero() {
			continue
		}
		if !ok || row.Timestamp.Before(first) {
			first = row.Timestamp
		}
		if !ok || row.Timestamp.After(last) {
			last = row.Timestamp
		}
		ok = true
	}
	return first, last, ok
}

// DistinctRoles returns the role strings seen in rows, sorted.
func DistinctRoles(rows []InGameRow) []string {
	seen := map[string]bool{}
	for _, row := range rows {
		if row.Role != "" {
			seen[row.Role] = true
		}
	}
	out := make([]string, 0, len(seen))
	for r := range seen {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

func sortedUsers(profiles map[string]RoleSet) []string {
	users := make([]string, 0, len(profiles))
	for u := range profiles {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}
