package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/jwebster45206/dilemma-engine/pkg/prompts"
	"github.com/jwebster45206/dilemma-engine/pkg/run"
)

func main() {
	day := flag.Int("day", 0, "day the reply is for (default: taken from a day_N file name)")
	totalDays := flag.Int("total", run.DefaultTotalDays, "number of dilemma days in the run")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-day N] [-total N] <reply.json>...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	failed := false
	for _, filename := range flag.Args() {
		validator := &DilemmaValidator{Day: *day, TotalDays: *totalDays}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is a valid day %d reply\n", filename, validator.Day)
	}
	if failed {
		os.Exit(1)
	}
}

// DilemmaValidator checks a saved model reply against the rules the API
// applies, and is stricter about the things the API silently repairs.
type DilemmaValidator struct {
	Day       int
	TotalDays int
	errors    []string
}

// rawReply keeps deltas as sent so out-of-range values can be reported
// before they are clamped.
type rawReply struct {
	Title              string               `json:"title"`
	Description        string               `json:"description"`
	Actions            []prompts.Action     `json:"actions"`
	SupportShift       prompts.SupportShift `json:"supportShift"`
	ObjectiveCompleted bool                 `json:"objectiveCompleted"`
	Monologue          string               `json:"monologue"`
}

func (v *DilemmaValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".json") {
		return fmt.Errorf("reply file must have .json extension: %s", baseName)
	}
	nameWithoutExt := strings.TrimSuffix(baseName, ".json")
	if !isValidReplyFilename(nameWithoutExt) {
		return fmt.Errorf("reply filename '%s' must be lowercase snake_case (e.g., day_3.json)", baseName)
	}
	if v.Day <= 0 {
		v.Day = dayFromFilename(nameWithoutExt)
	}
	if v.Day <= 0 {
		return fmt.Errorf("cannot tell the day of %s: pass -day or name the file day_N.json", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	v.errors = nil

	body := prompts.StripCodeFence(string(data))
	if !json.Valid([]byte(body)) {
		return fmt.Errorf("file %s contains invalid JSON", filename)
	}

	var raw rawReply
	decoder := json.NewDecoder(strings.NewReader(body))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&raw); err != nil {
		return fmt.Errorf("file %s failed strict JSON unmarshaling: %w", filename, err)
	}

	if _, err := prompts.ParseDilemmaReply(body, v.Day, v.TotalDays); err != nil {
		v.addError(err.Error())
	}
	v.validateReply(&raw)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *DilemmaValidator) validateReply(r *rawReply) {
	kind := prompts.KindForDay(v.Day, v.TotalDays)

	if kind == prompts.DayAftermath {
		if len(r.Actions) > 0 {
			v.addError("aftermath reply should not offer actions")
		}
	} else {
		seen := make(map[string]bool)
		for i, a := range r.Actions {
			title := strings.ToLower(strings.TrimSpace(a.Title))
			if seen[title] && title != "" {
				v.addError(fmt.Sprintf("action %d repeats the title '%s'", i+1, a.Title))
			}
			seen[title] = true
			if strings.TrimSpace(a.Summary) == "" {
				v.addError(fmt.Sprintf("action %d has no summary", i+1))
			}
		}
	}

	shifts := map[string]prompts.Shift{
		"people": r.SupportShift.People,
		"middle": r.SupportShift.Middle,
		"mom":    r.SupportShift.Mom,
	}
	for _, group := range []string{"people", "middle", "mom"} {
		delta := shifts[group].Delta
		switch {
		case kind == prompts.DayOpening && delta != 0:
			v.addError(fmt.Sprintf("%s delta is %v but day 1 has no previous decision", group, delta))
		case math.Abs(delta) > prompts.MaxSupportShift:
			v.addError(fmt.Sprintf("%s delta %v is outside ±%d", group, delta, prompts.MaxSupportShift))
		}
	}
}

func (v *DilemmaValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	dayFilenameRegex   = regexp.MustCompile(`(?:^|_)day_?(\d+)(?:_|$)`)
)

func isValidReplyFilename(name string) bool {
	return validFilenameRegex.MatchString(name)
}

func dayFromFilename(name string) int {
	m := dayFilenameRegex.FindStringSubmatch(name)
	if m == nil {
		return 0
	}
	day, _ := strconv.Atoi(m[1])
	return day
}
