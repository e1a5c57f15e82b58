package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"github.com/jwebster45206/dilemma-engine/internal/analytics"
	"github.com/jwebster45206/dilemma-engine/internal/eventlog"
	"github.com/jwebster45206/dilemma-engine/pkg/roles"
)

const usage = `Usage: %s [flags] <command> [args]

Commands:
  import-ingame <file.csv>    Append exported in-game rows to the event log
  import-summary <file.csv>   Append exported summary rows to the event log
  export-ingame [file.csv]    Write in-game rows as CSV (stdout by default)
  export-summary [file.csv]   Write summary rows as CSV (stdout by default)
  report                      Role groups, day 8 completion and furthest day
  discrepancies               Users whose in-game logs cover unsummarized roles
  filter [file.csv]           Export in-game rows of users with a summary

Flags:
`

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath     string
	excluded   analytics.Excluded
	since      time.Time
	until      time.Time
	athensOnly bool
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	dbPath := fs.String("db", getEnv("EVENT_LOG_PATH", "./events.db"), "path to the SQLite event log")
	exclude := fs.String("exclude", os.Getenv("ANALYTICS_EXCLUDED_USERS"), "comma-separated user IDs to leave out")
	since := fs.String("since", "", "only rows at or after this time (YYYY-MM-DD or RFC 3339)")
	until := fs.String("until", "", "only rows before this time")
	athensOnly := fs.Bool("athens-only", false, "discrepancies: only users with nothing but an Athens summary")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), usage, "logs")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("a command is required")
	}

	opts := options{
		dbPath:     *dbPath,
		excluded:   analytics.NewExcluded(*exclude),
		athensOnly: *athensOnly,
	}
	var err error
	if opts.since, err = parseBound("since", *since); err != nil {
		return err
	}
	if opts.until, err = parseBound("until", *until); err != nil {
		return err
	}

	log, err := eventlog.Open(opts.dbPath)
	if err != nil {
		return err
	}
	defer log.Close()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	filter := eventlog.Filter{Since: opts.since, Until: opts.until}

	switch cmd {
	case "import-ingame":
		return importFile(rest, func(r io.Reader) (int, error) {
			rows, err := analytics.ReadInGameCSV(r)
			if err != nil {
				return 0, err
			}
			return len(rows), log.ImportInGame(ctx, rows)
		}, stdout)
	case "import-summary":
		return importFile(rest, func(r io.Reader) (int, error) {
			rows, err := analytics.ReadSummaryCSV(r)
			if err != nil {
				return 0, err
			}
			return len(rows), log.ImportSummaries(ctx, rows)
		}, stdout)
	case "export-ingame":
		rows, err := log.InGame(ctx, filter)
		if err != nil {
			return err
		}
		return withOutput(rest, stdout, func(w io.Writer) error {
			return analytics.WriteInGameCSV(w, rows)
		})
	case "export-summary":
		rows, err := log.Summaries(ctx, filter)
		if err != nil {
			return err
		}
		return withOutput(rest, stdout, func(w io.Writer) error {
			return analytics.WriteSummaryCSV(w, rows)
		})
	}

	ingame, err := log.InGame(ctx, filter)
	if err != nil {
		return err
	}
	summaries, err := log.Summaries(ctx, filter)
	if err != nil {
		return err
	}

	switch cmd {
	case "report":
		return writeReport(stdout, ingame, summaries, opts.excluded)
	case "discrepancies":
		return writeDiscrepancies(stdout, ingame, summaries, opts)
	case "filter":
		kept, dropped := analytics.FilterValidUsers(ingame, summaries, opts.excluded)
		fmt.Fprintf(os.Stderr, "Kept %d rows, dropped %d rows without a valid summary\n", len(kept), dropped)
		return withOutput(rest, stdout, func(w io.Writer) error {
			return analytics.WriteInGameCSV(w, kept)
		})
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func writeReport(w io.Writer, ingame []analytics.InGameRow, summaries []analytics.SummaryRow, ex analytics.Excluded) error {
	fmt.Fprintf(w, "In-game rows: %d\nSummary rows: %d\n", len(ingame), len(summaries))
	if first, last, ok := analytics.DateRange(ingame); ok {
		fmt.Fprintf(w, "Date range:   %s to %s\n", first.Format(time.DateOnly), last.Format(time.DateOnly))
	}
	if len(ex) > 0 {
		fmt.Fprintf(w, "Excluded:     %d users\n", len(ex))
	}

	fmt.Fprintln(w, "\nRoles seen:")
	for _, r := range analytics.DistinctRoles(ingame) {
		fmt.Fprintf(w, "  %-40s %s\n", r, roles.Categorize(r))
	}

	profiles := analytics.Profiles(summaries, ex)
	counts := analytics.ClassifyUsers(profiles)
	fmt.Fprintf(w, "\nUsers by completed roles (%d users):\n", len(profiles))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range analytics.Groups {
		fmt.Fprintf(tw, "  %s\t%d\n", g, counts[g])
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	completions := analytics.Day8Completion(summaries, ingame, ex)
	targets := map[string]roles.Category{}
	fmt.Fprintln(w, "\nMissing roles:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  USER\tROLE\tREACHED DAY 8")
	for _, c := range completions {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.UserID, c.Role, yesNo(c.ReachedDay8))
		if _, ok := targets[c.UserID]; !ok && !c.ReachedDay8 {
			targets[c.UserID] = c.Role
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(targets) == 0 {
		return nil
	}
	furthest := analytics.MaxDay(ingame, targets)
	fmt.Fprintln(w, "\nFurthest day in first unfinished role:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range completions {
		if targets[c.UserID] != c.Role || c.ReachedDay8 {
			continue
		}
		day, ok := furthest[c.UserID]
		shown := "never started"
		if ok {
			shown = fmt.Sprintf("day %d", day)
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", c.UserID, c.Role, shown)
	}
	return tw.Flush()
}

func writeDiscrepancies(w io.Writer, ingame []analytics.InGameRow, summaries []analytics.SummaryRow, opts options) error {
	found := analytics.Discrepancies(summaries, ingame, opts.excluded)
	if opts.athensOnly {
		found = analytics.MissingSummaries(summaries, ingame, opts.excluded)
	}
	if len(found) == 0 {
		fmt.Fprintln(w, "No discrepancies found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tGROUP\tSUMMARIZED\tPLAYED WITHOUT SUMMARY")
	for _, d := range found {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.UserID, d.Group, joinRoles(d.Summarized), joinRoles(d.UnsummarizedPlayed))
	}
	return tw.Flush()
}

func importFile(args []string, load func(io.Reader) (int, error), stdout io.Writer) error {
	if len(args) != 1 {
		return errors.New("exactly one CSV file is required")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer f.Close()

	n, err := load(f)
	if err != nil {
		return fmt.Errorf("failed to import %s: %w", args[0], err)
	}
	fmt.Fprintf(stdout, "Imported %d rows from %s\n", n, args[0])
	return nil
}

func withOutput(args []string, stdout io.Writer, write func(io.Writer) error) error {
	if len(args) == 0 || args[0] == "-" {
		return write(stdout)
	}
	f, err := os.Create(args[0])
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", args[0], err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseBound(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t := analytics.ParseTimestamp(v)
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("invalid -%s time %q", name, v)
	}
	return t, nil
}

func joinRoles(cs []roles.Category) string {
	if len(cs) == 0 {
		return "-"
	}
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
