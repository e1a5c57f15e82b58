package scoring

import "math"

const (
	// MaxPointsPerTrack is the point value of a track at 100% support.
	MaxPointsPerTrack = 500

	// MaxFinalScore is the best possible final score with all three tracks.
	MaxFinalScore = 3 * MaxPointsPerTrack
)

// Category names a support track in reveal order.
type Category string

const (
	CategoryPeople Category = "people"
	CategoryMiddle Category = "middle"
	CategoryMom    Category = "mom"
)

// SupportTrack is the score of a single support meter.
type SupportTrack struct {
	Percent   int `json:"percent"`
	Points    int `json:"points"`
	MaxPoints int `json:"maxPoints"`
}

// SupportBreakdown aggregates the support tracks of a run.
// Mom is nil in free play, where the personal anchor is not tracked.
type SupportBreakdown struct {
	People    SupportTrack  `json:"people"`
	Middle    SupportTrack  `json:"middle"`
	Mom       *SupportTrack `json:"mom,omitempty"`
	Total     int           `json:"total"`
	MaxPoints int           `json:"maxPoints"`
}

// ScoreBreakdown is the full score of a run.
type ScoreBreakdown struct {
	Support  SupportBreakdown `json:"support"`
	Final    int              `json:"final"`
	MaxFinal int              `json:"maxFinal"`
}

// SupportInput holds raw support percentages as stored in run state.
type SupportInput struct {
	People   float64
	Middle   float64
	Mom      float64
	FreePlay bool
}

// Step is one entry of the reveal sequence.
type Step struct {
	Category Category `json:"category"`
	Points   int      `json:"points"`
}

// BuildSupportTrackBreakdown converts a support percentage into points.
// NaN is treated as 0 and the rounded percentage is clamped to [0,100].
func BuildSupportTrackBreakdown(percent float64) SupportTrack {
	p := 0
	if !math.IsNaN(percent) {
		p = int(math.Max(0, math.Min(100, math.Round(percent))))
	}
	points := int(math.Round(float64(p) / 100 * MaxPointsPerTrack))
	return SupportTrack{
		Percent:   p,
		Points:    clampInt(points, 0, MaxPointsPerTrack),
		MaxPoints: MaxPointsPerTrack,
	}
}

// CalculateLiveScoreBreakdown builds a breakdown from the current support values.
func CalculateLiveScoreBreakdown(in SupportInput) ScoreBreakdown {
	support := SupportBreakdown{
		People: BuildSupportTrackBreakdown(in.People),
		Middle: BuildSupportTrackBreakdown(in.Middle),
	}
	tracks := 2
	support.Total = support.People.Points + support.Middle.Points
	if !in.FreePlay {
		mom := BuildSupportTrackBreakdown(in.Mom)
		support.Mom = &mom
		support.Total += mom.Points
		tracks++
	}
	support.MaxPoints = tracks * MaxPointsPerTrack

	final := support.Total
	if final < 0 {
		final = 0
	}
	return ScoreBreakdown{
		Support:  support,
		Final:    final,
		MaxFinal: support.MaxPoints,
	}
}

// CalculateFinalScore normalizes the final value of a breakdown into
// [0, MaxFinalScore]. Applying it repeatedly gives the same result.
func CalculateFinalScore(b ScoreBreakdown) int {
	return clampInt(b.Final, 0, MaxFinalScore)
}

// Sequence returns the per-category points in reveal order.
func (b ScoreBreakdown) Sequence() []Step {
	steps := []Step{
		{Category: CategoryPeople, Points: b.Support.People.Points},
		{Category: CategoryMiddle, Points: b.Support.Middle.Points},
	}
	if b.Support.Mom != nil {
		steps = append(steps, Step{Category: CategoryMom, Points: b.Support.Mom.Points})
	}
	return steps
}

// Normalize returns a copy with Final passed through CalculateFinalScore and
// clamped to MaxFinal.
func (b ScoreBreakdown) Normalize() ScoreBreakdown {
	b.Final = CalculateFinalScore(b)
	if b.MaxFinal > 0 && b.Final > b.MaxFinal {
		b.Final = b.MaxFinal
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
