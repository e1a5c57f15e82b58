package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildSupportTrackBreakdown(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		want    SupportTrack
	}{
		{"zero", 0, SupportTrack{Percent: 0, Points: 0, MaxPoints: 500}},
		{"full", 100, SupportTrack{Percent: 100, Points: 500, MaxPoints: 500}},
		{"half", 50, SupportTrack{Percent: 50, Points: 250, MaxPoints: 500}},
		{"rounds percent first", 33.6, SupportTrack{Percent: 34, Points: 170, MaxPoints: 500}},
		{"negative clamps", -20, SupportTrack{Percent: 0, Points: 0, MaxPoints: 500}},
		{"above range clamps", 180, SupportTrack{Percent: 100, Points: 500, MaxPoints: 500}},
		{"nan is zero", math.NaN(), SupportTrack{Percent: 0, Points: 0, MaxPoints: 500}},
		{"infinity clamps", math.Inf(1), SupportTrack{Percent: 100, Points: 500, MaxPoints: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildSupportTrackBreakdown(tt.percent))
		})
	}
}

func TestBuildSupportTrackBreakdown_AllIntegerPercents(t *testing.T) {
	for p := 0; p <= 100; p++ {
		got := BuildSupportTrackBreakdown(float64(p))
		want := int(math.Round(float64(p) / 100 * 500))
		if got.Points != want {
			t.Errorf("percent %d: expected %d points, got %d", p, want, got.Points)
		}
	}
}

func TestCalculateLiveScoreBreakdown(t *testing.T) {
	b := CalculateLiveScoreBreakdown(SupportInput{People: 60, Middle: 40, Mom: 80})

	assert.Equal(t, 300, b.Support.People.Points)
	assert.Equal(t, 200, b.Support.Middle.Points)
	if assert.NotNil(t, b.Support.Mom) {
		assert.Equal(t, 400, b.Support.Mom.Points)
	}
	assert.Equal(t, 900, b.Support.Total)
	assert.Equal(t, 1500, b.Support.MaxPoints)
	assert.Equal(t, 900, b.Final)
	assert.Equal(t, 1500, b.MaxFinal)
}

func TestCalculateLiveScoreBreakdown_FreePlay(t *testing.T) {
	b := CalculateLiveScoreBreakdown(SupportInput{People: 100, Middle: 100, Mom: 100, FreePlay: true})

	assert.Nil(t, b.Support.Mom)
	assert.Equal(t, 1000, b.Support.Total)
	assert.Equal(t, 1000, b.Support.MaxPoints)
	assert.Equal(t, 1000, b.Final)
	assert.Len(t, b.Sequence(), 2)
}

func TestCalculateLiveScoreBreakdown_OrderIndependent(t *testing.T) {
	values := []float64{12.4, 55, 97.5}
	base := CalculateLiveScoreBreakdown(SupportInput{People: values[0], Middle: values[1], Mom: values[2]})

	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, p := range perms {
		b := CalculateLiveScoreBreakdown(SupportInput{People: values[p[0]], Middle: values[p[1]], Mom: values[p[2]]})
		assert.Equal(t, base.Support.Total, b.Support.Total, "permutation %v", p)

		sum := b.Support.People.Points + b.Support.Middle.Points + b.Support.Mom.Points
		assert.Equal(t, sum, b.Support.Total)
	}
}

func TestCalculateFinalScore(t *testing.T) {
	tests := []struct {
		name  string
		final int
		want  int
	}{
		{"in range", 750, 750},
		{"negative", -10, 0},
		{"over max", 2000, MaxFinalScore},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ScoreBreakdown{Final: tt.final}
			once := CalculateFinalScore(b)
			assert.Equal(t, tt.want, once)

			b.Final = once
			assert.Equal(t, once, CalculateFinalScore(b), "should be idempotent")
		})
	}
}

func TestScoreBreakdown_Sequence(t *testing.T) {
	b := CalculateLiveScoreBreakdown(SupportInput{People: 10, Middle: 20, Mom: 30})
	seq := b.Sequence()

	assert.Equal(t, []Step{
		{Category: CategoryPeople, Points: 50},
		{Category: CategoryMiddle, Points: 100},
		{Category: CategoryMom, Points: 150},
	}, seq)
}

func TestScoreBreakdown_NormalizeNeverExceedsMaxFinal(t *testing.T) {
	b := CalculateLiveScoreBreakdown(SupportInput{People: 100, Middle: 100, FreePlay: true})
	b.Final = 1400

	n := b.Normalize()
	assert.Equal(t, 1000, n.Final)
	assert.LessOrEqual(t, n.Final, n.MaxFinal)
}
