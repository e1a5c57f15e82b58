package roles

import "math"

// Holder is one group holding a share of power in the player's system.
type Holder struct {
	Name    string  `json:"name"`
	Percent float64 `json:"percent"`
	Note    string  `json:"note,omitempty"`
}

// NormalizeHolders rescales holder percentages to whole numbers summing to
// exactly 100. Any rounding remainder goes to the first holder. Negative or
// NaN percentages count as zero; when everything is zero the power is split
// evenly. The input slice is not modified.
func NormalizeHolders(holders []Holder) []Holder {
	if len(holders) == 0 {
		return nil
	}
	out := make([]Holder, len(holders))
	copy(out, holders)

	sum := 0.0
	for i := range out {
		p := out[i].Percent
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			p = 0
		}
		out[i].Percent = p
		sum += p
	}

	scaled := make([]int, len(out))
	if sum <= 0 {
		for i := range scaled {
			scaled[i] = 100 / len(out)
		}
	} else {
		for i := range out {
			scaled[i] = int(math.Round(out[i].Percent / sum * 100))
		}
	}

	total := 0
	for _, v := range scaled {
		total += v
	}
	scaled[0] += 100 - total

	// a large negative remainder can push the first holder below zero;
	// take the excess from the following holders instead
	for i := 1; scaled[0] < 0 && i < len(scaled); i++ {
		take := min(-scaled[0], scaled[i])
		scaled[i] -= take
		scaled[0] += take
	}

	for i := range out {
		out[i].Percent = float64(scaled[i])
	}
	return out
}

// ClampPlayerIndex returns idx if it points at a holder, otherwise 0. An
// empty holder list gives -1.
func ClampPlayerIndex(idx, n int) int {
	if n <= 0 {
		return -1
	}
	if idx < 0 || idx >= n {
		return 0
	}
	return idx
}
