package progression

import "math/big"

// The curve is Threshold(L) = sum for i in [1, L-1] of floor(100 * i^1.5),
// with each term truncated before summation. Totals at high levels exceed
// float64's safe integer range, so everything here runs on big.Int: the
// level-up boundaries have to come out bit-identical on every call.

// thresholdTerm returns floor(100 * i^1.5) as an exact integer.
// 100 * i^1.5 == sqrt(10000 * i^3), and big.Int Sqrt already floors.
func thresholdTerm(i int64) *big.Int {
	n := big.NewInt(i)
	n.Mul(n, big.NewInt(i))
	n.Mul(n, big.NewInt(i))
	n.Mul(n, big.NewInt(10000))
	return n.Sqrt(n)
}

// Threshold returns the cumulative experience required to reach level.
// Threshold(1) is 0.
func Threshold(level int) *big.Int {
	total := new(big.Int)
	for i := int64(1); i < int64(level); i++ {
		total.Add(total, thresholdTerm(i))
	}
	return total
}

// LevelForXP returns the smallest level such that Threshold(level+1)
// exceeds totalXP.
func LevelForXP(totalXP *big.Int) int {
	if totalXP.Sign() < 0 {
		return 1
	}
	level := 1
	next := thresholdTerm(1)
	cumulative := new(big.Int).Set(next)
	for cumulative.Cmp(totalXP) <= 0 {
		level++
		cumulative.Add(cumulative, thresholdTerm(int64(level)))
	}
	return level
}

// LevelFor is the int64 convenience wrapper used by the services, which
// store aggregate experience as bigint columns.
func LevelFor(totalXP int64) int {
	return LevelForXP(big.NewInt(totalXP))
}

// LevelProgress reports where totalXP sits between the current and next
// thresholds. Into/Needed form an exact ratio; Percent is the integer floor
// of Into*100/Needed so repeated reads can never drift.
type LevelProgress struct {
	Level   int      `json:"level"`
	Into    *big.Int `json:"xp_into_level"`
	Needed  *big.Int `json:"xp_for_next_level"`
	Percent int      `json:"percent"`
}

// ProgressFor computes the exact progress of totalXP toward the next level.
func ProgressFor(totalXP int64) LevelProgress {
	total := big.NewInt(totalXP)
	level := LevelForXP(total)

	floor := Threshold(level)
	needed := thresholdTerm(int64(level))

	into := new(big.Int).Sub(total, floor)
	if into.Sign() < 0 {
		into.SetInt64(0)
	}

	pct := new(big.Int).Mul(into, big.NewInt(100))
	pct.Quo(pct, needed)
	percent := int(pct.Int64())
	if percent > 100 {
		percent = 100
	}

	return LevelProgress{Level: level, Into: into, Needed: needed, Percent: percent}
}
