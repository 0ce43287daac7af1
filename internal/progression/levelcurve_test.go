package progression

import (
	"math/big"
	"testing"
)

func TestThresholdFirstLevels(t *testing.T) {
	// Hand-computed: floor(100*1^1.5)=100, floor(100*2^1.5)=282,
	// floor(100*3^1.5)=519, floor(100*4^1.5)=800.
	cases := []struct {
		level int
		want  int64
	}{
		{1, 0},
		{2, 100},
		{3, 382},
		{4, 901},
		{5, 1701},
	}

	for _, tc := range cases {
		got := Threshold(tc.level)
		if got.Cmp(big.NewInt(tc.want)) != 0 {
			t.Errorf("Threshold(%d) = %s, want %d", tc.level, got, tc.want)
		}
	}
}

func TestPerTermTruncation(t *testing.T) {
	// floor(100 * 2^1.5) = floor(282.84...) = 282. A closed-form or
	// float-summed curve would disagree here.
	got := thresholdTerm(2)
	if got.Cmp(big.NewInt(282)) != 0 {
		t.Errorf("thresholdTerm(2) = %s, want 282", got)
	}
	got = thresholdTerm(3)
	if got.Cmp(big.NewInt(519)) != 0 {
		t.Errorf("thresholdTerm(3) = %s, want 519", got)
	}
}

func TestLevelThresholdInverse(t *testing.T) {
	for level := 1; level <= 100; level++ {
		at := Threshold(level)
		if got := LevelForXP(at); got != level {
			t.Fatalf("LevelForXP(Threshold(%d)) = %d", level, got)
		}
		if level > 1 {
			below := new(big.Int).Sub(at, big.NewInt(1))
			if got := LevelForXP(below); got != level-1 {
				t.Fatalf("LevelForXP(Threshold(%d)-1) = %d, want %d", level, got, level-1)
			}
		}
	}
}

func TestLevelForNegativeAndZero(t *testing.T) {
	if got := LevelFor(0); got != 1 {
		t.Errorf("LevelFor(0) = %d, want 1", got)
	}
	if got := LevelForXP(big.NewInt(-50)); got != 1 {
		t.Errorf("LevelForXP(-50) = %d, want 1", got)
	}
}

func TestProgressForExactRatio(t *testing.T) {
	// At level 2 with 150 XP: floor is 100, next needs 282, so 50/282.
	p := ProgressFor(150)
	if p.Level != 2 {
		t.Fatalf("level = %d, want 2", p.Level)
	}
	if p.Into.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("into = %s, want 50", p.Into)
	}
	if p.Needed.Cmp(big.NewInt(282)) != 0 {
		t.Errorf("needed = %s, want 282", p.Needed)
	}
	if p.Percent != 17 { // floor(50*100/282)
		t.Errorf("percent = %d, want 17", p.Percent)
	}
}

func TestProgressForAtExactBoundary(t *testing.T) {
	p := ProgressFor(100)
	if p.Level != 2 || p.Into.Sign() != 0 || p.Percent != 0 {
		t.Errorf("at boundary: got %+v", p)
	}
}
