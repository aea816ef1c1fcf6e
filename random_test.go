package epiworld

import (
	"math"
	"testing"
)

func TestRouletteEdgeCases(t *testing.T) {
	rs := CreateRandomStreams(42)

	tests := []struct {
		name  string
		probs []float64
		want  int
	}{
		{"empty", nil, -1},
		{"all zero", []float64{0, 0, 0}, -1},
		{"certain single", []float64{1.0}, 0},
		{"certain among zeros", []float64{0, 1.0, 0}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				if got := rs.Roulette(tt.probs); got != tt.want {
					t.Fatalf("Roulette(%v) = %d, want %d", tt.probs, got, tt.want)
				}
			}
		})
	}
}

func TestRouletteFrequencies(t *testing.T) {
	rs := CreateRandomStreams(7)
	probs := []float64{0.2, 0.4}
	ndraws := 200000
	counts := make([]int, 3)
	for i := 0; i < ndraws; i++ {
		counts[rs.Roulette(probs)+1]++
	}

	// P(none) = 0.8*0.6, the rest split 1:2
	pNone := 0.8 * 0.6
	pAny := 1.0 - pNone
	want := []float64{pNone, pAny / 3.0, 2.0 * pAny / 3.0}
	for idx := range counts {
		got := float64(counts[idx]) / float64(ndraws)
		if math.Abs(got-want[idx]) > 0.01 {
			t.Errorf("outcome %d: frequency %f, want %f", idx-1, got, want[idx])
		}
	}
}

func TestRandomStreamsDeterministic(t *testing.T) {
	a := CreateRandomStreams(1231)
	b := CreateRandomStreams(1231)
	for i := 0; i < 100; i++ {
		if a.Runif() != b.Runif() || a.Rnorm() != b.Rnorm() || a.Rgamma() != b.Rgamma() {
			t.Fatalf("streams with the same seed diverged at draw %d", i)
		}
	}

	a.Seed(5)
	c := CreateRandomStreams(5)
	if a.Runif() != c.Runif() {
		t.Error("reseeding does not restart the stream")
	}
}

func TestRbinomBounds(t *testing.T) {
	rs := CreateRandomStreams(3)
	if got := rs.Rbinom(10, 0.0); got != 0 {
		t.Errorf("Rbinom(10, 0) = %d", got)
	}
	if got := rs.Rbinom(10, 1.0); got != 10 {
		t.Errorf("Rbinom(10, 1) = %d", got)
	}
	if got := rs.Rbinom(0, 0.5); got != 0 {
		t.Errorf("Rbinom(0, .5) = %d", got)
	}
	for i := 0; i < 1000; i++ {
		if got := rs.Rbinom(20, 0.3); got < 0 || got > 20 {
			t.Fatalf("Rbinom(20, .3) = %d", got)
		}
	}
}

func TestGammaScale(t *testing.T) {
	rs := CreateRandomStreams(11)
	rs.SetGamma(2.0, 3.0)
	sum := 0.0
	n := 50000
	for i := 0; i < n; i++ {
		sum += rs.Rgamma()
	}
	// mean of a gamma is shape*scale
	if mean := sum / float64(n); math.Abs(mean-6.0) > 0.15 {
		t.Errorf("gamma mean %f, want 6", mean)
	}
}

func TestDrawSeedVaries(t *testing.T) {
	s1 := drawSeed()
	s2 := drawSeed()
	if s1 == s2 {
		t.Errorf("consecutive drawn seeds are equal: %d", s1)
	}
}
