package epiworld

// random.go holds the random number streams every stochastic decision in a
// model draws from.  All of the distributions share one generator, so the whole
// trajectory of a run is a function of the seed handed to Model.Init.

import (
	"math"
	"math/rand/v2"
	"sync"

	"github.com/iti/rngstream"
	"gonum.org/v1/gonum/stat/distuv"
)

// seedStream supplies seeds to models that are initialized with a negative seed.
// Every call to rngstream.New advances the package seed, so the stream is
// created once and shared.
var (
	seedStream     *rngstream.RngStream
	seedStreamOnce sync.Once
)

// drawSeed returns a seed taken from the package level L'Ecuyer stream
func drawSeed() uint64 {
	seedStreamOnce.Do(func() {
		seedStream = rngstream.New("epiworld-seeds")
	})
	return uint64(seedStream.RandInt(1, math.MaxInt32))
}

// RandomStreams owns the uniform, normal and gamma distributions of a model.
type RandomStreams struct {
	src   *rand.PCG
	gen   *rand.Rand
	unif  distuv.Uniform
	norm  distuv.Normal
	gamma distuv.Gamma
}

// CreateRandomStreams is a constructor.  The streams are seeded with seed; the gamma
// distribution starts with shape and scale 1.
func CreateRandomStreams(seed uint64) *RandomStreams {
	rs := new(RandomStreams)
	rs.src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	rs.gen = rand.New(rs.src)
	rs.unif = distuv.Uniform{Min: 0.0, Max: 1.0, Src: rs.src}
	rs.norm = distuv.Normal{Mu: 0.0, Sigma: 1.0, Src: rs.src}
	rs.gamma = distuv.Gamma{Alpha: 1.0, Beta: 1.0, Src: rs.src}
	return rs
}

// Seed resets the shared generator
func (rs *RandomStreams) Seed(seed uint64) {
	rs.src.Seed(seed, seed^0x9e3779b97f4a7c15)
}

// Runif draws from U(0,1)
func (rs *RandomStreams) Runif() float64 {
	return rs.unif.Rand()
}

// Rnorm draws from the standard normal
func (rs *RandomStreams) Rnorm() float64 {
	return rs.norm.Rand()
}

// RnormMS draws from a normal with the given mean and standard deviation
func (rs *RandomStreams) RnormMS(mean, sd float64) float64 {
	return mean + sd*rs.norm.Rand()
}

// SetGamma changes the shape (alpha) and scale (beta) of the default gamma distribution
func (rs *RandomStreams) SetGamma(alpha, beta float64) {
	rs.gamma.Alpha = alpha
	rs.gamma.Beta = 1.0 / beta
}

// Rgamma draws from the default gamma distribution
func (rs *RandomStreams) Rgamma() float64 {
	return rs.gamma.Rand()
}

// RgammaAB draws from a gamma distribution with shape alpha and scale beta.
// The default distribution is left untouched.
func (rs *RandomStreams) RgammaAB(alpha, beta float64) float64 {
	g := distuv.Gamma{Alpha: alpha, Beta: 1.0 / beta, Src: rs.src}
	return g.Rand()
}

// Rbinom draws the number of successes out of n trials of probability p
func (rs *RandomStreams) Rbinom(n int, p float64) int {
	if n <= 0 || p <= 0.0 {
		return 0
	}
	if p >= 1.0 {
		return n
	}
	b := distuv.Binomial{N: float64(n), P: p, Src: rs.src}
	return int(b.Rand())
}

// Intn returns a uniformly chosen integer in [0,n)
func (rs *RandomStreams) Intn(n int) int {
	return rs.gen.IntN(n)
}

// Roulette picks at most one of a set of independent events whose probabilities are
// given in probs.  With probability 1-prod(1-p_i) some event happens, and which one is
// chosen in proportion to the p_i.  The index of the event is returned, or -1 when
// none happens.  Exactly one uniform draw is consumed whenever probs is non-empty.
func (rs *RandomStreams) Roulette(probs []float64) int {
	if len(probs) == 0 {
		return -1
	}

	none := 1.0
	total := 0.0
	for _, p := range probs {
		none *= 1.0 - p
		total += p
	}
	pAny := 1.0 - none

	u := rs.Runif()
	if !(u < pAny) || !(total > 0.0) {
		return -1
	}

	// rescale the draw, already known to fall in [0,pAny), onto the cumulative weights
	target := u / pAny * total
	cum := 0.0
	for idx, p := range probs {
		cum += p
		if target < cum {
			return idx
		}
	}
	return len(probs) - 1
}
