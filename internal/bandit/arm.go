package bandit

import (
	"math"
	"math/rand"
	"time"
)

// BetaParams is the Beta-distribution prior shared by all arms.
type BetaParams struct {
	Alpha float64
	Beta  float64
}

// DefaultPrior is the uninformative uniform prior.
func DefaultPrior() BetaParams { return BetaParams{Alpha: 1, Beta: 1} }

// DefaultDecay keeps roughly the last hundred observations relevant.
const DefaultDecay = 0.99

// Arm is one bandit arm tracking decayed success/failure counts for a
// signal.
type Arm struct {
	Signal        SignalType
	Successes     float64
	Failures      float64
	EstimatedProb float64
	LastSelected  time.Time
	DecayFactor   float64
}

// NewArm creates an arm with zero observations and a neutral estimate.
func NewArm(signal SignalType, decay float64) *Arm {
	return &Arm{Signal: signal, EstimatedProb: 0.5, DecayFactor: decay}
}

// Observe decays the counters, applies the reward, and refreshes the
// probability estimate. EstimatedProb stays in [0,1] for any input.
func (a *Arm) Observe(reward Reward, prior BetaParams) {
	decay := a.DecayFactor
	if decay < 0 {
		decay = 0
	} else if decay > 1 {
		decay = 1
	}
	a.Successes *= decay
	a.Failures *= decay

	if reward == RewardSuccess {
		a.Successes++
	} else {
		a.Failures++
	}

	total := a.Successes + a.Failures
	if total > 0 {
		a.EstimatedProb = (prior.Alpha + a.Successes) / (prior.Alpha + prior.Beta + total)
	}
}

// Observations returns the decayed observation count.
func (a *Arm) Observations() float64 {
	return a.Successes + a.Failures
}

// Sample draws θ ~ Beta(α+successes, β+failures). Non-finite or
// non-positive parameters fall back to the uniform prior, so sampling
// never panics even on corrupted state.
func (a *Arm) Sample(rng *rand.Rand, prior BetaParams) float64 {
	alpha := prior.Alpha + a.Successes
	beta := prior.Beta + a.Failures
	if !isUsableParam(alpha) {
		alpha = 1
	}
	if !isUsableParam(beta) {
		beta = 1
	}
	return sampleBeta(rng, alpha, beta)
}

func isUsableParam(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0) && x > 0
}

// sampleBeta draws from Beta(a, b) as Ga/(Ga+Gb) over two Gamma draws.
func sampleBeta(rng *rand.Rand, a, b float64) float64 {
	ga := sampleGamma(rng, a)
	gb := sampleGamma(rng, b)
	if ga+gb == 0 {
		return 0.5
	}
	return ga / (ga + gb)
}

// sampleGamma draws from Gamma(shape, 1) using the Marsaglia-Tsang
// squeeze method.
func sampleGamma(rng *rand.Rand, shape float64) float64 {
	if shape < 1 {
		// Boost to shape+1 and scale back by U^(1/shape).
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		return sampleGamma(rng, shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := rng.NormFloat64()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}
