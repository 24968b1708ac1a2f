package bandit

import (
	"math/rand"
	"sync"
	"time"
)

// Bandit holds one arm per signal plus per-context modifiers. SelectWeights
// draws Thompson samples and normalizes; Observe feeds rewards back. All
// methods are safe for concurrent use. SelectWeights holds the write lock
// because it touches each arm's LastSelected stamp.
type Bandit struct {
	mu        sync.RWMutex
	arms      map[SignalType]*Arm
	modifiers map[ContextKey]*ContextModifier
	prior     BetaParams
	decay     float64
	rng       *rand.Rand // guarded by mu
}

// Option configures a Bandit.
type Option func(*Bandit)

// WithSeed fixes the sampling RNG seed. Used in tests; production code
// seeds from the clock.
func WithSeed(seed int64) Option {
	return func(b *Bandit) { b.rng = rand.New(rand.NewSource(seed)) }
}

// WithDecay overrides the per-observation decay factor.
func WithDecay(decay float64) Option {
	return func(b *Bandit) { b.decay = decay }
}

// WithPrior overrides the Beta prior.
func WithPrior(prior BetaParams) Option {
	return func(b *Bandit) { b.prior = prior }
}

// New creates a bandit with one fresh arm per known signal.
func New(opts ...Option) *Bandit {
	b := &Bandit{
		arms:      make(map[SignalType]*Arm, len(AllSignals())),
		modifiers: make(map[ContextKey]*ContextModifier),
		prior:     DefaultPrior(),
		decay:     DefaultDecay,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	for _, s := range AllSignals() {
		b.arms[s] = NewArm(s, b.decay)
	}
	return b
}

// SelectWeights samples every arm, applies the modifiers for the given
// context keys, and returns normalized weights summing to 1.
func (b *Bandit) SelectWeights(ctx QueryContext) SignalWeights {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := sortedKeys(ctx.Keys())
	now := time.Now()

	weights := make(SignalWeights, len(b.arms))
	for _, signal := range AllSignals() {
		arm := b.arms[signal]
		theta := arm.Sample(b.rng, b.prior)
		arm.LastSelected = now

		for _, key := range keys {
			if mod, ok := b.modifiers[key]; ok {
				theta = mod.Apply(signal, theta)
			}
		}
		weights[signal] = theta
	}

	weights.Normalize()
	return weights
}

// Observe applies one reward to the matching arm and to the modifier of
// every context key.
func (b *Bandit) Observe(signal SignalType, reward Reward, keys []ContextKey) {
	b.mu.Lock()
	defer b.mu.Unlock()

	arm, ok := b.arms[signal]
	if !ok {
		arm = NewArm(signal, b.decay)
		b.arms[signal] = arm
	}
	arm.Observe(reward, b.prior)

	for _, key := range sortedKeys(keys) {
		mod, ok := b.modifiers[key]
		if !ok {
			mod = NewContextModifier()
			b.modifiers[key] = mod
		}
		mod.Update(signal, reward)
	}
}

// Arm returns a copy of the arm for signal, or a zero arm when unknown.
func (b *Bandit) Arm(signal SignalType) Arm {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if arm, ok := b.arms[signal]; ok {
		return *arm
	}
	return Arm{Signal: signal, EstimatedProb: 0.5, DecayFactor: b.decay}
}

// Modifier returns a copy of the modifier for key and whether one exists.
func (b *Bandit) Modifier(key ContextKey) (ContextModifier, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	mod, ok := b.modifiers[key]
	if !ok {
		return ContextModifier{}, false
	}
	out := ContextModifier{
		ProbabilityBonus: make(map[SignalType]float64, len(mod.ProbabilityBonus)),
		WeightMultiplier: make(map[SignalType]float64, len(mod.WeightMultiplier)),
		ObservationCount: mod.ObservationCount,
	}
	for s, v := range mod.ProbabilityBonus {
		out.ProbabilityBonus[s] = v
	}
	for s, v := range mod.WeightMultiplier {
		out.WeightMultiplier[s] = v
	}
	return out, true
}

// ObservationTotal returns the decayed observation count across all arms.
func (b *Bandit) ObservationTotal() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var total float64
	for _, arm := range b.arms {
		total += arm.Observations()
	}
	return total
}
