package bandit

import "sort"

// ContextKey is a "kind:value" string identifying one context dimension,
// e.g. "tech_stack:go" or "time_of_day:morning".
type ContextKey string

// Context key kinds.
const (
	kindTechStack       = "tech_stack"
	kindTimeOfDay       = "time_of_day"
	kindProjectSize     = "project_size"
	kindActivityPattern = "activity_pattern"
)

// TechStackKey builds a tech-stack context key.
func TechStackKey(stack string) ContextKey { return ContextKey(kindTechStack + ":" + stack) }

// TimeOfDayKey builds a time-of-day context key (morning, afternoon,
// evening, night).
func TimeOfDayKey(period string) ContextKey { return ContextKey(kindTimeOfDay + ":" + period) }

// ProjectSizeKey builds a project-size context key (small, medium, large,
// massive).
func ProjectSizeKey(size string) ContextKey { return ContextKey(kindProjectSize + ":" + size) }

// ActivityPatternKey builds an activity-pattern context key.
func ActivityPatternKey(pattern string) ContextKey {
	return ContextKey(kindActivityPattern + ":" + pattern)
}

// QueryContext describes the situation a query runs in. Empty fields are
// simply absent from Keys.
type QueryContext struct {
	TechStack       string
	TimeOfDay       string
	ProjectSize     string
	ActivityPattern string
}

// Keys returns the non-empty context keys in stable order.
func (c QueryContext) Keys() []ContextKey {
	var keys []ContextKey
	if c.TechStack != "" {
		keys = append(keys, TechStackKey(c.TechStack))
	}
	if c.TimeOfDay != "" {
		keys = append(keys, TimeOfDayKey(c.TimeOfDay))
	}
	if c.ProjectSize != "" {
		keys = append(keys, ProjectSizeKey(c.ProjectSize))
	}
	if c.ActivityPattern != "" {
		keys = append(keys, ActivityPatternKey(c.ActivityPattern))
	}
	return keys
}

// contextLearningRate is the per-observation bonus adjustment.
const contextLearningRate = 0.05

// bonusLimit bounds modifier bonuses so one context cannot dominate the
// sampled weight.
const bonusLimit = 0.5

// ContextModifier adjusts sampled arm weights for one context key.
type ContextModifier struct {
	ProbabilityBonus map[SignalType]float64
	WeightMultiplier map[SignalType]float64
	ObservationCount uint64
}

// NewContextModifier creates an empty modifier.
func NewContextModifier() *ContextModifier {
	return &ContextModifier{
		ProbabilityBonus: make(map[SignalType]float64),
		WeightMultiplier: make(map[SignalType]float64),
	}
}

// Apply adjusts a sampled base weight: multiply, then add the bonus,
// floored at zero.
func (m *ContextModifier) Apply(signal SignalType, base float64) float64 {
	adjusted := base
	if mult, ok := m.WeightMultiplier[signal]; ok {
		adjusted *= mult
	}
	adjusted += m.ProbabilityBonus[signal]
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

// Update nudges the bonus for signal by the learning rate, clamped to
// [-bonusLimit, bonusLimit].
func (m *ContextModifier) Update(signal SignalType, reward Reward) {
	bonus := m.ProbabilityBonus[signal]
	if reward == RewardSuccess {
		bonus += contextLearningRate
	} else {
		bonus -= contextLearningRate
	}
	if bonus > bonusLimit {
		bonus = bonusLimit
	} else if bonus < -bonusLimit {
		bonus = -bonusLimit
	}
	m.ProbabilityBonus[signal] = bonus
	m.ObservationCount++
}

// sortedKeys returns map keys in stable order for deterministic iteration.
func sortedKeys(keys []ContextKey) []ContextKey {
	out := make([]ContextKey, len(keys))
	copy(out, keys)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
