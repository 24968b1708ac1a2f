// Package bandit implements the contextual Thompson-sampling bandit that
// learns per-signal retrieval weights from user feedback.
package bandit

// SignalType names one retrieval feature the bandit weighs.
type SignalType string

const (
	SignalBM25           SignalType = "bm25"
	SignalEmbedding      SignalType = "embedding"
	SignalTrigger        SignalType = "trigger"
	SignalFreshness      SignalType = "freshness"
	SignalProjectMatch   SignalType = "project_match"
	SignalFileTypeMatch  SignalType = "file_type_match"
	SignalCommandPattern SignalType = "command_pattern"
	SignalUserHistory    SignalType = "user_history"
)

// AllSignals lists every signal in stable order. Iteration anywhere the
// weights are built must follow this order so sampling with a fixed seed
// is reproducible.
func AllSignals() []SignalType {
	return []SignalType{
		SignalBM25,
		SignalEmbedding,
		SignalTrigger,
		SignalFreshness,
		SignalProjectMatch,
		SignalFileTypeMatch,
		SignalCommandPattern,
		SignalUserHistory,
	}
}

// Valid reports whether s names a known signal.
func (s SignalType) Valid() bool {
	for _, known := range AllSignals() {
		if s == known {
			return true
		}
	}
	return false
}

// Reward is the binary outcome of a feedback event.
type Reward string

const (
	RewardSuccess Reward = "success"
	RewardFailure Reward = "failure"
)

// Valid reports whether r is a known reward value.
func (r Reward) Valid() bool {
	return r == RewardSuccess || r == RewardFailure
}

// SignalWeights maps each signal to its normalized weight.
type SignalWeights map[SignalType]float64

// Get returns the weight for signal, zero when absent.
func (w SignalWeights) Get(signal SignalType) float64 {
	return w[signal]
}

// Normalize scales weights to sum to 1. When the sum is non-positive the
// weights reset to uniform over all known signals.
func (w SignalWeights) Normalize() {
	var sum float64
	for _, v := range w {
		sum += v
	}
	if sum <= 0 {
		uniform := 1.0 / float64(len(AllSignals()))
		for _, s := range AllSignals() {
			w[s] = uniform
		}
		return
	}
	for s := range w {
		w[s] /= sum
	}
}
