// Package errors provides structured error handling for skillbase.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: skill errors (not found, missing source)
//   - 2XX: configuration errors
//   - 3XX: validation errors (malformed input, infeasible budget)
//   - 4XX: external collaborator errors
//   - 5XX: internal errors (corruption, timeout)
package errors

// Kind classifies an error for callers that branch on failure class
// rather than on individual codes.
type Kind string

const (
	// KindNotFound indicates a missing skill id or source path.
	KindNotFound Kind = "NOT_FOUND"
	// KindValidation indicates malformed input that the caller can correct.
	KindValidation Kind = "VALIDATION"
	// KindConfig indicates a missing or conflicting configuration setting.
	KindConfig Kind = "CONFIG"
	// KindBudgetInfeasible indicates a pack whose required sections exceed the budget.
	KindBudgetInfeasible Kind = "BUDGET_INFEASIBLE"
	// KindTimeout indicates a deadline expired; the caller may retry.
	KindTimeout Kind = "TIMEOUT"
	// KindCorruption indicates a hash mismatch or partial write; fatal for the record.
	KindCorruption Kind = "CORRUPTION"
	// KindExternal indicates a subprocess or collaborator failure, propagated verbatim.
	KindExternal Kind = "EXTERNAL"
	// KindInternal indicates an unexpected internal error.
	KindInternal Kind = "INTERNAL"
)

// Error codes organized by group.
const (
	// Skill errors (100-199)
	ErrCodeSkillNotFound  = "ERR_101_SKILL_NOT_FOUND"
	ErrCodeSourceMissing  = "ERR_102_SOURCE_MISSING"
	ErrCodeSectionUnknown = "ERR_103_SECTION_UNKNOWN"

	// Config errors (200-299)
	ErrCodeConfigNotFound   = "ERR_201_CONFIG_NOT_FOUND"
	ErrCodeConfigUnknownKey = "ERR_202_CONFIG_UNKNOWN_KEY"
	ErrCodeConfigInvalid    = "ERR_203_CONFIG_INVALID"
	ErrCodeConfigConflict   = "ERR_204_CONFIG_CONFLICT"

	// Validation errors (300-399)
	ErrCodeFrontMatter      = "ERR_301_FRONT_MATTER_INVALID"
	ErrCodeQueryInvalid     = "ERR_302_QUERY_INVALID"
	ErrCodeBoundsExceeded   = "ERR_303_BOUNDS_EXCEEDED"
	ErrCodeBudgetInfeasible = "ERR_304_BUDGET_INFEASIBLE"

	// External errors (400-499)
	ErrCodeSubprocess  = "ERR_401_SUBPROCESS_FAILED"
	ErrCodeUnavailable = "ERR_402_COLLABORATOR_UNAVAILABLE"

	// Internal errors (500-599)
	ErrCodeInternal   = "ERR_501_INTERNAL"
	ErrCodeCorruption = "ERR_502_CORRUPTION"
	ErrCodeTimeout    = "ERR_503_TIMEOUT"
	ErrCodeStore      = "ERR_504_STORE_FAILURE"
)

// kindFromCode derives the error kind from the code prefix.
func kindFromCode(code string) Kind {
	switch {
	case code == ErrCodeBudgetInfeasible:
		return KindBudgetInfeasible
	case code == ErrCodeCorruption:
		return KindCorruption
	case code == ErrCodeTimeout:
		return KindTimeout
	case len(code) >= 5 && code[:5] == "ERR_1":
		return KindNotFound
	case len(code) >= 5 && code[:5] == "ERR_2":
		return KindConfig
	case len(code) >= 5 && code[:5] == "ERR_3":
		return KindValidation
	case len(code) >= 5 && code[:5] == "ERR_4":
		return KindExternal
	default:
		return KindInternal
	}
}

// isRecoverableKind reports whether errors of this kind are recoverable
// per the propagation policy. Corruption is fatal for the affected record;
// internal errors are not retried.
func isRecoverableKind(kind Kind) bool {
	switch kind {
	case KindNotFound, KindValidation, KindConfig, KindBudgetInfeasible, KindTimeout, KindExternal:
		return true
	default:
		return false
	}
}
