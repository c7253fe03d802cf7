// Package errors provides structured error handling for HippoMind.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index and IO errors
//   - 3XX: Upstream service errors (vector store, Ollama)
//   - 4XX: Validation and session protocol errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIndex indicates index and disk I/O errors.
	CategoryIndex Category = "INDEX"
	// CategoryUpstream indicates errors from consumed services.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates input and protocol validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Index errors (200-299)
	ErrCodeIndexNotFound  = "ERR_201_INDEX_NOT_FOUND"
	ErrCodeIndexLocked    = "ERR_202_INDEX_LOCKED"
	ErrCodeCorruptIndex   = "ERR_203_CORRUPT_INDEX"
	ErrCodePayloadMissing = "ERR_204_PAYLOAD_MISSING"

	// Upstream errors (300-399)
	ErrCodeRetrievalUnavailable = "ERR_301_RETRIEVAL_UNAVAILABLE"
	ErrCodeLLMUnavailable       = "ERR_302_LLM_UNAVAILABLE"
	ErrCodeEmbeddingFailed      = "ERR_303_EMBEDDING_FAILED"
	ErrCodeNetworkTimeout       = "ERR_304_NETWORK_TIMEOUT"

	// Validation and session protocol errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeSessionNotFound   = "ERR_403_SESSION_NOT_FOUND"
	ErrCodeInvalidTransition = "ERR_404_INVALID_TRANSITION"
	ErrCodeUnknownCluster    = "ERR_405_UNKNOWN_CLUSTER"
	ErrCodeUnknownNavNode    = "ERR_406_UNKNOWN_NAV_NODE"

	// Internal errors (500-599)
	ErrCodeInternal         = "ERR_501_INTERNAL"
	ErrCodeSearchFailed     = "ERR_502_SEARCH_FAILED"
	ErrCodeClusteringFailed = "ERR_503_CLUSTERING_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIndex
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if code == ErrCodeCorruptIndex {
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRetrievalUnavailable, ErrCodeLLMUnavailable,
		ErrCodeEmbeddingFailed, ErrCodeNetworkTimeout:
		return true
	default:
		return false
	}
}
