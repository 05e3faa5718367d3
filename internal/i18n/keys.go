// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Onboarding
	KeyStepSaved            = "onboarding.step_saved"
	KeyApplicationSubmitted = "onboarding.submitted"
	KeyApplicationNotFound  = "onboarding.not_found"
	KeyUnknownApplication   = "onboarding.unknown_application"
	KeyInvalidStep          = "onboarding.invalid_step"
	KeyApplicationCompleted = "onboarding.completed"
	KeyPersistenceFailed    = "onboarding.persistence_failed"
	KeyServiceUnavailable   = "onboarding.unavailable"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// File Upload
	KeyFileRejected = "file.rejected"

	// Health
	KeyHealthConnected    = "health.connected"
	KeyHealthDisconnected = "health.disconnected"
)
