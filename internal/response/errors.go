package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrEmailTaken         ErrCode = "EMAIL_ALREADY_REGISTERED"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden       ErrCode = "FORBIDDEN"
	ErrUserAccessOnly  ErrCode = "USER_ACCESS_ONLY"
	ErrAdminAccessOnly ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Exams & attempts ──────────────────────────────────────────────
	ErrExamNotPublished  ErrCode = "EXAM_NOT_PUBLISHED"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrExamNotDraft      ErrCode = "EXAM_NOT_DRAFT"
	ErrAttemptNotFound   ErrCode = "ATTEMPT_NOT_FOUND"
	ErrAttemptFinalized  ErrCode = "ATTEMPT_FINALIZED"
	ErrAttemptInProgress ErrCode = "ATTEMPT_IN_PROGRESS"
	ErrNotAttemptOwner   ErrCode = "NOT_ATTEMPT_OWNER"
	ErrChoiceOutOfRange  ErrCode = "CHOICE_OUT_OF_RANGE"
	ErrIndexOutOfRange   ErrCode = "INDEX_OUT_OF_RANGE"
	ErrQuestionNotInExam ErrCode = "QUESTION_NOT_IN_EXAM"

	// ─── Quota & subscription ──────────────────────────────────────────
	ErrQuotaExceeded    ErrCode = "QUOTA_EXCEEDED"
	ErrUpgradeRequired  ErrCode = "UPGRADE_REQUIRED"
	ErrIdentityRequired ErrCode = "IDENTITY_REQUIRED"
	ErrNoHeldResult     ErrCode = "NO_HELD_RESULT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrEmailTaken:
		return "An account with this email already exists."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrUserAccessOnly:
		return "This resource is restricted to registered users."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "This record is still referenced by other data and cannot be deleted."

	// ─── Exams & attempts ──────────────────────────────────────────────
	case ErrExamNotPublished:
		return "This exam has not been published."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrExamNotDraft:
		return "This exam is not in DRAFT status."
	case ErrAttemptNotFound:
		return "No active attempt was found."
	case ErrAttemptFinalized:
		return "This attempt has already been submitted."
	case ErrAttemptInProgress:
		return "This attempt has not been submitted yet."
	case ErrNotAttemptOwner:
		return "This attempt belongs to another session."
	case ErrChoiceOutOfRange:
		return "The selected choice is not one of the question's options."
	case ErrIndexOutOfRange:
		return "The requested question index is out of range."
	case ErrQuestionNotInExam:
		return "The question does not belong to this exam."

	// ─── Quota & subscription ──────────────────────────────────────────
	case ErrQuotaExceeded:
		return "You have reached this month's free attempt limit for this subject. Upgrade to premium for unlimited attempts."
	case ErrUpgradeRequired:
		return "A premium subscription is required for this feature."
	case ErrIdentityRequired:
		return "Register or log in to view the detailed breakdown."
	case ErrNoHeldResult:
		return "No pending result was found for this session."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
