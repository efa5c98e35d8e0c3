package response

var (
	ErrInvalidRequestFormat = ErrorResponse{
		Status:  "error",
		Error:   "invalid_request",
		Details: "Invalid request format",
	}

	// ErrAuthenticationFailed deliberately carries no detail: login,
	// refresh and bearer failures all look the same to the caller.
	ErrAuthenticationFailed = ErrorResponse{
		Status: "error",
		Error:  "authentication_failed",
	}

	ErrUserAlreadyExists = ErrorResponse{
		Status:  "error",
		Error:   "user_already_exists",
		Details: "User with this email already exists",
	}

	ErrDemoUnavailable = ErrorResponse{
		Status:  "error",
		Error:   "demo_unavailable",
		Details: "Demo mode is not enabled",
	}

	ErrInternal = ErrorResponse{
		Status:  "error",
		Error:   "internal_error",
		Details: "Internal server error",
	}
)

// TooManyRequests builds the 429 body with the window reset hint.
func TooManyRequests(retryAfter int64) ErrorResponse {
	return ErrorResponse{
		Status:     "error",
		Error:      "rate_limited",
		Details:    "Too many requests",
		RetryAfter: retryAfter,
	}
}
