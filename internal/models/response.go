package models

// APIResponse is the envelope every JSON endpoint answers with.
type APIResponse struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(message string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
	}
}

// NewValidationErrorResponse creates a validation error response keyed by field.
func NewValidationErrorResponse(errors map[string]string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   "Validation failed",
		Errors:  errors,
	}
}

// NewRedirectResponse tells the caller where the route guard sends it instead.
func NewRedirectResponse(message, route string) APIResponse {
	return APIResponse{
		Success: false,
		Error:   message,
		Data:    map[string]string{"redirect": route},
	}
}
