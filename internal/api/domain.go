package api

// ChatRequest represents the expected JSON body for a chat turn.
type ChatRequest struct {
	Message string `json:"message" example:"7 days in October"` // Free-form user input or a tapped choice value.
}

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`                           // Indicates if the operation was successful.
	Message string `json:"message,omitempty" example:"Operation successful"` // Optional success message.
	Error   string `json:"error,omitempty" example:"Resource not found"`     // Optional error message.
}
