package dto

// Response represents a standard API response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data interface{}) Response {
	return Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	}
}

// NewErrorResponseWithRequestID creates an error response carrying the
// request ID for correlation
func NewErrorResponseWithRequestID(code, message, requestID string) Response {
	return Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// IngestRequest is the body of POST /api/v1/ingest. Either the encrypted
// envelope is set, or the batch is sent in the clear (development only,
// requires no encryption key configured).
type IngestRequest struct {
	EncryptedPayload string           `json:"encrypted_payload,omitempty"`
	DataType         string           `json:"data_type,omitempty"`
	Records          []map[string]any `json:"records,omitempty"`
}

// IngestPayload is the decrypted content of an encrypted envelope
type IngestPayload struct {
	DataType string           `json:"data_type"`
	Records  []map[string]any `json:"records"`
}
