package http

import "github.com/oapi-codegen/runtime/types"

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned by the API.
const (
	CodeBadRequest       = "bad_request"
	CodeEmptyQuestion    = "empty_question"
	CodeQuotaExhausted   = "quota_exhausted"
	CodeNotReady         = "not_ready"
	CodeGenerationError  = "generation_error"
	CodeProviderError    = "provider_error"
	CodeInvalidLogin     = "invalid_credentials"
	CodeInternalError    = "internal_error"
	CodeMissingVisitorID = "missing_visitor_id"
)

// ChatRequest is one question from the visitor.
type ChatRequest struct {
	Question string `json:"question"`
}

// ChatResponse is one answered turn.
type ChatResponse struct {
	Answer string        `json:"answer"`
	Usage  UsageResponse `json:"usage"`
}

// UsageResponse is a point-in-time quota snapshot.
type UsageResponse struct {
	Date      types.Date `json:"date"`
	Used      int        `json:"used"`
	Limit     int        `json:"limit"`
	Remaining int        `json:"remaining"`
	Percent   int        `json:"percent"`
	Blocked   bool       `json:"blocked"`
}

// LoginRequest is an explicit credential submission.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse confirms the authenticated identity.
type LoginResponse struct {
	Username string        `json:"username"`
	Usage    UsageResponse `json:"usage"`
}
