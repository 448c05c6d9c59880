// Package app provides the core application service for Wails bindings.
package app

// Event names for frontend communication.
const (
	EventPipelineState = "pipeline-state"
	EventAppError      = "app-error"
)

// AppError is emitted for failures of actions the frontend did not start,
// such as a hotkey-triggered screen scan.
type AppError struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}
