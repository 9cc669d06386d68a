package authoring

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionBusy      = errors.New("session is busy")
	ErrInvalidState     = errors.New("operation not allowed in current state")
	ErrEmptyInput       = errors.New("input is empty")
	ErrGenerationFailed = errors.New("text generation failed")
	ErrPersistFailed    = errors.New("report could not be saved")
)
