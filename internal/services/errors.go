package services

import "errors"

var (
	// ErrRecordNotFound is returned when a log record id does not exist.
	ErrRecordNotFound = errors.New("log record not found")
	// ErrAlreadyAnalyzed is returned when another worker claimed the record first.
	ErrAlreadyAnalyzed = errors.New("log record already analyzed")
	ErrSourceNotFound  = errors.New("log source not found")
	ErrAlertNotFound   = errors.New("alert not found")

	ErrNotificationNotFound = errors.New("notification not found")
)
