// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrDataNotFound     = errors.New("data not found")
	ErrDatabaseError    = errors.New("database error")
	ErrInputValidation  = errors.New("input validation failed")
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrInvalidRecord    = errors.New("invalid trade record")
	ErrRateLimited      = errors.New("rate limited")
	ErrTimeout          = errors.New("operation timed out")
	ErrResponseNotFound = errors.New("model response not found")
	ErrLLMNotConfigured = errors.New("llm client not configured")
)

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// Unwrap lets callers match validation failures with ErrInputValidation.
func (e *ValidationError) Unwrap() error {
	return ErrInputValidation
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// DataError represents a data-related error.
type DataError struct {
	DataType string
	ID       string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.ID, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.ID, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, id, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		ID:       id,
		Message:  message,
		Err:      err,
	}
}

// PriceError represents a failed closing price lookup.
type PriceError struct {
	StockCode string
	Date      string
	Source    string
	Err       error
}

func (e *PriceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("price error [%s] %s on %s: %v", e.Source, e.StockCode, e.Date, e.Err)
	}
	return fmt.Sprintf("price error [%s] %s on %s", e.Source, e.StockCode, e.Date)
}

func (e *PriceError) Unwrap() error {
	return e.Err
}

// NewPriceError creates a new PriceError.
func NewPriceError(stockCode, date, source string, err error) *PriceError {
	return &PriceError{
		StockCode: stockCode,
		Date:      date,
		Source:    source,
		Err:       err,
	}
}

// ImportError represents a failure while importing a model response file.
type ImportError struct {
	File    string
	ModelID string
	Err     error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import error [%s] %s: %v", e.ModelID, e.File, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// NewImportError creates a new ImportError.
func NewImportError(file, modelID string, err error) *ImportError {
	return &ImportError{
		File:    file,
		ModelID: modelID,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
