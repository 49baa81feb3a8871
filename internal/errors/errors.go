// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrPredictionUnavailable = errors.New("prediction unavailable")
	ErrInsufficientHistory   = errors.New("insufficient price history")
	ErrSentimentUnavailable  = errors.New("sentiment unavailable")
	ErrStaleMarketData       = errors.New("stale market data")
	ErrRiskRejected          = errors.New("rejected by risk checks")
	ErrPositionNotFound      = errors.New("position not found")
	ErrPositionExists        = errors.New("position already open")
	ErrNoRunData             = errors.New("no data produced for any symbol")
	ErrSymbolNotFound        = errors.New("symbol not found")
	ErrRateLimited           = errors.New("rate limited")
	ErrTimeout               = errors.New("operation timed out")
	ErrConfigInvalid         = errors.New("invalid configuration")
	ErrDataNotFound          = errors.New("data not found")
	ErrDatabaseError         = errors.New("database error")
)

// PredictionError represents a failure to obtain a price prediction.
type PredictionError struct {
	Symbol string
	Model  string
	Reason string
	Err    error
}

func (e *PredictionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("prediction error [%s] %s: %s: %v", e.Model, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("prediction error [%s] %s: %s", e.Model, e.Symbol, e.Reason)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// NewPredictionError creates a new PredictionError.
func NewPredictionError(symbol, model, reason string, err error) *PredictionError {
	return &PredictionError{
		Symbol: symbol,
		Model:  model,
		Reason: reason,
		Err:    err,
	}
}

// SentimentError represents a failure to obtain a sentiment read.
type SentimentError struct {
	Symbol   string
	Provider string
	Reason   string
	Err      error
}

func (e *SentimentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("sentiment error [%s] %s: %s: %v", e.Provider, e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("sentiment error [%s] %s: %s", e.Provider, e.Symbol, e.Reason)
}

func (e *SentimentError) Unwrap() error {
	return e.Err
}

// NewSentimentError creates a new SentimentError.
func NewSentimentError(symbol, provider, reason string, err error) *SentimentError {
	return &SentimentError{
		Symbol:   symbol,
		Provider: provider,
		Reason:   reason,
		Err:      err,
	}
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
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
	Symbol   string
	Message  string
	Err      error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s] %s: %s: %v", e.DataType, e.Symbol, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s] %s: %s", e.DataType, e.Symbol, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(dataType, symbol, message string, err error) *DataError {
	return &DataError{
		DataType: dataType,
		Symbol:   symbol,
		Message:  message,
		Err:      err,
	}
}

// RiskError represents a risk management error.
type RiskError struct {
	Rule    string
	Current float64
	Limit   float64
	Message string
}

func (e *RiskError) Error() string {
	return fmt.Sprintf("risk violation [%s]: %s (current: %.2f, limit: %.2f)", e.Rule, e.Message, e.Current, e.Limit)
}

// NewRiskError creates a new RiskError.
func NewRiskError(rule string, current, limit float64, message string) *RiskError {
	return &RiskError{
		Rule:    rule,
		Current: current,
		Limit:   limit,
		Message: message,
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
