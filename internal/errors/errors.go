// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrUnknownUnderlying  = errors.New("unknown underlying")
	ErrInsufficientData   = errors.New("insufficient historical data")
	ErrInsufficientMargin = errors.New("insufficient margin")
	ErrUnknownStrategy    = errors.New("unknown strategy")
	ErrInvalidStrikes     = errors.New("invalid strike configuration")
	ErrPositionNotFound   = errors.New("position not found")
	ErrNoData             = errors.New("no data available")
	ErrConfigInvalid      = errors.New("invalid configuration")
)

// UnknownUnderlyingError indicates a request for an underlying with no
// catalog specification. Lot size and strike spacing are per-underlying,
// so there is no safe default to fall back to.
type UnknownUnderlyingError struct {
	Underlying string
}

func (e *UnknownUnderlyingError) Error() string {
	return fmt.Sprintf("unknown underlying %q: no contract specification configured", e.Underlying)
}

func (e *UnknownUnderlyingError) Unwrap() error {
	return ErrUnknownUnderlying
}

// NewUnknownUnderlyingError creates a new UnknownUnderlyingError.
func NewUnknownUnderlyingError(underlying string) *UnknownUnderlyingError {
	return &UnknownUnderlyingError{Underlying: underlying}
}

// InsufficientDataError indicates a backtest had fewer bars than the
// strategy's minimum lookback.
type InsufficientDataError struct {
	Symbol   string
	Strategy string
	Needed   int
	Got      int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s on %s: need at least %d bars, got %d",
		e.Strategy, e.Symbol, e.Needed, e.Got)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(symbol, strategy string, needed, got int) *InsufficientDataError {
	return &InsufficientDataError{Symbol: symbol, Strategy: strategy, Needed: needed, Got: got}
}

// InsufficientMarginError indicates a position's margin requirement
// exceeds the available margin. Orders never partially fill.
type InsufficientMarginError struct {
	Required  float64
	Available float64
}

func (e *InsufficientMarginError) Error() string {
	return fmt.Sprintf("insufficient margin: required %.2f, available %.2f", e.Required, e.Available)
}

func (e *InsufficientMarginError) Unwrap() error {
	return ErrInsufficientMargin
}

// Shortfall returns the margin amount missing.
func (e *InsufficientMarginError) Shortfall() float64 {
	return e.Required - e.Available
}

// NewInsufficientMarginError creates a new InsufficientMarginError.
func NewInsufficientMarginError(required, available float64) *InsufficientMarginError {
	return &InsufficientMarginError{Required: required, Available: available}
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
	return &ValidationError{Field: field, Value: value, Message: message}
}

// BacktestError represents a failure during a single backtest run. Runs
// are batched, so these are logged and absorbed rather than propagated.
type BacktestError struct {
	Strategy string
	Symbol   string
	Err      error
}

func (e *BacktestError) Error() string {
	return fmt.Sprintf("backtest error [%s] %s: %v", e.Strategy, e.Symbol, e.Err)
}

func (e *BacktestError) Unwrap() error {
	return e.Err
}

// NewBacktestError creates a new BacktestError.
func NewBacktestError(strategy, symbol string, err error) *BacktestError {
	return &BacktestError{Strategy: strategy, Symbol: symbol, Err: err}
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
