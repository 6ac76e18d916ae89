package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for different failure scenarios
const (
	ErrCodeInvalidParameter       = "INVALID_PARAMETER"
	ErrCodeModelNotFound          = "MODEL_NOT_FOUND"
	ErrCodeDataServiceUnavailable = "DATA_SERVICE_UNAVAILABLE"
	ErrCodeNoForecastAvailable    = "NO_FORECAST_AVAILABLE"
	ErrCodeInfeasibleOptimization = "INFEASIBLE_OPTIMIZATION"
	ErrCodeInternalServer         = "INTERNAL_SERVER_ERROR"
)

// InvalidParameterError reports a caller-supplied value that fails
// validation. The offending parameter and value are carried so API responses
// can echo them back.
type InvalidParameterError struct {
	Parameter string      `json:"parameter"`
	Value     interface{} `json:"value"`
	Reason    string      `json:"reason"`
}

// Error implements the error interface
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter '%s': %s (got %v)", e.Parameter, e.Reason, e.Value)
}

// ModelNotFoundError reports a forecast request for a blood type outside the
// known set. Known types never produce this error: a missing trained artifact
// falls back to a synthetic model instead.
type ModelNotFoundError struct {
	BloodType string `json:"blood_type"`
}

// Error implements the error interface
func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("no forecasting model for blood type '%s'", e.BloodType)
}

// DataServiceUnavailableError reports that the upstream Data Service could
// not be reached or answered unusably. Endpoint names the logical operation
// that failed, not the raw URL.
type DataServiceUnavailableError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface
func (e *DataServiceUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data service unavailable (%s): %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("data service unavailable (%s)", e.Endpoint)
}

// Unwrap exposes the underlying transport error.
func (e *DataServiceUnavailableError) Unwrap() error {
	return e.Err
}

// NoForecastAvailableError reports that neither the time-series model nor the
// clinical estimate could produce a usable forecast for a blood type.
type NoForecastAvailableError struct {
	BloodType BloodType `json:"blood_type"`
	Details   string    `json:"details,omitempty"`
}

// Error implements the error interface
func (e *NoForecastAvailableError) Error() string {
	switch {
	case e.BloodType == "" && e.Details != "":
		return fmt.Sprintf("no forecast available: %s", e.Details)
	case e.Details != "":
		return fmt.Sprintf("no forecast available for blood type '%s': %s", e.BloodType, e.Details)
	default:
		return fmt.Sprintf("no forecast available for blood type '%s'", e.BloodType)
	}
}

// APIError is the standardized HTTP error envelope.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ErrorCode maps any error produced by this service to its taxonomy code.
// Unknown errors map to INTERNAL_SERVER_ERROR.
func ErrorCode(err error) string {
	var (
		invalidParam *InvalidParameterError
		notFound     *ModelNotFoundError
		unavailable  *DataServiceUnavailableError
		noForecast   *NoForecastAvailableError
		apiErr       *APIError
	)
	switch {
	case errors.As(err, &invalidParam):
		return ErrCodeInvalidParameter
	case errors.As(err, &notFound):
		return ErrCodeModelNotFound
	case errors.As(err, &unavailable):
		return ErrCodeDataServiceUnavailable
	case errors.As(err, &noForecast):
		return ErrCodeNoForecastAvailable
	case errors.As(err, &apiErr):
		return apiErr.Code
	default:
		return ErrCodeInternalServer
	}
}
