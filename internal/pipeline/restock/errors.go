package restock

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/andresuchdata/restock-go/internal/calendar"
)

var (
	// ErrInvalidOrder is returned when an ordinal day rule uses an unknown token.
	ErrInvalidOrder = calendar.ErrInvalidOrder
	// ErrMissingColumn is returned when an input table lacks a required column.
	ErrMissingColumn = stderrors.New("missing required column")
	// ErrInvalidParameter is returned for run parameters that cannot be used.
	ErrInvalidParameter = stderrors.New("invalid parameter")
	// ErrJoinIntegrity is returned when a join on entity keys is not 1:1.
	ErrJoinIntegrity = stderrors.New("join integrity violation")
)

// ConfigurationError is fatal and must not be retried.
type ConfigurationError struct {
	Kind   error
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Detail)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Kind
}

// IsConfigurationError reports whether err carries a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return stderrors.As(err, &cfgErr)
}

func configError(kind error, format string, args ...interface{}) error {
	return errors.WithStack(&ConfigurationError{Kind: kind, Detail: fmt.Sprintf(format, args...)})
}

func integrityError(format string, args ...interface{}) error {
	return errors.WithStack(fmt.Errorf("%w: %s", ErrJoinIntegrity, fmt.Sprintf(format, args...)))
}

// DataQualityWarning is a recoverable data gap surfaced to the operator.
type DataQualityWarning struct {
	Date    time.Time `json:"date"`
	Attempt int       `json:"attempt"`
	Message string    `json:"message"`
}

func (w DataQualityWarning) String() string {
	return fmt.Sprintf("%s (date %s, attempt %d)", w.Message, w.Date.Format("2006-01-02"), w.Attempt)
}
