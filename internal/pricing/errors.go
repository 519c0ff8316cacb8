package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ConfigurationError reports a revenue that no tier covers when no open-ended
// catch-all tier exists.
type ConfigurationError struct {
	Revenue decimal.Decimal
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("no margin tier covers revenue %s and no open-ended tier is configured", e.Revenue.String())
}

// InvalidRateError reports a rate out of range, or a combination of rates that
// would make the price denominator non-positive.
type InvalidRateError struct {
	Field  string
	Rate   decimal.Decimal
	Reason string
}

func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid %s (%s): %s", e.Field, e.Rate.String(), e.Reason)
}

// ValidationError reports an input value the engine refuses to work with.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}
