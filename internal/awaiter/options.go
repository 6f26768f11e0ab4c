package awaiter

import (
	"fmt"
	"time"
)

const (
	DefaultPollingInterval = time.Second
	DefaultTimeout         = 2 * time.Minute

	// MinPollingInterval is the smallest interval accepted by Validate.
	MinPollingInterval = time.Millisecond
)

// Options controls how often and for how long Await polls for a receipt.
type Options struct {
	PollingInterval time.Duration
	Timeout         time.Duration
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{PollingInterval: DefaultPollingInterval, Timeout: DefaultTimeout}
}

// Validate requires interval >= 1ms and timeout >= interval.
func (o Options) Validate() error {
	if o.PollingInterval < MinPollingInterval {
		return fmt.Errorf("%w: polling interval %s is below %s", ErrInvalidConfiguration, o.PollingInterval, MinPollingInterval)
	}
	if o.Timeout < o.PollingInterval {
		return fmt.Errorf("%w: timeout %s is shorter than polling interval %s", ErrInvalidConfiguration, o.Timeout, o.PollingInterval)
	}
	return nil
}
