//go:build !mvs

package mvs

import "github.com/smazurov/camgrab/internal/hal"

// Available reports whether this binary carries the vendor binding.
func Available() bool { return false }

// NewDriver fails in builds without the vendor binding.
func NewDriver(cfg Config) (hal.Driver, error) {
	return nil, ErrUnavailable
}
