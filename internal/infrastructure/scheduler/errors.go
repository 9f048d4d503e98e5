package scheduler

import "errors"

// ErrInvalidConfig is returned when a scheduler configuration is invalid
var ErrInvalidConfig = errors.New("invalid scheduler configuration")
