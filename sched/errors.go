package sched

import "errors"

var ErrUnknownJob = errors.New("unknown job")
var ErrInvalidJob = errors.New("invalid job")
