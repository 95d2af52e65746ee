package process

import "errors"

var ErrAlreadyRunning = errors.New("process is already running")
var ErrNotRunning = errors.New("process is not running")
var ErrCrashLoop = errors.New("auto-restart suspended after too many crashes")
