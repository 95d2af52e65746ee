package bridge

import "errors"

var ErrRconUnavailable = errors.New("rcon is not configured")
