package rcon

import "errors"

var ErrAuthFailed = errors.New("rcon authentication failed")
var ErrTimeout = errors.New("rcon request timed out")
var ErrDesync = errors.New("rcon protocol desync")
