package server

import "errors"

var errMissingEvent = errors.New("frame has no event name")
