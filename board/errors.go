package board

import "errors"

var (
	ErrTimeout     = errors.New("hardware did not respond in time")
	ErrUnknownPort = errors.New("no such GPIO port")
	ErrBadPin      = errors.New("pin out of range")
)
