package websocket

import "errors"

var (
	ErrClientQueueFull = errors.New("client message queue is full")
	ErrInvalidMessage  = errors.New("invalid message format")
	ErrSessionClosed   = errors.New("session is closed")
	ErrHandlerPanic    = errors.New("message handler panicked")
)
