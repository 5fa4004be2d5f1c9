package websocket

import "errors"

var (
	ErrClientQueueFull  = errors.New("client message queue is full")
	ErrClientClosed     = errors.New("client connection is closed")
	ErrInvalidMessage   = errors.New("invalid message format")
	ErrUnknownType      = errors.New("unknown message type")
	ErrNotAuthenticated = errors.New("connection is not authenticated")
)
