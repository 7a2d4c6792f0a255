package gateway

import "errors"

var ErrRegistryClosed = errors.New("registry closed")

// ConnectionError reports a failed admission handshake.
type ConnectionError struct {
	ClientID string
	Err      error
}

func (e *ConnectionError) Error() string {
	return "connection " + e.ClientID + ": " + e.Err.Error()
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// DecodeError reports an inbound frame that could not be decoded. The frame
// is dropped and the channel stays open.
type DecodeError struct {
	Event  EventType
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode"
	if e.Event != "" {
		msg += " " + string(e.Event)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
