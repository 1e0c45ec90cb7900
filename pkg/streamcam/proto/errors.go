package proto

import "fmt"

type MalformedMessageError struct {
	Message string
	Cause   error
}

func NewMalformedMessageError(message string, cause error) error {
	return &MalformedMessageError{
		Message: message,
		Cause:   cause,
	}
}

func (e *MalformedMessageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed message: %s: %s", e.Message, e.Cause)
	}
	return fmt.Sprintf("malformed message: %s", e.Message)
}

func (e *MalformedMessageError) Unwrap() error {
	return e.Cause
}

func IsMalformedMessageError(e error) bool {
	_, ok := e.(*MalformedMessageError)
	return ok
}
