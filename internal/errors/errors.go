package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

// NodeError is an error raised by a node. It carries a message
// describing the failure and, optionally, the inner error that caused
// it, annotated with the stack at the point it was wrapped.
type NodeError struct {
	Inner   error
	Message string
}

func New(text string) *NodeError {
	return &NodeError{Message: text}
}

func WrapError(inner error, messagef string, messageArgs ...interface{}) *NodeError {
	return &NodeError{
		Inner:   errors.WithStack(inner),
		Message: fmt.Sprintf(messagef, messageArgs...),
	}
}

// Unwrap exposes the inner error to errors.Is and errors.As.
func (e *NodeError) Unwrap() error {
	return e.Inner
}

func (e *NodeError) Error() string {
	return e.Message
}
