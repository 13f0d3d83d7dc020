package classification

import (
	"errors"
	"fmt"
)

// ErrorKind tells which pipeline stage produced a ProcessingError.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindDecode
	KindModelLoad
	KindInference
	KindConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case KindDecode:
		return "decode"
	case KindModelLoad:
		return "model_load"
	case KindInference:
		return "inference"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

type ProcessingError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ProcessingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, message string, cause error) *ProcessingError {
	return &ProcessingError{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first ProcessingError in err's chain.
func KindOf(err error) ErrorKind {
	var perr *ProcessingError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindUnknown
}
