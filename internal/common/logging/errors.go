package logging

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const Stacktrace = "stacktrace"

// Unexported but considered part of the stable interface of pkg/errors.
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Unexported but considered part of the stable interface of pkg/errors.
type causer interface {
	Cause() error
}

// WithStacktrace adds err and, if one was recorded, the stack trace of the point err was created to logger.
func WithStacktrace(logger *logrus.Entry, err error) *logrus.Entry {
	logger = logger.WithError(err)
	if stack := ExtractStack(err); stack != nil {
		logger = logger.WithField(Stacktrace, stack)
	}
	return logger
}

// ExtractStack returns the outermost stack trace in the cause chain of err, or nil if there is none.
func ExtractStack(err error) errors.StackTrace {
	for err != nil {
		if stackErr, ok := err.(stackTracer); ok {
			return stackErr.StackTrace()
		}
		causeErr, ok := err.(causer)
		if !ok {
			return nil
		}
		err = causeErr.Cause()
	}
	return nil
}

// TopmostWithCause returns the last error in the cause chain of err that itself has a cause.
// Typically, that is the final or penultimate error in the chain.
//
// Logging the error returned by this one with the %+v verb provides a stack trace recorded at
// the point the error was created.
func TopmostWithCause(err error) error {
	rv := err
	for rv != nil {
		cause, ok := rv.(causer)
		if !ok {
			break
		}
		next := cause.Cause()
		if _, ok := next.(causer); !ok {
			break
		}
		rv = next
	}
	return rv
}
