package errs

import (
	"errors"
	"fmt"
)

// Capture runs errFunc and joins its error, if any, into *errPtr. Meant for
// deferred closes where the close error must not shadow the primary error.
func Capture(errPtr *error, errFunc func() error, msg string) {
	err := errFunc()
	if err == nil {
		return
	}
	*errPtr = errors.Join(*errPtr, fmt.Errorf("%s: %w", msg, err))
}
