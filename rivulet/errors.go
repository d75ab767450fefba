package rivulet

import (
	"fmt"

	"github.com/pkg/errors"
)

// AddressingError is returned when an operation addresses a location
// that the current value's shape cannot support: Sub(k) descending into
// a leaf, or Key(k)/Index(k) on a KeyedState whose wrapped value is not
// currently a sequence.
type AddressingError struct {
	Path Path
	Key  Key
	Kind Kind // the Kind actually found at Path, which could not take Key
	msg  string
}

func (e *AddressingError) Error() string {
	return e.msg
}

func newAddressingError(path Path, key Key, kind Kind) error {
	e := &AddressingError{
		Path: path,
		Key:  key,
		Kind: kind,
	}
	e.msg = fmt.Sprintf("rivulet: cannot address key %v at %s: value there is a %s", key, path, kind)
	return errors.WithStack(e)
}

// AsAddressingError reports whether err is (or wraps) an *AddressingError.
func AsAddressingError(err error) (*AddressingError, bool) {
	var ae *AddressingError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
