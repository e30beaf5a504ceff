// Package env provides typed, fallible reads of process environment variables.
package env

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

var (
	// ErrUnset is reported when the variable is not present in the environment.
	ErrUnset = errors.New("not set")

	// ErrEmpty is reported when the variable is set to the empty string.
	// Callers treat it the same as ErrUnset.
	ErrEmpty = errors.New("empty")

	// ErrNotNumber is reported when a port variable is not a base-10 unsigned integer.
	ErrNotNumber = errors.New("not a base-10 unsigned integer")

	// ErrZeroPort is reported when a port variable is 0.
	ErrZeroPort = errors.New("port must not be 0")

	// ErrPortRange is reported when a port variable is above 65535.
	ErrPortRange = errors.New("port out of range 1-65535")
)

// VariableError names the environment variable that could not be read.
type VariableError struct {
	Name string
	Err  error
}

func (e *VariableError) Error() string {
	return fmt.Sprintf("environment variable %q is not set or illegal: %v", e.Name, e.Err)
}

func (e *VariableError) Unwrap() error {
	return e.Err
}

// Environ looks up environment variables.
type Environ interface {
	LookupEnv(name string) (string, bool)
}

type osEnviron struct{}

func (osEnviron) LookupEnv(name string) (string, bool) {
	return os.LookupEnv(name)
}

// OS is the Environ of the running process.
var OS Environ = osEnviron{}

// Map is an Environ backed by a map.
type Map map[string]string

func (m Map) LookupEnv(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// Accessor reads typed values from an Environ. It does not cache.
type Accessor struct {
	environ Environ
}

// NewAccessor creates an Accessor over environ. A nil environ reads the process environment.
func NewAccessor(environ Environ) *Accessor {
	if environ == nil {
		environ = OS
	}
	return &Accessor{environ: environ}
}

// String returns the value of name. An unset variable and an empty one are both
// reported as absent.
func (a *Accessor) String(name string) (string, error) {
	v, ok := a.environ.LookupEnv(name)
	if !ok {
		return "", &VariableError{Name: name, Err: ErrUnset}
	}
	if v == "" {
		return "", &VariableError{Name: name, Err: ErrEmpty}
	}
	return v, nil
}

// Port returns the value of name as a port number in [1, 65535].
func (a *Accessor) Port(name string) (uint16, error) {
	s, err := a.String(name)
	if err != nil {
		return 0, err
	}

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, &VariableError{Name: name, Err: ErrPortRange}
		}
		return 0, &VariableError{Name: name, Err: ErrNotNumber}
	}
	if n == 0 {
		return 0, &VariableError{Name: name, Err: ErrZeroPort}
	}

	return uint16(n), nil
}

// Lookup returns the value of name and whether it is present and non-empty.
func (a *Accessor) Lookup(name string) (string, bool) {
	v, err := a.String(name)
	return v, err == nil
}
