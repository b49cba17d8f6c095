package vm

import "errors"

// ErrNoOperations is returned by Run for a program without operations.
var ErrNoOperations = errors.New("vm: program has no operations")
