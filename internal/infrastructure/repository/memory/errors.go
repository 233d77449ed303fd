package memory

import "errors"

var errNotFound = errors.New("memory repository: not found")
