package http

import "errors"

// ErrBadSource is returned when the body of a copy or move request does not
// name a source path.
var ErrBadSource = errors.New("bad source path")
