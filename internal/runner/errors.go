package runner

import "errors"

var ErrNoRows = errors.New("sweep produced no result rows")
