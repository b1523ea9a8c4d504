package repo

import "errors"

// ErrInvalidFilter — некорректные параметры выборки журнала.
var ErrInvalidFilter = errors.New("invalid filter")
