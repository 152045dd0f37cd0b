package cortexm

import "errors"

var (
	ErrNotConfigurable = errors.New("exception priority is fixed")
	ErrReloadRange     = errors.New("systick reload out of range")
)
