package model

import (
	"errors"
)

var (
	ErrEmptyCommand = errors.New("empty command")
	ErrNotLoopback  = errors.New("not a loopback address")
)
