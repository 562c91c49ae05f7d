package domain

import "errors"

var (
	ErrInvalidItem   = errors.New("invalid item")
	ErrInvalidDetail = errors.New("invalid item detail")
)
