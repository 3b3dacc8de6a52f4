package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrOrderCanceled = errors.New("order already canceled")
	ErrPartialClose  = errors.New("only a 100% close is supported")
	ErrValidation    = errors.New("invalid request")
	ErrUpstream      = errors.New("upstream data error")
)
