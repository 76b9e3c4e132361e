package model

import "errors"

var (
	ErrInvalidFrequency  = errors.New("frequency must be quarterly or yearly")
	ErrInvalidInterval   = errors.New("unsupported price interval")
	ErrMissingField      = errors.New("field missing from provider response")
	ErrEmptyInput        = errors.New("no symbols given")
	ErrUnexpectedColumns = errors.New("unexpected column layout")
)
