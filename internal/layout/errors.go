package layout

import "errors"

// ErrInvalidArgument is returned when the column count or an image violates the packer's input contract.
var ErrInvalidArgument = errors.New("invalid argument")
