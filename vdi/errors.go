package vdi

import "github.com/pkg/errors"

// Format errors surfaced while validating a VDI header.
var (
	ErrInvalidSignature   = errors.New("invalid VDI signature")
	ErrUnsupportedVersion = errors.New("unsupported VDI version")
	ErrUnsupportedImgType = errors.New("only dynamic VDI images are supported")
)
