package lnf

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid LNF magic")
	ErrUnsupportedMajor = errors.New("unsupported LNF major version")
	ErrCorruptFile      = errors.New("corrupt LNF file")
	ErrTensorNotFound   = errors.New("tensor not found")
)
