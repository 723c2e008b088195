package app

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrForbidden           = errors.New("access denied")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file too large")
)
