package acquire

import (
	"errors"
	"fmt"
)

// Validation error codes.
const (
	CodeInputRequired = "input_required"
	CodeInputTooShort = "input_too_short"
	CodeWrongType     = "wrong_type"
	CodeTooLarge      = "too_large"
)

// ValidationError is a local, recoverable input problem reported before any
// extraction or generation work starts.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ExtractionError reports a document that could not be turned into usable
// text. Soft errors carry text that is too short to be meaningful; the caller
// may proceed with a warning.
type ExtractionError struct {
	Message string
	Soft    bool
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction error: %s: %v", e.Message, e.Err)
	}
	return "extraction error: " + e.Message
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a *ValidationError, optionally with the given code.
func IsValidation(err error, code ...string) bool {
	var v *ValidationError
	if !errors.As(err, &v) {
		return false
	}
	if len(code) == 0 {
		return true
	}
	for _, c := range code {
		if v.Code == c {
			return true
		}
	}
	return false
}

// IsSoftExtraction reports an extraction that produced too little text.
func IsSoftExtraction(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e) && e.Soft
}

const (
	msgUnreadable = "não foi possível ler o documento; verifique se o arquivo não está corrompido ou protegido por senha"
	msgTooShort   = "não foi possível extrair texto suficiente deste PDF; tente copiar e colar o conteúdo"
)
