package acquire

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// CheckInput is the precondition for a generation request: pasted or
// extracted text must be present and at least minChars long once trimmed.
// It returns the trimmed text.
func CheckInput(text string, minChars int) (string, error) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", &ValidationError{Code: CodeInputRequired, Message: "informe o texto do plano de curso"}
	}
	if n := utf8.RuneCountInString(t); n < minChars {
		return "", &ValidationError{
			Code:    CodeInputTooShort,
			Message: fmt.Sprintf("texto muito curto: %d caracteres, mínimo de %d", n, minChars),
		}
	}
	return t, nil
}
