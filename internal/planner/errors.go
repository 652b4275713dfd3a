package planner

import (
	"errors"
	"fmt"
)

// ConfigurationError means the completion service cannot be used at all:
// the credential is missing or was rejected. It is the only failure for
// which the demonstration plan is offered.
type ConfigurationError struct {
	Provider string
	Hint     string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("%s is not configured", e.Provider)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Kind classifies a failed generation request.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindTimeout     Kind = "timeout"
	KindRateLimited Kind = "rate_limited"
	KindMalformed   Kind = "malformed"
	KindSchema      Kind = "schema"
	KindEmpty       Kind = "empty"
)

// GenerationError is a request that was sent but did not yield a valid plan.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("plan generation failed (%s): %s", e.Kind, e.Message())
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Message is the user facing description of the failure, in the UI language.
func (e *GenerationError) Message() string {
	switch e.Kind {
	case KindTimeout:
		return "o serviço de IA demorou demais para responder; tente novamente"
	case KindRateLimited:
		return "o serviço de IA está ocupado; aguarde um momento e tente novamente"
	case KindMalformed:
		return "o serviço de IA devolveu uma resposta ilegível; tente novamente"
	case KindSchema:
		return "o serviço de IA devolveu um plano incompleto; tente novamente"
	case KindEmpty:
		return "o serviço de IA devolveu uma resposta vazia; tente novamente"
	default:
		return "não foi possível contatar o serviço de IA; verifique sua conexão e tente novamente"
	}
}

// IsConfiguration reports whether err is a *ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// KindOf returns the kind of a *GenerationError, or "" for other errors.
func KindOf(err error) Kind {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
