// Package errs holds the closed set of typed errors the tokenizer returns,
// shared between the vocabulary, every engine, and the facade so that a
// single errors.Is/errors.As vocabulary works across package boundaries.
package errs

import "github.com/pkg/errors"

// The five sentinel errors every typed failure wraps. Callers match them
// with errors.Is; each wrap additionally carries context via pkg/errors'
// Wrapf, which implements Unwrap() error.
var (
	// ErrUnsupportedModel is returned when a model or pre-tokenizer kind
	// string is not one this library recognizes.
	ErrUnsupportedModel = errors.New("unsupported model")
	// ErrInvalidMetadata is returned for malformed or out-of-bound
	// vocabulary metadata discovered at load time.
	ErrInvalidMetadata = errors.New("invalid metadata")
	// ErrTokenizationFailed is returned when an engine-level resource bound
	// is exceeded or an algorithm hits a hard failure case.
	ErrTokenizationFailed = errors.New("tokenization failed")
	// ErrInvalidToken is returned when a token ID is out of range or a
	// piece lookup fails during decode.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidUTF8 is returned when decode reconstructs a byte sequence
	// that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid utf-8")
)

// UnsupportedModelf wraps ErrUnsupportedModel with a formatted message.
func UnsupportedModelf(format string, args ...any) error {
	return errors.Wrapf(ErrUnsupportedModel, format, args...)
}

// InvalidMetadataf wraps ErrInvalidMetadata with a formatted message.
func InvalidMetadataf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidMetadata, format, args...)
}

// TokenizationFailedf wraps ErrTokenizationFailed with a formatted message.
func TokenizationFailedf(format string, args ...any) error {
	return errors.Wrapf(ErrTokenizationFailed, format, args...)
}

// InvalidTokenf wraps ErrInvalidToken with a formatted message.
func InvalidTokenf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidToken, format, args...)
}

// InvalidUTF8f wraps ErrInvalidUTF8 with a formatted message.
func InvalidUTF8f(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidUTF8, format, args...)
}
