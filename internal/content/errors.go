package content

import "errors"

// ErrTooFewQuestions is returned when an FAQ page would fall below MinFAQQuestions.
var ErrTooFewQuestions = errors.New("too few questions for an FAQ page")

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
