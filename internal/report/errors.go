package report

import (
	"errors"
	"fmt"
)

// ErrNoDate is returned when the report header with the date is missing.
var ErrNoDate = errors.New("не удалось найти дату в заголовке отчета")

// ParseError reports a malformed report. The message is shown to the user
// as-is, so it is written in the report's language.
type ParseError struct {
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("ошибка парсинга отчета: %v", e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}
