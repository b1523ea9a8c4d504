package catalog

import (
	"errors"
	"fmt"
)

// Ошибки каталога.
var (
	// ErrUnknownAction — в каталоге нет действия с таким именем.
	ErrUnknownAction = errors.New("unknown action")

	// ErrEmptyURL — URL пуст после очистки.
	ErrEmptyURL = errors.New("empty url")

	// ErrBadURL — URL не http(s) или похож на опцию командной строки.
	ErrBadURL = errors.New("bad url")

	// ErrNotAllowed — действие неприменимо (например, нет каталога загрузок).
	ErrNotAllowed = errors.New("action not allowed")

	// ErrInvalidDefinition — определение действия некорректно.
	ErrInvalidDefinition = errors.New("invalid action definition")
)

// DefinitionError — ошибка определения с контекстом.
type DefinitionError struct {
	Name    string // имя действия
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
}

// Error реализует интерфейс error.
func (e *DefinitionError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("action %s: %s: %s", e.Name, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap возвращает базовую ошибку.
func (e *DefinitionError) Unwrap() error {
	return ErrInvalidDefinition
}

func definitionError(name, field, message string) *DefinitionError {
	return &DefinitionError{Name: name, Field: field, Message: message}
}
