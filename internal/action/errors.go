package action

import "errors"

// Ошибки action.
var (
	// ErrValidation — action не прошёл проверку при создании.
	// Все ошибки New оборачивают ErrValidation.
	ErrValidation = errors.New("invalid action")

	// ErrNoOperations — action без операций.
	ErrNoOperations = errors.New("no operations")

	// ErrUnknownKind — неизвестный вид операции.
	ErrUnknownKind = errors.New("unknown operation kind")

	// ErrEmptyArgv — Spawn без программы.
	ErrEmptyArgv = errors.New("empty argv")

	// ErrUnknownFunction — имя не зарегистрировано в реестре.
	ErrUnknownFunction = errors.New("function is not registered")

	// ErrUnsupportedArg — аргумент не примитивного типа.
	ErrUnsupportedArg = errors.New("unsupported argument type")

	// ErrRegistryFrozen — регистрация после Freeze.
	ErrRegistryFrozen = errors.New("registry is frozen")

	// ErrDuplicateFunction — имя уже зарегистрировано.
	ErrDuplicateFunction = errors.New("function already registered")

	// ErrBadArguments — функция получила аргументы неверного вида.
	ErrBadArguments = errors.New("bad arguments")

	// ErrProcessFailed — запущенная программа завершилась с ненулевым кодом.
	ErrProcessFailed = errors.New("process failed")
)
