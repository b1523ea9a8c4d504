package action

import (
	"fmt"
	"strings"
)

// Kind — вид операции.
type Kind string

const (
	// KindSpawn — запуск внешней программы.
	KindSpawn Kind = "spawn"

	// KindCall — вызов функции из реестра.
	KindCall Kind = "call"
)

// Operation — одна операция action.
//
// Для KindSpawn заполнен Argv, для KindCall — Func и Args.
// Поля экспортированы только ради сериализации (encoding/gob);
// создавайте операции через Spawn и Call.
type Operation struct {
	Kind Kind
	Argv []string
	Func string
	Args []any
}

// Spawn создаёт операцию запуска программы.
func Spawn(argv ...string) Operation {
	return Operation{Kind: KindSpawn, Argv: append([]string(nil), argv...)}
}

// Call создаёт операцию вызова зарегистрированной функции.
func Call(name string, args ...any) Operation {
	return Operation{Kind: KindCall, Func: name, Args: append([]any(nil), args...)}
}

// String возвращает описание операции для логов.
func (op Operation) String() string {
	switch op.Kind {
	case KindSpawn:
		return fmt.Sprintf("spawn %q", op.Argv)
	case KindCall:
		args := make([]string, len(op.Args))
		for i, a := range op.Args {
			args[i] = fmt.Sprint(a)
		}
		return fmt.Sprintf("call %s(%s)", op.Func, strings.Join(args, ","))
	default:
		return fmt.Sprintf("unknown(%s)", op.Kind)
	}
}

func (op Operation) clone() Operation {
	return Operation{
		Kind: op.Kind,
		Argv: append([]string(nil), op.Argv...),
		Func: op.Func,
		Args: append([]any(nil), op.Args...),
	}
}

// validate проверяет операцию против реестра.
func (op Operation) validate(reg *Registry) error {
	switch op.Kind {
	case KindSpawn:
		if len(op.Argv) == 0 || op.Argv[0] == "" {
			return ErrEmptyArgv
		}
		return nil
	case KindCall:
		if _, ok := reg.Lookup(op.Func); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFunction, op.Func)
		}
		for i, a := range op.Args {
			if !isPrimitive(a) {
				return fmt.Errorf("%w: arg %d of %s is %T", ErrUnsupportedArg, i, op.Func, a)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, op.Kind)
	}
}

// isPrimitive — только типы, которые gob передаёт внутри interface
// без дополнительной регистрации и без потери точного типа.
func isPrimitive(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}
