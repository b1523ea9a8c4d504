package action

import (
	"context"
	"fmt"
	"strings"
)

// Action — проверенная, неизменяемая последовательность операций.
type Action struct {
	name string
	ops  []Operation
}

// Spec — сериализуемая форма Action для передачи в worker.
type Spec struct {
	Name       string
	Operations []Operation
}

// New создаёт Action, проверяя каждую операцию против реестра.
//
// Ошибка всегда оборачивает ErrValidation и возвращается синхронно,
// до какого-либо взаимодействия с очередями пула.
func New(reg *Registry, ops ...Operation) (*Action, error) {
	return NewNamed(reg, "", ops...)
}

// NewNamed — New с именем для логов и статистики.
func NewNamed(reg *Registry, name string, ops ...Operation) (*Action, error) {
	if reg == nil {
		reg = Default()
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrNoOperations)
	}

	copied := make([]Operation, len(ops))
	for i, op := range ops {
		if err := op.validate(reg); err != nil {
			return nil, fmt.Errorf("%w: operation %d: %w", ErrValidation, i, err)
		}
		copied[i] = op.clone()
	}

	if name == "" {
		name = defaultName(copied)
	}
	return &Action{name: name, ops: copied}, nil
}

// FromSpec восстанавливает Action на стороне worker'а с повторной проверкой.
func FromSpec(reg *Registry, spec Spec) (*Action, error) {
	return NewNamed(reg, spec.Name, spec.Operations...)
}

// Name возвращает имя action.
func (a *Action) Name() string {
	return a.name
}

// Operations возвращает копию операций.
func (a *Action) Operations() []Operation {
	ops := make([]Operation, len(a.ops))
	for i, op := range a.ops {
		ops[i] = op.clone()
	}
	return ops
}

// Spec возвращает сериализуемую копию.
func (a *Action) Spec() Spec {
	return Spec{Name: a.name, Operations: a.Operations()}
}

// String возвращает описание для логов.
func (a *Action) String() string {
	parts := make([]string, len(a.ops))
	for i, op := range a.ops {
		parts[i] = op.String()
	}
	return a.name + ": " + strings.Join(parts, "; ")
}

// Execute выполняет операции по порядку. Первая ошибка прерывает выполнение.
func (a *Action) Execute(ctx context.Context, reg *Registry) error {
	if reg == nil {
		reg = Default()
	}
	for i, op := range a.ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := execute(ctx, reg, op); err != nil {
			return fmt.Errorf("operation %d (%s): %w", i, op, err)
		}
	}
	return nil
}

// defaultName — имя по первой операции: программа или функция.
func defaultName(ops []Operation) string {
	op := ops[0]
	if op.Kind == KindSpawn {
		return op.Argv[0]
	}
	return op.Func
}
