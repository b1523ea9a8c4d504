package action

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Func — функция, доступная для операций Call.
//
// args — ровно те значения, что были переданы в Call (тот же порядок и типы).
type Func func(ctx context.Context, args ...any) error

// Registry — закрытый реестр функций по имени.
type Registry struct {
	mu     sync.RWMutex
	funcs  map[string]Func
	frozen bool
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register добавляет функцию под именем name.
func (r *Registry) Register(name string, fn Func) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("%w: %s", ErrRegistryFrozen, name)
	}
	if name == "" || fn == nil {
		return fmt.Errorf("%w: empty name or nil func", ErrBadArguments)
	}
	if _, ok := r.funcs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFunction, name)
	}
	r.funcs[name] = fn
	return nil
}

// MustRegister — Register для init(); паникует при ошибке.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

// Freeze закрывает реестр для дальнейших изменений. Повторный вызов безопасен.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen сообщает, закрыт ли реестр.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Lookup возвращает функцию по имени.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names возвращает отсортированный список имён (для аудита whitelist).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default возвращает реестр процесса со встроенными функциями.
//
// Реестр одинаков в пуле и в worker'ах, потому что оба — один бинарник.
// Дополнительные функции регистрируйте только из init().
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		registerBuiltins(defaultRegistry)
	})
	return defaultRegistry
}

// Register регистрирует функцию в реестре по умолчанию. Вызывать из init().
func Register(name string, fn Func) {
	Default().MustRegister(name, fn)
}
