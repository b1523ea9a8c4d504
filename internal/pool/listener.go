package pool

import "github.com/shaiso/Feedactions/internal/domain"

// Listener получает запись о каждой классификации action.
//
// Вызывается вне мьютекса пула, но из горутин пула: реализация
// не должна блокироваться надолго.
type Listener interface {
	ActionFinished(rec domain.ActionRecord)
}

// ListenerFunc — адаптер функции к Listener.
type ListenerFunc func(rec domain.ActionRecord)

// ActionFinished вызывает f(rec).
func (f ListenerFunc) ActionFinished(rec domain.ActionRecord) {
	f(rec)
}

// MultiListener рассылает запись нескольким слушателям по порядку.
type MultiListener []Listener

// ActionFinished передаёт запись каждому не-nil слушателю.
func (m MultiListener) ActionFinished(rec domain.ActionRecord) {
	for _, l := range m {
		if l != nil {
			l.ActionFinished(rec)
		}
	}
}
