package pool

// State — состояние жизненного цикла пула.
type State string

const (
	StateInit    State = "INIT"
	StateStarted State = "STARTED"
	StateStopped State = "STOPPED"
)

// CanStart проверяет, допустим ли Start из этого состояния.
func (s State) CanStart() bool {
	return s == StateInit || s == StateStopped
}
