package domain

import "time"

// ActionStatus — итоговая классификация action в пуле.
//
// Жизненный цикл:
//
//	(submit) → SKIPPED                          (пул переполнен)
//	(submit) → pending → OK | FAILED            (worker вернул результат)
//	                   ↘ ABORTED                (вытеснен пулом или остановка пула)
type ActionStatus string

const (
	// ActionStatusOK — action выполнен без ошибок.
	ActionStatusOK ActionStatus = "ok"

	// ActionStatusFailed — код action завершился ошибкой (ошибка самого action).
	ActionStatusFailed ActionStatus = "failed"

	// ActionStatusAborted — action принудительно остановлен пулом
	// после истечения grace period (или при остановке пула).
	ActionStatusAborted ActionStatus = "aborted"

	// ActionStatusSkipped — action отклонён при admission control (backpressure).
	ActionStatusSkipped ActionStatus = "skipped"
)

// Statuses возвращает все статусы в порядке вывода статистики.
func Statuses() []ActionStatus {
	return []ActionStatus{
		ActionStatusOK,
		ActionStatusSkipped,
		ActionStatusAborted,
		ActionStatusFailed,
	}
}

// IsValid проверяет, что статус известен.
func (s ActionStatus) IsValid() bool {
	switch s {
	case ActionStatusOK, ActionStatusFailed, ActionStatusAborted, ActionStatusSkipped:
		return true
	default:
		return false
	}
}

// ActionRecord — запись о завершённом (или отклонённом) action.
//
// Создаётся пулом в момент классификации и передаётся слушателям
// (метрики, журнал). Пул сам эти записи обратно не читает.
type ActionRecord struct {
	// ID — монотонный идентификатор action внутри пула.
	ID uint64 `json:"id"`

	// Name — человекочитаемое имя action (например "download").
	Name string `json:"name"`

	// Status — итоговая классификация.
	Status ActionStatus `json:"status"`

	// WorkerID — идентификатор worker-процесса (пусто, если action не стартовал).
	WorkerID string `json:"worker_id,omitempty"`

	// WorkerPID — pid worker-процесса (0, если неизвестен).
	WorkerPID int `json:"worker_pid,omitempty"`

	// SubmittedAt — время вызова PushAction.
	SubmittedAt time.Time `json:"submitted_at"`

	// StartedAt — время старта, сообщённое worker'ом через liveness channel.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время классификации.
	FinishedAt time.Time `json:"finished_at"`

	// Error — текст ошибки action (для failed) или причина (для aborted).
	Error string `json:"error,omitempty"`
}

// Duration возвращает время выполнения (0, если старт неизвестен).
func (r *ActionRecord) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}
