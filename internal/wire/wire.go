// Package wire описывает сообщения между пулом и worker-процессом.
//
// Каналы:
//   - inbound  (пул → worker, stdin worker'а):  Task
//   - liveness (worker → пул, stdout worker'а): Report{Liveness}
//   - result   (worker → пул, stdout worker'а): Report{Result}
//
// Сообщения кодируются encoding/gob: аргументы Call передаются как
// interface-значения, и gob сохраняет их точный тип (int остаётся int).
package wire

import (
	"encoding/gob"
	"fmt"
	"io"
	"time"

	"github.com/shaiso/Feedactions/internal/action"
)

// Коды завершения action в Result.
const (
	ExitOK     = 0
	ExitFailed = -1
)

// Task — задача для worker'а: id едет вместе с action.
type Task struct {
	ID     uint64
	Action action.Spec
}

// Liveness — отчёт worker'а о том, что он начал выполнять action ID.
type Liveness struct {
	ID        uint64
	PID       int
	StartedAt time.Time
}

// Result — итог выполнения action.
type Result struct {
	ID       uint64
	ExitCode int
	Error    string
}

// Report — сообщение worker → пул. Заполнено ровно одно поле.
type Report struct {
	Liveness *Liveness
	Result   *Result
}

// Encoder пишет сообщения в поток.
type Encoder struct {
	enc *gob.Encoder
}

// NewEncoder создаёт Encoder поверх w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{enc: gob.NewEncoder(w)}
}

// WriteTask отправляет задачу worker'у.
func (e *Encoder) WriteTask(t Task) error {
	if err := e.enc.Encode(&t); err != nil {
		return fmt.Errorf("encode task %d: %w", t.ID, err)
	}
	return nil
}

// WriteLiveness отправляет liveness-запись.
func (e *Encoder) WriteLiveness(l Liveness) error {
	if err := e.enc.Encode(&Report{Liveness: &l}); err != nil {
		return fmt.Errorf("encode liveness %d: %w", l.ID, err)
	}
	return nil
}

// WriteResult отправляет результат.
func (e *Encoder) WriteResult(r Result) error {
	if err := e.enc.Encode(&Report{Result: &r}); err != nil {
		return fmt.Errorf("encode result %d: %w", r.ID, err)
	}
	return nil
}

// Decoder читает сообщения из потока.
type Decoder struct {
	dec *gob.Decoder
}

// NewDecoder создаёт Decoder поверх r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{dec: gob.NewDecoder(r)}
}

// ReadTask читает задачу. io.EOF означает, что пул закрыл канал без задачи.
func (d *Decoder) ReadTask() (Task, error) {
	var t Task
	if err := d.dec.Decode(&t); err != nil {
		return Task{}, err
	}
	return t, nil
}

// ReadReport читает следующее сообщение worker'а.
func (d *Decoder) ReadReport() (Report, error) {
	var r Report
	if err := d.dec.Decode(&r); err != nil {
		return Report{}, err
	}
	if (r.Liveness == nil) == (r.Result == nil) {
		return Report{}, fmt.Errorf("malformed report: exactly one field expected")
	}
	return r, nil
}
