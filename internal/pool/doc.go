// Package pool реализует Action Pool — пул worker-процессов с admission control.
//
// # Обзор
//
// Пул держит ровно Processes worker-процессов и не более MaxActiveOrPending
// action "в полёте" (выполняются + ждут в очереди). Каждый action получает
// как минимум AllowAbortAfter на выполнение; только после этого он может
// быть принудительно остановлен, и только когда его слот нужен новому action.
//
// # Каналы
//
//   - inbound  — задачи wire.Task от PushAction к worker'ам (ёмкость M)
//   - liveness — записи (id, pid, start) от worker'ов к пулу
//
// Каждый worker — отдельный OS-процесс (тот же бинарник, команда "worker"),
// выполняющий ровно одну задачу. Слот пула после завершения worker'а
// запускает замену, так что число процессов восстанавливается само.
//
// # Жизненный цикл
//
//	INIT ──Start──▶ STARTED ──Stop──▶ STOPPED ──Start──▶ STARTED
//
// Вызов операции в неверном состоянии логируется и ничего не делает.
//
// # Классификация
//
//   - ok      — worker вернул ExitCode 0
//   - failed  — код action вернул ошибку или panic
//   - aborted — пул остановил action (grace period истёк, остановка пула)
//   - skipped — PushAction отклонён: пул переполнен (backpressure)
//
// Списки id по статусам не очищаются за время жизни пула (см. Statistic).
//
// # Потоки
//
// Всё изменяемое состояние (pending, inFlight, счётчики) защищено одним
// мьютексом. Колбэки завершения вызываются из горутин слотов.
// Listener вызывается вне мьютекса.
package pool
