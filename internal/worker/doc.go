// Package worker — код, выполняемый внутри worker-процесса пула.
//
// # Обзор
//
// Worker-процесс — это тот же бинарник, запущенный скрытой командой
// "feedactions worker". Пул пишет в его stdin ровно одну задачу
// (wire.Task) и закрывает канал; worker читает ответ из stdout.
//
// Жизненный цикл одного запуска:
//
//  1. Прочитать wire.Task из stdin
//  2. Сразу записать wire.Liveness{ID, PID, StartedAt} в stdout
//  3. Восстановить action через action.FromSpec (повторная проверка реестра)
//  4. Выполнить action, перехватив panic
//  5. Записать wire.Result{ID, ExitCode, Error} и завершиться
//
// Liveness отправляется до выполнения: пул не знает заранее, какой
// OS-процесс взял какую задачу, а убить процесс без pid нельзя.
//
// # Ошибки
//
// Ошибка или panic внутри action — это результат (ExitCode = -1),
// а не ошибка Run. Run возвращает ошибку только при сбое протокола:
// нет задачи (ErrNoTask) или не удалось прочитать/записать сообщение
// (ErrProtocol). Логи пишутся в stderr, stdout занят протоколом.
package worker
