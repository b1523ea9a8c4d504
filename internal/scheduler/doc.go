// Package scheduler запускает периодические задачи сервиса.
//
// Задачи (расписание в формате robfig/cron):
//   - stats    — отчёт о статистике пула в лог (по умолчанию "@every 1m")
//   - liveness — разбор накопившихся liveness-записей ("@every 5s")
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Pool:     p,
//	    Stats:    "@every 1m",
//	    Liveness: "@every 5s",
//	    Logger:   logger,
//	})
//	sched.Start()
//	defer sched.Stop(ctx)
package scheduler
