// Package telemetry обеспечивает наблюдаемость сервиса.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики пула
//
// Процессы пула пишут логи в stderr: их stdout занят протоколом.
package telemetry
