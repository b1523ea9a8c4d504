// Package mq связывает сервис с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим переподключением
//   - topology.go   — exchanges, queues, bindings
//   - publisher.go  — публикация событий
//   - consumer.go   — потребление запросов на действия
//
// Типы сообщений:
//   - action.requested — запрос на выполнение действия (action, url, signature)
//   - action.finished  — action классифицирован пулом (ok/failed/aborted/skipped)
//
// Очереди — транспорт запросов и журнал событий; состояние пула
// в RabbitMQ не хранится.
package mq
