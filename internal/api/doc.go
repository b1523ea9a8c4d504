// Package api содержит HTTP API сервиса.
//
// Структура:
//   - handler.go        — Handler с зависимостями (dispatcher, пул, журнал)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — logging, recovery
//   - response.go       — JSON-ответы и перевод ошибок в статусы
//   - action_handler.go — обработчики /actions
//
// Маршруты:
//
//	POST /api/v1/actions          — запрос на действие (JSON)
//	GET  /api/v1/actions/link     — то же по подписанной ссылке (?a=&url=&s=)
//	GET  /api/v1/actions/stats    — статистика пула
//	GET  /api/v1/actions/history  — журнал (если подключена БД)
//	GET  /api/v1/actions/catalog  — доступные действия
package api
