// Package config загружает конфигурацию сервиса.
//
// Порядок: значения по умолчанию, затем YAML-файл (если задан),
// затем переменные окружения. Итог проверяется Validate.
//
// Переменные окружения:
//   - HTTP_ADDR, DB_URL, RABBITMQ_URL, ACTION_SECRET
//   - POOL_PROCESSES, POOL_MAX_ACTIVE_OR_PENDING, POOL_ALLOW_ABORT_AFTER
package config
