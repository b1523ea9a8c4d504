// Package domain содержит общие типы, которыми обмениваются пул,
// журнал, метрики и транспортные адаптеры (HTTP, RabbitMQ, Postgres).
package domain
