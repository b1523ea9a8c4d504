// Package cli реализует клиентские команды Feedactions.
//
// # Client
//
// HTTP-клиент для API сервиса. Типы ответов продублированы здесь,
// CLI не импортирует internal/api.
//
//	client := cli.NewClient("http://localhost:8080")
//	stats, err := client.Stats()
//
// # Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Статусы action подсвечиваются цветом (fatih/color), цвет отключается
// автоматически, если stdout не терминал. Данные идут в stdout,
// сообщения в stderr: feedactions stats --json | jq .
//
// # Commands
//
//   - push ACTION URL — подписать и отправить запрос (HTTP или RabbitMQ)
//   - sign ACTION URL — вывести подпись для ссылки
//   - stats, history, catalog — чтение состояния сервиса
//
// Команды создаются фабриками, принимающими clientFn и outputFn:
// Client и Output создаются лениво, после разбора PersistentFlags.
package cli
