// Package journal сохраняет итоги action вне горячего пути пула.
//
// Пул вызывает слушателя из своих горутин, поэтому Journal только кладёт
// запись в ограниченный буфер. Фоновая горутина раздаёт записи приёмникам
// (PostgreSQL, RabbitMQ). При переполнении буфера запись теряется
// с предупреждением в логе: журнал не должен тормозить пул.
package journal
