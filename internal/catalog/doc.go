// Package catalog описывает именованные действия пользователя над элементами ленты.
//
// Каждое определение (Definition) превращается в проверенный action.Action
// для конкретного URL: скачать вложение (wget или встроенный download),
// открыть его (xdg-open, mpv) или выполнить команду на удалённой машине по ssh.
//
// В шаблонах команд подстрока {url} заменяется на URL, из которого
// предварительно удалены кавычки и обратные слеши.
package catalog
