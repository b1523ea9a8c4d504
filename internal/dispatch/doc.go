// Package dispatch принимает запросы на действия из сети и передаёт их пулу.
//
// Порядок проверок:
//
//  1. Подпись запроса (HMAC от имени действия и URL) — ErrBadSignature
//  2. Действие есть в каталоге — catalog.ErrUnknownAction
//  3. Action строится и проходит проверку реестра — action.ErrValidation
//  4. Пул принимает action — иначе ErrRejected ("попробуйте позже")
//
// Все проверки выполняются в процессе сервера до передачи action worker'у.
// Ошибка самого action видна позже: в статистике пула и журнале.
package dispatch
