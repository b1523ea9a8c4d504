// Package action описывает сериализуемые действия, которые пул
// выполняет в отдельных worker-процессах.
//
// # Обзор
//
// Action — упорядоченная последовательность операций двух видов:
//
//   - Spawn — запуск внешней программы (argv), stdio привязаны к null device
//   - Call  — вызов функции из закрытого реестра по имени с примитивными аргументами
//
// Action создаётся через New и валидируется сразу, в процессе вызывающего,
// до любой передачи в очередь. Запросы на действия приходят из сети, поэтому
// это граница безопасности: в worker попадают только операции, которые
// прошли проверку.
//
//	a, err := action.New(action.Default(),
//	    action.Spawn("wget", "-O", "/tmp/episode.mp3", url),
//	    action.Call("echo", "downloaded", url),
//	)
//	if err != nil {
//	    // errors.Is(err, action.ErrValidation) == true
//	}
//
// # Реестр
//
// Registry — закрытый словарь имя → функция. Реестр по умолчанию
// заполняется из init() одного и того же бинарника, поэтому в процессе
// пула и в каждом worker он идентичен. После Freeze регистрация невозможна.
//
// # Выполнение
//
// Execute вызывается внутри worker'а. Ошибка любой операции прерывает
// последовательность и возвращается вызывающему (worker'у), который
// сообщает её пулу как failed. Паники ловит worker.
package action
