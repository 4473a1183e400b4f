package domain

import "errors"

// Ошибки доменного уровня. Сервисы их не перехватывают и не повторяют —
// они доходят до вызывающей стороны, которая отвечает за сообщение пользователю.
var (
	// ErrUnauthenticated — в контексте запроса нет идентифицированного пользователя.
	ErrUnauthenticated = errors.New("пользователь не аутентифицирован")
	// ErrPeriodNotFound — период для (год, месяц) не заведён администратором.
	ErrPeriodNotFound = errors.New("период не найден")
	// ErrNotFound — запрошенная сущность отсутствует.
	ErrNotFound = errors.New("запись не найдена")
	// ErrInvalidFormat — ссылка не похожа на issue или pull request.
	ErrInvalidFormat = errors.New("некорректный формат ссылки")
	// ErrValidation — обязательное поле пустое или значение недопустимо.
	ErrValidation = errors.New("ошибка валидации")
)
