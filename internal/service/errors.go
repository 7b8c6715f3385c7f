package service

import "errors"

// Таксономия ошибок ядра. Все операции возвращают одну из них (обёрнутую через %w),
// HTTP-слой маппит их в коды ответов.
var (
	// ErrUnauthorized — актор не имеет права на запрошенное действие (не тот пользователь/роль)
	ErrUnauthorized = errors.New("actor is not allowed to perform this action")

	// ErrInvalidTransition — событие недопустимо для текущего статуса брони
	ErrInvalidTransition = errors.New("invalid booking transition")

	// ErrStaleState — проиграна гонка compare-and-commit, вызывающий должен перечитать запись и повторить
	ErrStaleState = errors.New("booking was modified concurrently, refetch and retry")

	// ErrValidation — некорректные данные запроса (дата, цена, enum)
	ErrValidation = errors.New("validation failed")

	// ErrNotFound — записи нет
	ErrNotFound = errors.New("record not found")

	// ErrPaymentAlreadyActive — по брони уже есть активный платёж
	ErrPaymentAlreadyActive = errors.New("an active payment already exists for this booking")

	// ErrReschedulePending — по брони уже открыты переговоры о переносе
	ErrReschedulePending = errors.New("a reschedule request is already pending for this booking")

	// ErrPaymentGateway — шлюз недоступен после всех повторов
	ErrPaymentGateway = errors.New("payment gateway error")

	// ErrExpiredHold — бронь провисела в accepted дольше hold window (внутренняя, триггерит отмену)
	ErrExpiredHold = errors.New("payment hold window expired")
)
