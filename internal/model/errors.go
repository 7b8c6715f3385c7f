package model

import "errors"

// Ошибки валидации данных модели. Сервисный слой оборачивает их в ErrValidation.
var (
	ErrScheduleTooSoon = errors.New("scheduled time must be at least 1 hour ahead")
	ErrScheduleTooFar  = errors.New("scheduled time must be at most 1 year ahead")
)
