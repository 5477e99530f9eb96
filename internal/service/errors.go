// Package service реализует основную логику: машина состояний визовой
// заявки, журнал платежей, чат с уведомлениями и приём документов.
package service

import "errors"

// Операционная таксономия ошибок. Handlers переводят их в HTTP-статусы;
// всё остальное — внутренняя ошибка (500).
var (
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate limited")
)
