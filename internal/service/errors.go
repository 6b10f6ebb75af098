package service

import (
	"errors"
	"fmt"
)

// ErrorKind вид ошибки бронирования
type ErrorKind string

const (
	KindInvalidInput      ErrorKind = "invalid_input"
	KindDateOutOfRange    ErrorKind = "date_out_of_range"
	KindSlotNotFound      ErrorKind = "slot_not_found"
	KindSlotFull          ErrorKind = "slot_full"
	KindDuplicateBooking  ErrorKind = "duplicate_booking"
	KindCapacityExceeded  ErrorKind = "capacity_exceeded"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindForbidden         ErrorKind = "forbidden"
	KindNotFound          ErrorKind = "not_found"
	KindStorageFailure    ErrorKind = "storage_failure"
)

// storageFailureMessage единственное, что видит клиент при сбое хранилища
const storageFailureMessage = "An error occurred while processing your request. Please try again."

// BookingError ошибка ядра бронирования с видом и сообщением для пользователя
type BookingError struct {
	Kind    ErrorKind
	Message string
	Err     error // внутренняя причина, наружу не отдаётся
}

func (e *BookingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

// Is сравнивает по виду, чтобы работало errors.Is(err, ErrSlotFull)
func (e *BookingError) Is(target error) bool {
	t, ok := target.(*BookingError)
	return ok && t.Kind == e.Kind
}

// Сентинелы для errors.Is
var (
	ErrInvalidInput      = &BookingError{Kind: KindInvalidInput}
	ErrDateOutOfRange    = &BookingError{Kind: KindDateOutOfRange}
	ErrSlotNotFound      = &BookingError{Kind: KindSlotNotFound}
	ErrSlotFull          = &BookingError{Kind: KindSlotFull}
	ErrDuplicateBooking  = &BookingError{Kind: KindDuplicateBooking}
	ErrCapacityExceeded  = &BookingError{Kind: KindCapacityExceeded}
	ErrInvalidTransition = &BookingError{Kind: KindInvalidTransition}
	ErrForbidden         = &BookingError{Kind: KindForbidden}
	ErrNotFound          = &BookingError{Kind: KindNotFound}
	ErrStorageFailure    = &BookingError{Kind: KindStorageFailure}
)

func newError(kind ErrorKind, format string, args ...interface{}) *BookingError {
	return &BookingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func storageFailure(err error) *BookingError {
	return &BookingError{Kind: KindStorageFailure, Message: storageFailureMessage, Err: err}
}

// KindOf возвращает вид ошибки; всё неизвестное считается сбоем хранилища
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var be *BookingError
	if errors.As(err, &be) {
		return be.Kind
	}
	return KindStorageFailure
}

// PublicMessage сообщение для конечного пользователя без внутренних деталей
func PublicMessage(err error) string {
	var be *BookingError
	if errors.As(err, &be) && be.Kind != KindStorageFailure && be.Message != "" {
		return be.Message
	}
	return storageFailureMessage
}
