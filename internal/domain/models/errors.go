package models

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy - необратимая операция уже выполняется.
	ErrBusy = errors.New("operation already in progress")
	// ErrNotConnected - операция требует режима программирования.
	ErrNotConnected = errors.New("not connected to a chip")
	// ErrInvalidTransition - запрошен вход в режим не из Disconnected.
	ErrInvalidTransition = errors.New("session is already active")
	// ErrNoDeviceSelected - оператор не выбрал устройство.
	ErrNoDeviceSelected = errors.New("no port selected by the user")
)

// AcquisitionError - не удалось получить доступ к устройству.
type AcquisitionError struct {
	Port string
	Err  error
}

func (e *AcquisitionError) Error() string {
	if e.Port == "" {
		return fmt.Sprintf("failed to acquire device: %v", e.Err)
	}
	return fmt.Sprintf("failed to acquire device %s: %v", e.Port, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// HandshakeError - загрузчик не ответил или ответил не по протоколу.
type HandshakeError struct {
	Err error
}

func (e *HandshakeError) Error() string {
	return e.Err.Error()
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// ValidationError - для строки не выбран файл. Row нумеруется с 1.
type ValidationError struct {
	Row int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("No file selected for row %d!", e.Row)
}

// WriteError - сбой записи во время прошивки. Устройство может быть записано частично.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return e.Err.Error()
}

func (e *WriteError) Unwrap() error { return e.Err }

// TeardownError - ошибка отключения транспорта. Состояние сессии при этом уже сброшено.
type TeardownError struct {
	Err error
}

func (e *TeardownError) Error() string {
	return fmt.Sprintf("disconnect: %v", e.Err)
}

func (e *TeardownError) Unwrap() error { return e.Err }
