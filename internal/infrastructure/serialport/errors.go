package serialport

import (
	"errors"

	"go.bug.st/serial"
)

// isClosed сообщает, что порт закрыт (штатно или устройство отключено).
func isClosed(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortClosed, serial.PortNotFound, serial.InvalidSerialPort:
			return true
		}
	}
	return false
}

// IsAccessError сообщает, что порт занят или нет прав доступа.
func IsAccessError(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortBusy, serial.PermissionDenied:
			return true
		}
	}
	return false
}
