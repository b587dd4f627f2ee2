package ports

// Logger определяет интерфейс логирования сервисов.
// Сообщения форматируются в стиле Printf.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	// Fatal выводит критическую ошибку и завершает программу
	Fatal(msg string, args ...interface{})

	// Named возвращает логгер с меткой компонента ("session", "console", ...)
	Named(component string) Logger
}
