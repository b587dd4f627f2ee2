package ports

import (
	"context"

	"serialflash/internal/domain/models"
)

// Programmer определяет интерфейс загрузчика микроконтроллера.
// Протокол обмена с чипом реализуется вне ядра; ядро только вызывает эти методы.
type Programmer interface {
	// Main выполняет рукопожатие и возвращает идентификатор чипа.
	Main(ctx context.Context) (models.ChipIdentity, error)

	// EraseFlash стирает всю флеш-память чипа.
	EraseFlash(ctx context.Context) error

	// WriteFlash записывает набор образов строго в порядке opts.Files.
	WriteFlash(ctx context.Context, opts FlashOptions) error

	// After перезапускает чип для загрузки записанного образа.
	After(ctx context.Context) error
}

// Simulator реализуют программаторы, которые не записывают данные в чип.
type Simulator interface {
	Simulated() bool
}

// LoaderOptions - параметры создания программатора поверх транспорта.
type LoaderOptions struct {
	Transport    Transport
	BaudRate     int
	Terminal     OutputSink
	DebugLogging bool
}

// ProgrammerFactory создаёт программатор для сессии.
type ProgrammerFactory func(opts LoaderOptions) (Programmer, error)

// FlashFile - один образ задания прошивки.
type FlashFile struct {
	Data    []byte
	Address uint32
}

// ProgressFunc получает прогресс записи образа с индексом fileIndex.
type ProgressFunc func(fileIndex int, written int, total int)

// ChecksumFunc вычисляет контрольную сумму образа для проверки после записи.
type ChecksumFunc func(image []byte) string

// FlashOptions - задание прошивки.
type FlashOptions struct {
	Files             []FlashFile
	EraseAll          bool
	Compress          bool
	ReportProgress    ProgressFunc
	CalculateChecksum ChecksumFunc
}
