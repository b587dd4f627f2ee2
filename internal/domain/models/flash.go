package models

import "fmt"

// Фиксированная раскладка флеш-памяти: загрузчик, таблица разделов, приложение.
const (
	BootloaderOffset uint32 = 0x0000
	PartitionOffset  uint32 = 0x8000
	AppOffset        uint32 = 0x10000
)

// FlashRow - одна пара (смещение, образ). Смещение неизменно, меняется только образ.
type FlashRow struct {
	Offset   uint32
	Label    string // Подсказка оператору (что ожидается в строке)
	FileName string // Имя выбранного файла, если есть
	Image    []byte
}

// HasImage сообщает, загружен ли образ для строки.
func (r FlashRow) HasImage() bool {
	return len(r.Image) > 0
}

// OffsetString форматирует смещение так же, как его видит оператор.
func (r FlashRow) OffsetString() string {
	return fmt.Sprintf("0x%04X", r.Offset)
}

// DefaultLayout возвращает три строки в порядке записи.
func DefaultLayout() []FlashRow {
	return []FlashRow{
		{Offset: BootloaderOffset, Label: "bootloader.bin"},
		{Offset: PartitionOffset, Label: "partitions.bin"},
		{Offset: AppOffset, Label: "firmware.bin"},
	}
}

// RowProgress - состояние индикатора прогресса строки.
type RowProgress struct {
	Active  bool // Индикатор в "активном" состоянии
	Percent int  // 0..100
}
