package terminal

import (
	"strings"
	"sync"
)

// DefaultBufferSize - объём хранимого вывода по умолчанию.
const DefaultBufferSize = 64 << 10

// Buffer накапливает вывод в памяти, отбрасывая самое старое при
// переполнении. Используется интерактивными интерфейсами для отрисовки
// и для новых веб-клиентов.
type Buffer struct {
	mu    sync.Mutex
	cs    *Charset
	limit int
	buf   []byte
	// OnChange вызывается после каждого изменения (вне мьютекса)
	onChange func()
}

// NewBuffer создаёт буфер. limit <= 0 означает DefaultBufferSize.
func NewBuffer(cs *Charset, limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultBufferSize
	}
	return &Buffer{cs: cs, limit: limit}
}

// OnChange задаёт обработчик изменений.
func (b *Buffer) OnChange(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onChange = fn
}

func (b *Buffer) Clean() {
	b.mu.Lock()
	b.buf = b.buf[:0]
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (b *Buffer) WriteLine(line string) {
	b.append(line + "\n")
}

func (b *Buffer) Write(data string) {
	text, err := b.cs.Decode([]byte(data))
	if err != nil {
		text = data
	}
	b.append(strings.ReplaceAll(text, "\r\n", "\n"))
}

func (b *Buffer) append(text string) {
	b.mu.Lock()
	b.buf = append(b.buf, text...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	fn := b.onChange
	b.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// String возвращает накопленный текст.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

// Tail возвращает последние n строк.
func (b *Buffer) Tail(n int) []string {
	lines := strings.Split(strings.TrimRight(b.String(), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
