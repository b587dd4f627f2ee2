// Package terminal содержит реализации ports.OutputSink.
package terminal

import (
	"io"
	"sync"
)

// ansiReset очищает экран и возвращает курсор в начало.
const ansiReset = "\x1b[2J\x1b[H"

// WriterSink выводит текст в io.Writer (обычно stdout) с перекодированием
// вывода устройства.
type WriterSink struct {
	mu      sync.Mutex
	w       io.Writer
	decoded io.Writer
	ansi    bool
}

// NewWriterSink создаёт sink. Если ansi=true, Clean очищает экран
// escape-последовательностью.
func NewWriterSink(w io.Writer, cs *Charset, ansi bool) *WriterSink {
	return &WriterSink{w: w, decoded: cs.NewDecodingWriter(w), ansi: ansi}
}

// Clean сбрасывает терминал.
func (s *WriterSink) Clean() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ansi {
		io.WriteString(s.w, ansiReset)
	}
}

// WriteLine выводит служебную строку (текст приложения уже в UTF-8).
func (s *WriterSink) WriteLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.w, line+"\r\n")
}

// Write выводит необработанный вывод устройства.
func (s *WriterSink) Write(data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.WriteString(s.decoded, data)
}
