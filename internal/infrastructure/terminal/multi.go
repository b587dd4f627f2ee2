package terminal

import (
	"sync"

	"serialflash/internal/domain/ports"
)

// Multi рассылает вывод нескольким получателям. Получателей можно
// добавлять и удалять во время работы.
type Multi struct {
	mu    sync.RWMutex
	sinks map[int]ports.OutputSink
	next  int
}

// NewMulti создаёт рассылку с начальными получателями.
func NewMulti(sinks ...ports.OutputSink) *Multi {
	m := &Multi{sinks: make(map[int]ports.OutputSink)}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add добавляет получателя и возвращает функцию его удаления.
func (m *Multi) Add(s ports.OutputSink) (remove func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.next
	m.next++
	m.sinks[id] = s
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.sinks, id)
	}
}

func (m *Multi) each(fn func(ports.OutputSink)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	// порядок добавления
	for id := 0; id < m.next; id++ {
		if s, ok := m.sinks[id]; ok {
			fn(s)
		}
	}
}

func (m *Multi) Clean()                { m.each(func(s ports.OutputSink) { s.Clean() }) }
func (m *Multi) WriteLine(line string) { m.each(func(s ports.OutputSink) { s.WriteLine(line) }) }
func (m *Multi) Write(data string)     { m.each(func(s ports.OutputSink) { s.Write(data) }) }
