package serialport

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const maxTraceEntries = 4096

type traceEntry struct {
	at   time.Time
	dir  string // "TX", "RX" или "--" для событий линии
	data []byte
	note string
}

// traceBuffer хранит последние события обмена.
type traceBuffer struct {
	mu      sync.Mutex
	entries []traceEntry
}

func (b *traceBuffer) add(e traceEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, e)
	if len(b.entries) > maxTraceEntries {
		b.entries = b.entries[len(b.entries)-maxTraceEntries:]
	}
}

func (b *traceBuffer) data(dir string, p []byte) {
	cp := make([]byte, len(p))
	copy(cp, p)
	b.add(traceEntry{at: time.Now(), dir: dir, data: cp})
}

func (b *traceBuffer) event(format string, args ...interface{}) {
	b.add(traceEntry{at: time.Now(), dir: "--", note: fmt.Sprintf(format, args...)})
}

// String форматирует трассу: одна строка на событие.
func (b *traceBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	var sb strings.Builder
	for _, e := range b.entries {
		sb.WriteString(e.at.Format("15:04:05.000"))
		sb.WriteByte(' ')
		sb.WriteString(e.dir)
		if e.note != "" {
			sb.WriteByte(' ')
			sb.WriteString(e.note)
		} else {
			fmt.Fprintf(&sb, " % x", e.data)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
