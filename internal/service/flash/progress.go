package flash

import "sync"

// ProgressSink - индикаторы прогресса строк в представлении.
type ProgressSink interface {
	// Begin переводит индикаторы в активное состояние с нулевым прогрессом
	Begin(rows int)
	// Update сообщает процент (0..100) для строки row (с нуля)
	Update(row int, percent int)
	// End возвращает индикаторы в исходное состояние. Вызывается всегда.
	End()
}

// NopProgress - приёмник прогресса, который ничего не делает.
type NopProgress struct{}

func (NopProgress) Begin(int)       {}
func (NopProgress) Update(int, int) {}
func (NopProgress) End()            {}

// tracker переводит байты в проценты и не даёт прогрессу строки убывать.
type tracker struct {
	mu   sync.Mutex
	last []int
	sink ProgressSink
}

func newTracker(rows int, sink ProgressSink) *tracker {
	return &tracker{last: make([]int, rows), sink: sink}
}

// Percent переводит (written, total) в 0..100. Пока total неизвестен - 0.
func Percent(written, total int) int {
	if total <= 0 || written <= 0 {
		return 0
	}
	if written >= total {
		return 100
	}
	return int(int64(written) * 100 / int64(total))
}

func (t *tracker) report(row, written, total int) {
	if row < 0 || row >= len(t.last) {
		return
	}
	t.set(row, Percent(written, total))
}

// complete отмечает все строки завершёнными.
func (t *tracker) complete() {
	for row := range t.last {
		t.set(row, 100)
	}
}

func (t *tracker) set(row, pct int) {
	t.mu.Lock()
	if pct <= t.last[row] {
		t.mu.Unlock()
		return
	}
	t.last[row] = pct
	t.mu.Unlock()
	t.sink.Update(row, pct)
}
