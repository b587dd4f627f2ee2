package server

import (
	"sync"

	"github.com/google/uuid"

	"serialflash/internal/domain/models"
	"serialflash/internal/infrastructure/terminal"
	"serialflash/internal/ui/viewmodel"
)

const clientQueue = 256

// Event - сообщение веб-клиенту.
type Event struct {
	Type  string                `json:"type"` // clean, line, output, state, job, ports
	Data  string                `json:"data,omitempty"`
	State *viewmodel.MainView   `json:"state,omitempty"`
	Job   *JobResult            `json:"job,omitempty"`
	Ports []models.DeviceHandle `json:"ports,omitempty"`
}

// JobResult - итог фонового действия.
type JobResult struct {
	ID    string `json:"id"`
	Op    string `json:"op"`
	Error string `json:"error,omitempty"`
}

type client struct {
	id     string
	events chan Event
}

// Hub рассылает вывод терминала и состояние подключённым клиентам.
// Реализует ports.OutputSink. Медленный клиент теряет события, но не
// задерживает сессию.
type Hub struct {
	cs *terminal.Charset

	mu      sync.RWMutex
	clients map[string]*client
}

// NewHub создаёт рассылку. cs перекодирует вывод устройства.
func NewHub(cs *terminal.Charset) *Hub {
	return &Hub{cs: cs, clients: make(map[string]*client)}
}

// Subscribe регистрирует клиента.
func (h *Hub) Subscribe() (id string, events <-chan Event, unsubscribe func()) {
	c := &client{id: uuid.NewString(), events: make(chan Event, clientQueue)}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	return c.id, c.events, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.clients[c.id]; ok {
			delete(h.clients, c.id)
			close(c.events)
		}
	}
}

// Clients возвращает число подключённых клиентов.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast отправляет событие всем клиентам.
func (h *Hub) Broadcast(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.events <- ev:
		default:
		}
	}
}

func (h *Hub) Clean() {
	h.Broadcast(Event{Type: "clean"})
}

func (h *Hub) WriteLine(line string) {
	h.Broadcast(Event{Type: "line", Data: line})
}

func (h *Hub) Write(data string) {
	text, err := h.cs.Decode([]byte(data))
	if err != nil {
		text = data
	}
	h.Broadcast(Event{Type: "output", Data: text})
}
