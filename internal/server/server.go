// Package server - веб-интерфейс: REST для действий оператора и websocket
// для терминала и состояния.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
	"serialflash/internal/infrastructure/image"
	"serialflash/internal/infrastructure/terminal"
	"serialflash/internal/ui/viewmodel"
)

const maxUploadSize = image.MaxImageSize

// Controller - действия оператора, доступные веб-интерфейсу.
type Controller interface {
	ViewModel() *viewmodel.MainViewModel
	SetOnUpdate(func())
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Trace()
	Reset(ctx context.Context) error
	Erase(ctx context.Context) error
	Program(ctx context.Context) error
	StartConsole(ctx context.Context, baudRate int) error
	StopConsole(ctx context.Context) error
	WriteConsole(p []byte) error
	SetImage(row int, fileName string, data []byte) error
	ClearFile(row int) error
}

// PortLister перечисляет порты системы.
type PortLister interface {
	GetSystemPorts() ([]models.DeviceHandle, error)
}

// Deps - зависимости сервера.
type Deps struct {
	Controller Controller
	Hub        *Hub
	Terminal   *terminal.Buffer // история вывода для новых клиентов
	Ports      PortLister       // может быть nil
	History    ports.HistoryRepository
	Charset    *terminal.Charset
	Logger     ports.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server обслуживает HTTP и websocket.
type Server struct {
	mux     *http.ServeMux
	ctx     context.Context
	ctrl    Controller
	hub     *Hub
	term    *terminal.Buffer
	ports   PortLister
	history ports.HistoryRepository
	cs      *terminal.Charset
	log     ports.Logger
}

// New создаёт сервер. ctx ограничивает время жизни фоновых действий.
func New(ctx context.Context, deps Deps) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		ctx:     ctx,
		ctrl:    deps.Controller,
		hub:     deps.Hub,
		term:    deps.Terminal,
		ports:   deps.Ports,
		history: deps.History,
		cs:      deps.Charset,
		log:     deps.Logger.Named("server"),
	}
	s.ctrl.SetOnUpdate(s.broadcastState)
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/state", s.handleState)
	s.mux.HandleFunc("GET /api/ports", s.handlePorts)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)

	s.mux.HandleFunc("POST /api/connect", s.async("connect", s.ctrl.Connect))
	s.mux.HandleFunc("POST /api/disconnect", s.async("disconnect", s.ctrl.Disconnect))
	s.mux.HandleFunc("POST /api/erase", s.async("erase", s.ctrl.Erase))
	s.mux.HandleFunc("POST /api/program", s.async("program", s.ctrl.Program))
	s.mux.HandleFunc("POST /api/reset", s.async("reset", s.ctrl.Reset))
	s.mux.HandleFunc("POST /api/trace", s.handleTrace)
	s.mux.HandleFunc("POST /api/console/start", s.handleConsoleStart)
	s.mux.HandleFunc("POST /api/console/stop", s.async("console-stop", s.ctrl.StopConsole))

	s.mux.HandleFunc("PUT /api/rows/{row}", s.handleUpload)
	s.mux.HandleFunc("DELETE /api/rows/{row}", s.handleClearRow)

	s.mux.HandleFunc("GET /ws", s.handleWS)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "clients": s.hub.Clients()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.ViewModel().Snapshot())
}

func (s *Server) handlePorts(w http.ResponseWriter, r *http.Request) {
	if s.ports == nil {
		writeJSON(w, http.StatusOK, []models.DeviceHandle{})
		return
	}
	list, err := s.ports.GetSystemPorts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSON(w, http.StatusOK, []*models.FlashRecord{})
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		limit = n
	}
	records, err := s.history.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Trace()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConsoleStart(w http.ResponseWriter, r *http.Request) {
	baud := 0
	if raw := r.URL.Query().Get("baud"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, errors.New("invalid baud rate"))
			return
		}
		baud = n
	}
	s.async("console", func(ctx context.Context) error {
		return s.ctrl.StartConsole(ctx, baud)
	})(w, r)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	row, err := rowIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "image.bin"
	}

	img, err := image.Read(name, http.MaxBytesReader(w, r.Body, maxUploadSize+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.SetImage(row, img.FileName, img.Data); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"row": row + 1, "name": img.FileName, "size": len(img.Data)})
}

func (s *Server) handleClearRow(w http.ResponseWriter, r *http.Request) {
	row, err := rowIndex(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.ctrl.ClearFile(row); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// async запускает действие в фоне и сразу отвечает идентификатором задания.
// Итог приходит клиентам событием "job".
func (s *Server) async(op string, fn func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		go func() {
			res := &JobResult{ID: id, Op: op}
			if err := fn(s.ctx); err != nil {
				res.Error = err.Error()
			}
			s.hub.Broadcast(Event{Type: "job", Job: res})
		}()
		writeJSON(w, http.StatusAccepted, map[string]string{"job": id, "op": op})
	}
}

func (s *Server) broadcastState() {
	v := s.ctrl.ViewModel().Snapshot()
	s.hub.Broadcast(Event{Type: "state", State: &v})
}

// inputMsg - ввод оператора в консоль.
type inputMsg struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("ws: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	id, events, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()
	s.log.Debug("ws: client %s connected", id)

	// Сначала состояние и накопленный вывод
	v := s.ctrl.ViewModel().Snapshot()
	if err := conn.WriteJSON(Event{Type: "state", State: &v}); err != nil {
		return
	}
	if s.term != nil {
		if replay := s.term.String(); replay != "" {
			if err := conn.WriteJSON(Event{Type: "line", Data: replay}); err != nil {
				return
			}
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg inputMsg
			if err := conn.ReadJSON(&msg); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.log.Debug("ws: read from %s: %v", id, err)
				}
				return
			}
			if msg.Type != "input" {
				continue
			}
			data, err := s.cs.Encode(msg.Data)
			if err != nil {
				s.log.Warn("ws: encode input: %v", err)
				continue
			}
			if err := s.ctrl.WriteConsole(data); err != nil {
				s.log.Debug("ws: console input dropped: %v", err)
			}
		}
	}()

	for {
		select {
		case <-done:
			s.log.Debug("ws: client %s disconnected", id)
			return
		case <-s.ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(ev); err != nil {
				s.log.Debug("ws: write to %s: %v", id, err)
				return
			}
		}
	}
}

func rowIndex(r *http.Request) (int, error) {
	n, err := strconv.Atoi(r.PathValue("row"))
	if err != nil || n < 1 {
		return 0, errors.New("row must be a positive number")
	}
	return n - 1, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

