package console

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/golang/mock/gomock"

	"serialflash/internal/domain/ports/mocks"
	"serialflash/internal/infrastructure/logger"
)

// scriptedStream отдаёт заранее заданные порции, затем io.EOF.
type scriptedStream struct {
	chunks []string
	err    error
	calls  int
	onRead func(call int)
}

func (s *scriptedStream) Next() ([]byte, error) {
	s.calls++
	if s.onRead != nil {
		s.onRead(s.calls)
	}
	if len(s.chunks) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return []byte(c), nil
}

type recordingSink struct {
	writes []string
}

func (r *recordingSink) Clean()                {}
func (r *recordingSink) WriteLine(text string) { r.writes = append(r.writes, text+"\n") }
func (r *recordingSink) Write(text string)     { r.writes = append(r.writes, text) }

func TestStreamForwardsChunksInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	stream := &scriptedStream{chunks: []string{"AT\r\n", "OK\r\n"}}
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().RawRead().Return(stream).Times(3)

	sink := &recordingSink{}
	err := NewService(logger.Nop()).Stream(context.Background(), transport, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.writes) != 2 || sink.writes[0] != "AT\r\n" || sink.writes[1] != "OK\r\n" {
		t.Errorf("forwarded %q, want [AT\\r\\n OK\\r\\n]", sink.writes)
	}
}

func TestStreamCancelledBeforeStart(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	transport := mocks.NewMockTransport(ctrl)
	// RawRead не должен вызываться

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	if err := NewService(logger.Nop()).Stream(ctx, transport, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.writes) != 0 {
		t.Errorf("expected no output, got %q", sink.writes)
	}
}

func TestStreamInFlightChunkSurvivesCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := &scriptedStream{
		chunks: []string{"first", "second", "third"},
		// Отмена приходит, пока второе чтение "в полёте"
		onRead: func(call int) {
			if call == 2 {
				cancel()
			}
		},
	}
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().RawRead().Return(stream).Times(2)

	sink := &recordingSink{}
	if err := NewService(logger.Nop()).Stream(ctx, transport, sink); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.writes) != 2 || sink.writes[1] != "second" {
		t.Errorf("forwarded %q, want [first second]", sink.writes)
	}
	if stream.calls != 2 {
		t.Errorf("stream read %d times, want 2", stream.calls)
	}
}

func TestStreamReadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	readErr := errors.New("input/output error")
	stream := &scriptedStream{chunks: []string{"boot"}, err: readErr}
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().RawRead().Return(stream).Times(2)

	sink := &recordingSink{}
	err := NewService(logger.Nop()).Stream(context.Background(), transport, sink)
	if !errors.Is(err, readErr) {
		t.Fatalf("error = %v, want %v", err, readErr)
	}
	if len(sink.writes) != 1 {
		t.Errorf("forwarded %q, want [boot]", sink.writes)
	}
}

func TestStreamReadErrorAfterCancelIsSilent(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ctx, cancel := context.WithCancel(context.Background())
	stream := &scriptedStream{
		err: errors.New("port has been closed"),
		onRead: func(int) {
			// Так выглядит остановка консоли: порт закрыт во время чтения
			cancel()
		},
	}
	transport := mocks.NewMockTransport(ctrl)
	transport.EXPECT().RawRead().Return(stream).Times(1)

	if err := NewService(logger.Nop()).Stream(ctx, transport, &recordingSink{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
