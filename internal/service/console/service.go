package console

import (
	"context"
	"errors"
	"io"

	"serialflash/internal/domain/ports"
)

// Service реализует цикл чтения консоли устройства.
type Service struct {
	log ports.Logger
}

// NewService создает новый экземпляр сервиса консоли
func NewService(log ports.Logger) *Service {
	return &Service{log: log}
}

// Stream пересылает порции из транспорта в out, пока поток не закончится
// или не будет отменён ctx. Отмена проверяется один раз в начале итерации:
// порция, уже полученная к моменту отмены, всё равно пересылается.
//
// Естественное завершение потока не считается ошибкой.
func (s *Service) Stream(ctx context.Context, transport ports.Transport, out ports.OutputSink) error {
	for {
		if ctx.Err() != nil {
			s.log.Debug("console cancelled")
			return nil
		}

		chunk, err := transport.RawRead().Next()
		if len(chunk) > 0 {
			out.Write(string(chunk))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				s.log.Debug("quitting console")
				return nil
			}
			return err
		}
		if len(chunk) == 0 {
			s.log.Debug("quitting console: empty chunk")
			return nil
		}
	}
}
