package flash

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"serialflash/internal/domain/models"
	"serialflash/internal/domain/ports"
)

// Service управляет заданием прошивки: проверка строк, сборка задания,
// запись через программатор, перезапуск чипа.
type Service struct {
	log      ports.Logger
	checksum ports.ChecksumFunc
	history  ports.HistoryRepository
	now      func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithChecksum задаёт функцию контрольной суммы образа (по умолчанию MD5).
func WithChecksum(fn ports.ChecksumFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.checksum = fn
		}
	}
}

// WithHistory включает запись истории прошивок.
func WithHistory(repo ports.HistoryRepository) Option {
	return func(s *Service) {
		s.history = repo
	}
}

// NewService создает новый экземпляр сервиса прошивки
func NewService(log ports.Logger, opts ...Option) *Service {
	s := &Service{
		log:      log,
		checksum: MD5Hex,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MD5Hex - контрольная сумма образа по умолчанию.
func MD5Hex(image []byte) string {
	sum := md5.Sum(image)
	return hex.EncodeToString(sum[:])
}

// Validate проверяет, что для каждой строки выбран образ.
// Возвращает ошибку для первой строки без данных (нумерация с 1).
func Validate(rows []models.FlashRow) error {
	for i, row := range rows {
		if !row.HasImage() {
			return &models.ValidationError{Row: i + 1}
		}
	}
	return nil
}

// BuildJob собирает задание в порядке строк раскладки.
// Полное стирание здесь не выполняется: строки задают только области записи.
func BuildJob(rows []models.FlashRow, progress ports.ProgressFunc, checksum ports.ChecksumFunc) ports.FlashOptions {
	files := make([]ports.FlashFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, ports.FlashFile{Data: row.Image, Address: row.Offset})
	}
	return ports.FlashOptions{
		Files:             files,
		EraseAll:          false,
		Compress:          true,
		ReportProgress:    progress,
		CalculateChecksum: checksum,
	}
}

// Target - программатор и сведения о сессии для истории.
type Target struct {
	Programmer ports.Programmer
	PortName   string
	Chip       models.ChipIdentity
}

// Flash проверяет строки и записывает их. Ошибка проверки возвращается до
// любого обмена с устройством. Ошибка записи прерывает оставшиеся строки.
// Индикаторы прогресса возвращаются в исходное состояние в любом случае.
func (s *Service) Flash(ctx context.Context, rows []models.FlashRow, target Target, sink ProgressSink) error {
	if err := Validate(rows); err != nil {
		return err
	}
	if sink == nil {
		sink = NopProgress{}
	}

	rec := &models.FlashRecord{
		ID:        uuid.NewString(),
		PortName:  target.PortName,
		Chip:      target.Chip,
		StartedAt: s.now(),
	}
	for _, row := range rows {
		rec.Images = append(rec.Images, models.FlashedImage{
			Offset:   row.Offset,
			FileName: row.FileName,
			Size:     len(row.Image),
			Checksum: s.checksum(row.Image),
		})
	}

	t := newTracker(len(rows), sink)
	sink.Begin(len(rows))
	defer sink.End()

	s.log.Info("flash job %s: %d images", rec.ID, len(rows))
	err := s.write(ctx, rows, target.Programmer, t)

	rec.FinishedAt = s.now()
	rec.Outcome = models.OutcomeSuccess
	if sim, ok := target.Programmer.(ports.Simulator); ok && sim.Simulated() {
		rec.Outcome = models.OutcomeSimulated
	}
	if err != nil {
		rec.Outcome = models.OutcomeFailed
		rec.Error = err.Error()
		s.log.Error("flash job %s failed: %v", rec.ID, err)
	} else {
		s.log.Info("flash job %s done in %s", rec.ID, rec.FinishedAt.Sub(rec.StartedAt))
	}
	s.saveHistory(ctx, rec)

	return err
}

func (s *Service) write(ctx context.Context, rows []models.FlashRow, prog ports.Programmer, t *tracker) error {
	job := BuildJob(rows, t.report, s.checksum)
	if err := prog.WriteFlash(ctx, job); err != nil {
		return &models.WriteError{Err: err}
	}
	t.complete()

	if err := prog.After(ctx); err != nil {
		return &models.WriteError{Err: err}
	}
	return nil
}

func (s *Service) saveHistory(ctx context.Context, rec *models.FlashRecord) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, rec); err != nil {
		s.log.Warn("flash history: %v", err)
	}
}
