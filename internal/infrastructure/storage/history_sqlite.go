package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"serialflash/internal/domain/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteHistory хранит историю прошивок в SQLite.
type SQLiteHistory struct {
	db *sql.DB
}

// OpenHistory открывает (или создаёт) базу истории и применяет миграции.
func OpenHistory(path string) (*SQLiteHistory, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// SQLite допускает одного писателя
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteHistory{db: db}, nil
}

func migrate(db *sql.DB) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	for _, e := range entries {
		script, err := migrationsFS.ReadFile("migrations/" + e.Name())
		if err != nil {
			return fmt.Errorf("read migration %s: %w", e.Name(), err)
		}
		if _, err := db.Exec(string(script)); err != nil {
			return fmt.Errorf("apply migration %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Save записывает задание и его образы в одной транзакции.
func (h *SQLiteHistory) Save(ctx context.Context, rec *models.FlashRecord) error {
	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO flash_jobs (id, port_name, chip, outcome, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.PortName, string(rec.Chip), string(rec.Outcome), rec.Error,
		rec.StartedAt.UTC(), rec.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert job %s: %w", rec.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM flash_images WHERE job_id = ?`, rec.ID); err != nil {
		return fmt.Errorf("reset images of %s: %w", rec.ID, err)
	}
	for i, img := range rec.Images {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO flash_images (job_id, position, flash_offset, file_name, size, checksum)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rec.ID, i, img.Offset, img.FileName, img.Size, img.Checksum)
		if err != nil {
			return fmt.Errorf("insert image %d of %s: %w", i, rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// List возвращает последние задания, новые - первыми. limit <= 0 - все.
func (h *SQLiteHistory) List(ctx context.Context, limit int) ([]*models.FlashRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, port_name, chip, outcome, error, started_at, finished_at
		 FROM flash_jobs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var records []*models.FlashRecord
	for rows.Next() {
		var (
			rec           models.FlashRecord
			chip, outcome string
		)
		if err := rows.Scan(&rec.ID, &rec.PortName, &chip, &outcome, &rec.Error, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		rec.Chip = models.ChipIdentity(chip)
		rec.Outcome = models.FlashOutcome(outcome)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, rec := range records {
		if err := h.loadImages(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (h *SQLiteHistory) loadImages(ctx context.Context, rec *models.FlashRecord) error {
	rows, err := h.db.QueryContext(ctx,
		`SELECT flash_offset, file_name, size, checksum FROM flash_images WHERE job_id = ? ORDER BY position`, rec.ID)
	if err != nil {
		return fmt.Errorf("query images of %s: %w", rec.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var img models.FlashedImage
		if err := rows.Scan(&img.Offset, &img.FileName, &img.Size, &img.Checksum); err != nil {
			return fmt.Errorf("scan image: %w", err)
		}
		rec.Images = append(rec.Images, img)
	}
	return rows.Err()
}

// Close закрывает базу.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}
