package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dormitory-backend/config"
	"dormitory-backend/internal/model"
)

const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

var (
	ErrNotFound       = errors.New("backup not found")
	ErrDriverMismatch = errors.New("backup was taken from another database driver")
)

// Service creates, lists, restores and prunes backups. Dump files live in
// the backup directory and each one has a row in the backups table.
type Service struct {
	db        *gorm.DB
	dumper    Dumper
	driver    string
	dir       string
	retention int
	logger    *zap.Logger
	now       func() time.Time

	// AfterRestore runs after a successful restore, e.g. to drop schema caches.
	AfterRestore func()
}

// NewService picks the dumper for the configured driver.
func NewService(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *Service {
	var dumper Dumper
	switch cfg.Database.Driver {
	case "postgres":
		dumper = &pgDumper{pgDump: cfg.Backup.PgDumpPath, psql: cfg.Backup.PsqlPath, dsn: cfg.Database.DSN}
	default:
		dumper = &snapshotDumper{db: db, now: time.Now}
	}
	return newService(db, dumper, cfg.Database.Driver, cfg.Backup.Dir, cfg.Backup.Retention, logger)
}

func newService(db *gorm.DB, dumper Dumper, driver, dir string, retention int, logger *zap.Logger) *Service {
	return &Service{
		db:        db,
		dumper:    dumper,
		driver:    driver,
		dir:       dir,
		retention: retention,
		logger:    logger.Named("backup"),
		now:       time.Now,
	}
}

// Create dumps the database into a new file and records it.
func (s *Service) Create(ctx context.Context, trigger string, createdBy *int64) (*model.Backup, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup dir: %w", err)
	}

	now := s.now()
	name := fmt.Sprintf("dormitory-%s-%s.%s", now.UTC().Format("20060102-150405"), uuid.NewString()[:8], s.dumper.Extension())
	final := filepath.Join(s.dir, name)

	tmp, err := os.CreateTemp(s.dir, name+".*.partial")
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := s.dumper.Dump(ctx, tmp); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to dump database: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to write backup file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return nil, fmt.Errorf("failed to finalize backup file: %w", err)
	}

	b := &model.Backup{
		Filename:  name,
		Driver:    s.driver,
		SizeBytes: info.Size(),
		Trigger:   trigger,
		CreatedBy: createdBy,
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		os.Remove(final)
		return nil, fmt.Errorf("failed to record backup: %w", err)
	}

	s.logger.Info("backup created",
		zap.String("file", name), zap.Int64("size_bytes", b.SizeBytes), zap.String("trigger", trigger))
	return b, nil
}

// List returns every recorded backup, newest first.
func (s *Service) List(ctx context.Context) ([]model.Backup, error) {
	var backups []model.Backup
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&backups).Error; err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	return backups, nil
}

// Get loads one backup record.
func (s *Service) Get(ctx context.Context, id int64) (*model.Backup, error) {
	var b model.Backup
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("backup %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load backup %d: %w", id, err)
	}
	return &b, nil
}

// Path returns the file path of a backup inside the backup directory.
func (s *Service) Path(b *model.Backup) string {
	return filepath.Join(s.dir, filepath.Base(b.Filename))
}

// Restore replays a backup over the live database.
func (s *Service) Restore(ctx context.Context, id int64) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if b.Driver != s.driver {
		return fmt.Errorf("backup %d is %s, database is %s: %w", b.ID, b.Driver, s.driver, ErrDriverMismatch)
	}

	f, err := os.Open(s.Path(b))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("backup file %s: %w", b.Filename, ErrNotFound)
		}
		return fmt.Errorf("failed to open backup file: %w", err)
	}
	defer f.Close()

	if err := s.dumper.Restore(ctx, f); err != nil {
		return fmt.Errorf("failed to restore backup %d: %w", b.ID, err)
	}
	if s.AfterRestore != nil {
		s.AfterRestore()
	}
	s.logger.Warn("database restored from backup", zap.Int64("backup_id", b.ID), zap.String("file", b.Filename))
	return nil
}

// Delete removes a backup file and its record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(s.Path(b)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove backup file: %w", err)
	}
	if err := s.db.WithContext(ctx).Delete(&model.Backup{}, b.ID).Error; err != nil {
		return fmt.Errorf("failed to delete backup %d: %w", b.ID, err)
	}
	return nil
}

// Prune deletes scheduled backups beyond the retention count. Manual backups
// are never pruned.
func (s *Service) Prune(ctx context.Context) (int, error) {
	var stale []model.Backup
	if err := s.db.WithContext(ctx).
		Where(&model.Backup{Trigger: TriggerScheduled}).
		Order("created_at DESC, id DESC").
		Offset(s.retention).
		Find(&stale).Error; err != nil {
		return 0, fmt.Errorf("failed to find stale backups: %w", err)
	}

	removed := 0
	for _, b := range stale {
		if err := s.Delete(ctx, b.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
