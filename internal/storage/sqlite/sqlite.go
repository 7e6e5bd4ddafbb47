// internal/storage/sqlite/sqlite.go
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rovshanmuradov/dex-sniper/internal/storage"
	"github.com/rovshanmuradov/dex-sniper/internal/storage/models"
)

// gormLogger adapts zap to GORM's logger.Interface.
type gormLogger struct {
	zapLogger *zap.Logger
	logLevel  logger.LogLevel
}

func newGormLogger(zapLogger *zap.Logger) logger.Interface {
	return &gormLogger{
		zapLogger: zapLogger,
		logLevel:  logger.Warn,
	}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.logLevel = level
	return &newLogger
}

func (l *gormLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Info {
		l.zapLogger.Sugar().Infof(msg, data...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Warn {
		l.zapLogger.Sugar().Warnf(msg, data...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if l.logLevel >= logger.Error {
		l.zapLogger.Sugar().Errorf(msg, data...)
	}
}

func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
	}

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, gorm.ErrDuplicatedKey) {
		l.zapLogger.Error("trace", append(fields, zap.Error(err))...)
		return
	}

	if l.logLevel >= logger.Info {
		l.zapLogger.Info("trace", fields...)
	}
}

// sqliteStore implements storage.Store on a local SQLite file.
type sqliteStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore opens (or creates) the database at path and migrates the schema
// idempotently.
func NewStore(path string, zapLogger *zap.Logger) (storage.Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: newGormLogger(zapLogger.Named("gorm")),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&models.Position{}, &models.TradeLedgerEntry{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &sqliteStore{
		db:     db,
		logger: zapLogger,
	}, nil
}

func (s *sqliteStore) ListOpenAddresses(ctx context.Context) ([]string, error) {
	var addresses []string
	err := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("status = ?", models.StatusOpen).
		Pluck("address", &addresses).Error
	if err != nil {
		return nil, fmt.Errorf("list open addresses: %w", err)
	}
	return addresses, nil
}

func (s *sqliteStore) ListAllAddresses(ctx context.Context) ([]string, error) {
	var addresses []string
	err := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Pluck("address", &addresses).Error
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return addresses, nil
}

func (s *sqliteStore) InsertPosition(ctx context.Context, pos *models.Position) error {
	err := s.db.WithContext(ctx).Create(pos).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert position %s: %w", pos.Address, storage.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("insert position %s: %w", pos.Address, err)
	}
	return nil
}

func (s *sqliteStore) UpdateStatus(ctx context.Context, address string, status models.PositionStatus) error {
	res := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Where("address = ?", address).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("update status %s: %w", address, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update status %s: %w", address, storage.ErrNotFound)
	}
	return nil
}

func (s *sqliteStore) GetPosition(ctx context.Context, address string) (*models.Position, error) {
	var pos models.Position
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get position %s: %w", address, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", address, err)
	}
	return &pos, nil
}

func (s *sqliteStore) AppendLedgerEntry(ctx context.Context, entry *models.TradeLedgerEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).Create(entry).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("append ledger entry %s: %w", entry.TxID, storage.ErrDuplicateKey)
	}
	if err != nil {
		return fmt.Errorf("append ledger entry %s: %w", entry.TxID, err)
	}
	return nil
}

func (s *sqliteStore) ListLedgerEntries(ctx context.Context) ([]*models.TradeLedgerEntry, error) {
	var entries []*models.TradeLedgerEntry
	err := s.db.WithContext(ctx).
		Order("timestamp ASC").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

func (s *sqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
