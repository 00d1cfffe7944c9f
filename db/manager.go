package db

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"ratingsite/config"
	"ratingsite/models"
)

// Store держит пул соединений. Сессии берутся на время запроса
// через ReadOnly/Write и возвращаются в пул самим gorm.
type Store struct {
	ORM *gorm.DB
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// ConnectDB подключается к мастеру, регистрирует реплики и мигрирует схему
func ConnectDB(conf *config.ConfigSchema, log *zap.Logger) (*Store, error) {
	if conf == nil {
		return nil, errors.New("config is nil")
	}
	if conf.Databases.Master.Host == "" {
		return nil, errors.New("master database configuration is missing")
	}

	orm, err := gorm.Open(postgres.Open(conf.Databases.Master.DSN()), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open master: %w", err)
	}

	replicas := make([]gorm.Dialector, 0, len(conf.Databases.Replicas))
	for _, r := range conf.Databases.Replicas {
		replicas = append(replicas, postgres.Open(r.DSN()))
	}
	if len(replicas) > 0 {
		err = orm.Use(dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		}))
		if err != nil {
			return nil, fmt.Errorf("register replicas: %w", err)
		}
	}
	log.Info("database connected",
		zap.String("host", conf.Databases.Master.Host),
		zap.Int("replicas", len(replicas)))

	if err = Migrate(orm); err != nil {
		return nil, err
	}
	return &Store{ORM: orm}, nil
}

// OpenSQLite используется в тестах и для локального запуска.
// Для ":memory:" пул ограничен одним соединением, иначе каждое соединение видит свою базу.
func OpenSQLite(dsn string) (*Store, error) {
	orm, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := orm.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err = orm.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, err
	}
	if err = Migrate(orm); err != nil {
		return nil, err
	}
	return &Store{ORM: orm}, nil
}

func Migrate(orm *gorm.DB) error {
	if err := orm.AutoMigrate(&models.User{}, &models.FriendEdge{}, &models.Rating{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// ReadOnly возвращает сессию для чтения (реплики, если они есть)
func (s *Store) ReadOnly(ctx context.Context) *gorm.DB {
	return s.ORM.WithContext(ctx).Clauses(dbresolver.Read)
}

// Write возвращает сессию для записи (мастер)
func (s *Store) Write(ctx context.Context) *gorm.DB {
	return s.ORM.WithContext(ctx).Clauses(dbresolver.Write)
}

func (s *Store) Close() error {
	sqlDB, err := s.ORM.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
