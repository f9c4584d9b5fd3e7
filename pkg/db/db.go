package db

import (
	"fmt"
	"log"
	"os"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"liyu1981.xyz/alerta-mesh/pkg/common"
	"liyu1981.xyz/alerta-mesh/pkg/models"
)

type DB struct {
	Conn *gorm.DB
}

var (
	instance *DB
	once     sync.Once
)

// GetInstance opens the process-wide database once. Failing to open or
// migrate the store at startup is fatal.
func GetInstance(dialector gorm.Dialector) *DB {
	once.Do(func() {
		var err error
		if instance, err = Open(dialector); err != nil {
			log.Fatal("Failed to open database: ", err)
		}
	})
	return instance
}

// Open connects, migrates and tunes a fresh database handle.
func Open(dialector gorm.Dialector) (*DB, error) {
	logger := common.GetLogger()

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	logger.Info("Connected to database with dialector:", zap.String("dialector", dialector.Name()))

	if dialector.Name() == "sqlite" {
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, fmt.Errorf("get sqlite handle: %w", err)
		}
		// one writer at a time; the history resync runs in a single transaction
		sqlDB.SetMaxOpenConns(1)

		if err := conn.Exec("PRAGMA journal_mode = WAL").Error; err != nil {
			return nil, fmt.Errorf("set sqlite journal mode: %w", err)
		}
	}

	if err := conn.AutoMigrate(&models.AlertRecord{}, &models.AlertButton{}, &models.Setting{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logger.Info("Database migration completed")

	return &DB{Conn: conn}, nil
}

func UseSqliteDialector() gorm.Dialector {
	var dbPath string
	var found bool
	if dbPath, found = os.LookupEnv(common.EnvKeyAlertaDbPath); !found {
		dbPath = "alerta_mesh.db"
	}
	return UseSqliteFileDialector(dbPath)
}

func UseSqliteFileDialector(path string) gorm.Dialector {
	return sqlite.Open(path)
}

func UseMemorySqliteDialector() gorm.Dialector {
	return sqlite.Open("file::memory:?cache=shared")
}

// UseNamedMemorySqliteDialector gives every caller its own in-memory
// database, so tests that count rows do not see each other's data.
func UseNamedMemorySqliteDialector(name string) gorm.Dialector {
	return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
}

func UsePostgresDialector(dsn string) gorm.Dialector {
	return postgres.Open(dsn)
}

// UseConfigDialector picks the dialector named by the process config.
func UseConfigDialector(cfg *common.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case common.DBTypeFile:
		return UseSqliteFileDialector(cfg.DBPath), nil
	case common.DBTypeMemory:
		return UseMemorySqliteDialector(), nil
	case common.DBTypePostgres:
		return UsePostgresDialector(cfg.DBDSN), nil
	default:
		return nil, fmt.Errorf("unknown db type: %q", cfg.DBType)
	}
}
