package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lorecrafter/repositories"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrNoURL is returned by Connect when no database URL is configured.
var ErrNoURL = errors.New("database url is not configured")

// Driver names the store backend selected by the database URL.
type Driver string

const (
	DriverMongo Driver = "mongo"
	DriverMySQL Driver = "mysql"
)

// DetectDriver picks the backend from the URL scheme. Anything that is not
// a MongoDB URL is treated as a MySQL DSN, with or without a mysql:// prefix.
func DetectDriver(url string) Driver {
	if strings.HasPrefix(url, "mongodb://") || strings.HasPrefix(url, "mongodb+srv://") {
		return DriverMongo
	}
	return DriverMySQL
}

// Connect opens the store named by url, verifies it answers, and prepares
// its schema. dbName selects the Mongo database; MySQL takes it from the DSN.
func Connect(ctx context.Context, url, dbName string, log *zap.Logger) (repositories.Store, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	switch DetectDriver(url) {
	case DriverMongo:
		return connectMongo(ctx, url, dbName, log)
	default:
		return connectMySQL(ctx, mysqlDSN(url), log)
	}
}

func connectMongo(ctx context.Context, url, dbName string, log *zap.Logger) (repositories.Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	if err := repositories.EnsureMongoIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("Connected to MongoDB", zap.String("database", dbName))
	return repositories.NewMongoStore(client, db), nil
}

// mysqlDSN strips the optional scheme and makes sure DATETIME columns scan
// into time.Time.
func mysqlDSN(url string) string {
	dsn := strings.TrimPrefix(url, "mysql://")
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

func connectMySQL(ctx context.Context, dsn string, log *zap.Logger) (repositories.Store, error) {
	db, err := OpenGorm(mysql.Open(dsn), log)
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}
	store := repositories.NewGormStore(db)
	if err := store.Ping(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	log.Info("Connected to MySQL and migrations complete")
	return store, nil
}

// OpenGorm opens a gorm connection over the given dialector, routes gorm's
// logging through zap, and migrates the tables.
func OpenGorm(dialector gorm.Dialector, log *zap.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if err := repositories.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// ErrNotConnected is reported by Check when the server runs without a store.
var ErrNotConnected = errors.New("database not connected")

// Check pings store with a short timeout. A nil store is never healthy.
func Check(ctx context.Context, store repositories.Store) error {
	if store == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return store.Ping(ctx)
}
