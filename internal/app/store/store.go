package store

import (
	"context"
	"fmt"

	"relaychat/internal/app/db"
	"relaychat/internal/app/storage"
	"relaychat/internal/app/user"
	"relaychat/internal/pkg/logx"
)

// Backend kinds accepted by Open.
const (
	KindFile     = "file"
	KindSQLite   = "sqlite"
	KindPostgres = "postgres"
	KindS3       = "s3"
)

// Config selects and configures a backend.
type Config struct {
	Kind        string
	FilePath    string
	SQLitePath  string
	DatabaseURL string
	S3          storage.ServiceConfig
	S3Key       string
}

// Backend is a user-table store that may hold resources.
type Backend interface {
	Load(ctx context.Context) ([]user.Record, error)
	Save(ctx context.Context, records []user.Record) error
	Close() error
}

// Open builds the backend named by cfg.Kind.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	logx.Info("Opening user store", "kind", cfg.Kind)

	switch cfg.Kind {
	case KindFile, "":
		return nopCloser{NewFile(cfg.FilePath)}, nil

	case KindSQLite:
		conn, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return NewSQL(conn), nil

	case KindPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pool), nil

	case KindS3:
		objects, err := storage.NewObjectStore(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return nopCloser{NewS3(objects, cfg.S3Key)}, nil

	default:
		return nil, fmt.Errorf("unknown user store %q", cfg.Kind)
	}
}

type loadSaver interface {
	Load(ctx context.Context) ([]user.Record, error)
	Save(ctx context.Context, records []user.Record) error
}

type nopCloser struct {
	loadSaver
}

func (nopCloser) Close() error { return nil }
