package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/phototrip/phototrip/internal/config"
	"github.com/phototrip/phototrip/internal/database"
	"github.com/phototrip/phototrip/internal/storage"
	gormstorage "github.com/phototrip/phototrip/internal/storage/gorm"
	"github.com/phototrip/phototrip/internal/storage/memory"
)

// openStorage creates and initializes the tag cache backend. The returned
// close function releases the backend and its database.
func openStorage(storageCfg config.StorageConfig, zl zerolog.Logger) (storage.Backend, func() error, error) {
	backend, db, err := createStorageBackend(storageCfg, zl)
	if err != nil {
		Logger.Error("Failed to create storage backend", "error", err)
		return nil, nil, err
	}
	if err := backend.Init(); err != nil {
		Logger.Error("Failed to initialize storage backend", "error", err)
		if db != nil {
			_ = db.Close()
		}
		return nil, nil, err
	}

	closeFn := func() error {
		err := backend.Close()
		if db != nil {
			if cerr := db.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
		return err
	}
	return backend, closeFn, nil
}

func createStorageBackend(storageCfg config.StorageConfig, zl zerolog.Logger) (storage.Backend, *database.Manager, error) {
	switch storageCfg.Type {
	case "postgres", "sqlite":
		db := database.NewManager(zl.With().Str("component", "database").Logger())
		if err := db.Connect(storageCfg.Type, storageCfg.SQLite.Path); err != nil {
			return nil, nil, fmt.Errorf("failed to connect %s storage: %w", storageCfg.Type, err)
		}
		Logger.Info("GORM storage backend initialized", "dialect", db.DB.Dialector.Name(), "local", db.Local)
		return gormstorage.New(gormstorage.Dependencies{
			DB:     db.DB,
			Logger: Logger.With("component", "storage"),
		}), db, nil

	case "memory", "":
		Logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(memory.Config{
			OutputDir:      storageCfg.Memory.OutputDir,
			CompressOutput: storageCfg.Memory.CompressOutput,
		}), nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage type: %s", storageCfg.Type)
	}
}
