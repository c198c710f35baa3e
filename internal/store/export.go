package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"potiondb/internal/model"
	"potiondb/internal/plugin"
)

// SQLiteExporter writes a dataset snapshot as a standalone SQLite file.
type SQLiteExporter struct {
	Log *zap.Logger
}

var _ plugin.Exporter = SQLiteExporter{}

func (SQLiteExporter) Name() string { return "sqlite" }

func (SQLiteExporter) Configure() ([]plugin.ConfigQuestion, error) {
	return []plugin.ConfigQuestion{
		{Key: "filename", Prompt: "Database file name", Type: "text", Default: "potiondb.sqlite"},
	}, nil
}

// Export replaces <outputDir>/<filename> with a snapshot of ds.
func (e SQLiteExporter) Export(ds *model.Dataset, config map[string]string, outputDir string) error {
	name := config["filename"]
	if name == "" {
		name = "potiondb.sqlite"
	}
	path := filepath.Join(outputDir, name)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove old snapshot: %w", err)
		}
	}
	db, err := OpenSQLite(path, e.Log)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Commit(context.Background(), ds)
}
