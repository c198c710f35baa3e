package store

// files.go - the JSON file backend.
//
// A commit rewrites up to three files. To make that one atomic step, every
// new file is first written in full to a temp file next to its target.
// Only then is a journal recorded listing temp -> target pairs; from that
// moment the commit is decided. Targets are backed up to <target>.bak,
// temps are renamed into place and the journal is removed. A journal found
// on Load belongs to an interrupted commit and is rolled forward: temps
// that still exist are renamed, missing temps were already moved.
//
// Load and Commit hold an exclusive lock on LockName, so a second process
// over the same files (potiondb watch next to an editing command) never
// recovers or cleans up while a commit is staged.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"potiondb/internal/model"
)

// JournalName is the file name of the commit journal, kept in the
// directory of the ingredients file.
const JournalName = ".potiondb-journal.json"

// LockName is the file name of the lock shared by every process using the
// same data files. It sits next to the journal.
const LockName = ".potiondb.lock"

const tempPrefix = ".potiondb-"

// Files stores a dataset as ingredients.json, recipes.json and data.js.
type Files struct {
	IngredientsPath string
	RecipesPath     string
	DataJSPath      string

	log  *zap.Logger
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFiles returns a file store over the three paths.
func NewFiles(ingredientsPath, recipesPath, dataJSPath string, log *zap.Logger) *Files {
	if log == nil {
		log = zap.NewNop()
	}
	return &Files{
		IngredientsPath: ingredientsPath,
		RecipesPath:     recipesPath,
		DataJSPath:      dataJSPath,
		log:             log,
		lock:            flock.New(filepath.Join(filepath.Dir(ingredientsPath), LockName)),
	}
}

// Paths returns the three data file paths.
func (f *Files) Paths() []string {
	return []string{f.IngredientsPath, f.RecipesPath, f.DataJSPath}
}

func (f *Files) journalPath() string {
	return filepath.Join(filepath.Dir(f.IngredientsPath), JournalName)
}

// acquire takes the in-process mutex and the cross-process file lock.
// The returned func releases both.
func (f *Files) acquire() (func(), error) {
	f.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(f.lock.Path()), 0o755); err != nil {
		f.mu.Unlock()
		return nil, model.Wrap(err, "create data dir")
	}
	if err := f.lock.Lock(); err != nil {
		f.mu.Unlock()
		return nil, model.Wrap(err, "lock %s", f.lock.Path())
	}
	return func() {
		if err := f.lock.Unlock(); err != nil {
			f.log.Warn("unlock failed", zap.String("path", f.lock.Path()), zap.Error(err))
		}
		f.mu.Unlock()
	}, nil
}

type journal struct {
	ID      string         `json:"id"`
	Created time.Time      `json:"created"`
	Entries []journalEntry `json:"entries"`
}

type journalEntry struct {
	Temp   string `json:"temp"`
	Target string `json:"target"`
}

// Load reads the dataset, first completing any interrupted commit.
func (f *Files) Load(ctx context.Context) (*model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	release, err := f.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	if err := f.recover(); err != nil {
		return nil, err
	}

	ds := model.NewDataset()

	data, err := readOptional(f.IngredientsPath)
	if err != nil {
		return nil, err
	}
	ings, err := DecodeIngredients(data)
	if err != nil {
		return nil, decodeError(f.IngredientsPath, err)
	}
	ds.Ingredients.Load(ings)

	data, err = readOptional(f.RecipesPath)
	if err != nil {
		return nil, err
	}
	recs, err := DecodeRecipes(data)
	if err != nil {
		return nil, decodeError(f.RecipesPath, err)
	}
	ds.Recipes.Load(recs)

	data, err = readOptional(f.DataJSPath)
	if err != nil {
		return nil, err
	}
	books, tree, err := DecodeDataJS(data)
	if err != nil {
		return nil, decodeError(f.DataJSPath, err)
	}
	ds.SetBooks(books)
	ds.SetOriginTree(tree)
	return ds, nil
}

// readOptional returns nil content for a missing file.
func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, model.Wrap(err, "read %s", path)
	}
	return data, nil
}

// decodeError keeps domain errors (a non-integer difficulty) in their kind
// and reports everything else as a RepositoryError.
func decodeError(path string, err error) error {
	if errors.Is(err, model.ErrValidation) {
		return fmt.Errorf("%s: %w", path, err)
	}
	return model.Wrap(err, "parse %s", path)
}

// Commit writes ds atomically.
func (f *Files) Commit(ctx context.Context, ds *model.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	release, err := f.acquire()
	if err != nil {
		return err
	}
	defer release()
	if err := f.recover(); err != nil {
		return err
	}

	ingData, err := EncodeIngredients(ds.Ingredients.List())
	if err != nil {
		return model.Wrap(err, "encode ingredients")
	}
	recData, err := EncodeRecipes(ds.Recipes.List())
	if err != nil {
		return model.Wrap(err, "encode recipes")
	}
	contents := map[string][]byte{
		f.IngredientsPath: ingData,
		f.RecipesPath:     recData,
		f.DataJSPath:      EncodeDataJS(ds.Books(), ds.OriginTree()),
	}

	j := journal{ID: uuid.NewString(), Created: time.Now().UTC()}
	for _, target := range f.Paths() {
		if err := ctx.Err(); err != nil {
			removeTemps(j)
			return err
		}
		temp, err := writeTemp(target, j.ID, contents[target])
		if err != nil {
			removeTemps(j)
			return model.Wrap(err, "stage %s", target)
		}
		j.Entries = append(j.Entries, journalEntry{Temp: temp, Target: target})
	}

	if err := f.writeJournal(j); err != nil {
		removeTemps(j)
		return model.Wrap(err, "write journal")
	}
	if err := f.apply(j, false); err != nil {
		return model.Wrap(err, "apply commit %s", j.ID)
	}
	f.log.Debug("commit applied", zap.String("id", j.ID), zap.Int("files", len(j.Entries)))
	return nil
}

// writeTemp writes data to a synced temp file in target's directory.
func writeTemp(target, id string, data []byte) (string, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	temp := filepath.Join(dir, tempPrefix+filepath.Base(target)+"."+id+".tmp")
	fh, err := os.OpenFile(temp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		os.Remove(temp)
		return "", err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		os.Remove(temp)
		return "", err
	}
	if err := fh.Close(); err != nil {
		os.Remove(temp)
		return "", err
	}
	return temp, nil
}

func removeTemps(j journal) {
	for _, e := range j.Entries {
		os.Remove(e.Temp)
	}
}

// writeJournal records j through its own temp file and rename, so the
// journal is either absent or complete.
func (f *Files) writeJournal(j journal) error {
	data, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}
	temp, err := writeTemp(f.journalPath(), j.ID, data)
	if err != nil {
		return err
	}
	return os.Rename(temp, f.journalPath())
}

// apply backs up and replaces every target, then drops the journal. Only
// a recovering apply may find a temp already moved; a live commit staged
// every temp itself, so a missing one is an error and the journal stays.
func (f *Files) apply(j journal, recovering bool) error {
	for _, e := range j.Entries {
		if _, err := os.Stat(e.Temp); errors.Is(err, os.ErrNotExist) {
			if recovering {
				continue
			}
			return fmt.Errorf("staged file %s disappeared", e.Temp)
		}
		if err := backup(e.Target); err != nil {
			return fmt.Errorf("backup %s: %w", e.Target, err)
		}
		if err := os.Rename(e.Temp, e.Target); err != nil {
			return fmt.Errorf("replace %s: %w", e.Target, err)
		}
	}
	return os.Remove(f.journalPath())
}

// backup copies path to path.bak. A missing path needs no backup.
func backup(path string) error {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(path + ".bak")
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// recover rolls forward a journal left by an interrupted commit and
// removes orphan temp files from commits that never recorded one.
func (f *Files) recover() error {
	data, err := os.ReadFile(f.journalPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return model.Wrap(err, "read journal")
	default:
		var j journal
		if err := json.Unmarshal(data, &j); err != nil {
			return model.Wrap(err, "parse journal %s", f.journalPath())
		}
		f.log.Warn("rolling forward interrupted commit", zap.String("id", j.ID), zap.Time("created", j.Created))
		if err := f.apply(j, true); err != nil {
			return model.Wrap(err, "roll forward commit %s", j.ID)
		}
	}
	f.removeOrphans()
	return nil
}

// removeOrphans deletes temp files no journal refers to. Callers hold the
// file lock, so no other commit can be staging.
func (f *Files) removeOrphans() {
	seen := make(map[string]bool)
	for _, p := range append(f.Paths(), f.journalPath()) {
		dir := filepath.Dir(p)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, ".tmp") {
				f.log.Debug("removing orphan temp file", zap.String("file", name))
				os.Remove(filepath.Join(dir, name))
			}
		}
	}
}

// Close is a no-op; Files holds no open handles.
func (f *Files) Close() error { return nil }
