package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"potiondb/internal/model"
	"potiondb/internal/store"
)

func newFiles(t *testing.T) (*store.Files, string) {
	t.Helper()
	dir := t.TempDir()
	return store.NewFiles(
		filepath.Join(dir, "ingredients.json"),
		filepath.Join(dir, "recipes.json"),
		filepath.Join(dir, "data.js"),
		zap.NewNop(),
	), dir
}

func sampleDataset(t *testing.T) *model.Dataset {
	t.Helper()
	ds := model.NewDataset()
	ds.SetBooks([]string{"Book1", "Book2"})
	toth, _ := ds.OriginTree().Add(model.Root, "Tothymia")
	if _, err := ds.OriginTree().Add(toth, "Elenart"); err != nil {
		t.Fatal(err)
	}
	bonus := 1.0
	if err := ds.Ingredients.Add(model.Ingredient{
		Name: "Moss", Category: model.Reactant, Difficulty: 3,
		ShortEffect: "calm", Effect: "long calm", Origins: []string{"Elenart"}, Books: []string{"Book1"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := ds.Ingredients.Add(model.Ingredient{Name: "Salt", Category: model.Binder}); err != nil {
		t.Fatal(err)
	}
	if err := ds.Recipes.Add(model.Recipe{
		Name: "Tonic", Emoji: "🧪", Desc: "d", Bonus: &bonus,
		Combos: [][]string{{"Salt", "Moss"}, {"Moss"}}, Books: []string{"Book2"},
	}); err != nil {
		t.Fatal(err)
	}
	return ds
}

// snapshot flattens a dataset for comparison.
type snapshot struct {
	Ingredients []model.Ingredient
	Recipes     []model.Recipe
	Books       []string
	Paths       []string
}

func snap(ds *model.Dataset) snapshot {
	return snapshot{ds.Ingredients.List(), ds.Recipes.List(), ds.Books(), ds.OriginTree().Paths()}
}

// normalize maps nil slices to empty ones so decoded and built datasets compare equal.
var normalize = cmp.Transformer("nonNil", func(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
})

func TestFilesLoadMissing(t *testing.T) {
	fs, _ := newFiles(t)
	ds, err := fs.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ds.Ingredients.Len() != 0 || ds.Recipes.Len() != 0 || len(ds.Books()) != 0 || ds.OriginTree().Len() != 0 {
		t.Errorf("expected empty dataset, got %+v", snap(ds))
	}
}

func TestFilesRoundTrip(t *testing.T) {
	fs, dir := newFiles(t)
	ctx := context.Background()
	want := sampleDataset(t)
	if err := fs.Commit(ctx, want); err != nil {
		t.Fatal(err)
	}
	got, err := fs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(snap(want), snap(got), normalize); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if _, err := os.Stat(filepath.Join(dir, store.JournalName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("journal left behind: %v", err)
	}
	assertNoTemps(t, dir)
}

func TestFilesCommitKeepsBackup(t *testing.T) {
	fs, dir := newFiles(t)
	ctx := context.Background()
	ds := sampleDataset(t)
	if err := fs.Commit(ctx, ds); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(fs.IngredientsPath)

	ds.Ingredients.Delete("Salt")
	if err := fs.Commit(ctx, ds); err != nil {
		t.Fatal(err)
	}
	bak, err := os.ReadFile(filepath.Join(dir, "ingredients.json.bak"))
	if err != nil {
		t.Fatal(err)
	}
	if string(bak) != string(first) {
		t.Error("backup does not hold the previous content")
	}
}

func TestFilesRollsForwardJournal(t *testing.T) {
	fs, dir := newFiles(t)
	ctx := context.Background()
	if err := fs.Commit(ctx, sampleDataset(t)); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash after the journal was written: the recipes temp
	// is still pending, the ingredients temp was already moved.
	newRecipes, err := store.EncodeRecipes([]model.Recipe{{Name: "Crashed", Combos: [][]string{{"Moss"}}}})
	if err != nil {
		t.Fatal(err)
	}
	temp := filepath.Join(dir, ".potiondb-recipes.json.crash.tmp")
	if err := os.WriteFile(temp, newRecipes, 0o644); err != nil {
		t.Fatal(err)
	}
	j := map[string]any{
		"id": "crash",
		"entries": []map[string]string{
			{"temp": filepath.Join(dir, ".potiondb-ingredients.json.crash.tmp"), "target": fs.IngredientsPath},
			{"temp": temp, "target": fs.RecipesPath},
		},
	}
	data, _ := json.Marshal(j)
	if err := os.WriteFile(filepath.Join(dir, store.JournalName), data, 0o644); err != nil {
		t.Fatal(err)
	}

	ds, err := fs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Crashed"}, ds.Recipes.Names()); diff != "" {
		t.Errorf("recipes after recovery (-want +got):\n%s", diff)
	}
	if ds.Ingredients.Len() != 2 {
		t.Errorf("ingredients changed by recovery: %v", ds.Ingredients.Names())
	}
	if _, err := os.Stat(filepath.Join(dir, store.JournalName)); !errors.Is(err, os.ErrNotExist) {
		t.Error("journal not removed after recovery")
	}
}

func TestFilesRemovesOrphanTemps(t *testing.T) {
	fs, dir := newFiles(t)
	orphan := filepath.Join(dir, ".potiondb-data.js.dead.tmp")
	if err := os.WriteFile(orphan, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	assertNoTemps(t, dir)
}

func TestFilesParseErrorIsRepositoryError(t *testing.T) {
	fs, _ := newFiles(t)
	if err := os.WriteFile(fs.IngredientsPath, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := fs.Load(context.Background())
	if !errors.Is(err, model.ErrRepository) {
		t.Fatalf("err = %v, want RepositoryError", err)
	}
	if !strings.Contains(err.Error(), "ingredients.json") {
		t.Errorf("error should name the file: %v", err)
	}
}

func TestFilesUnusableOriginKeyKeepsFile(t *testing.T) {
	fs, _ := newFiles(t)
	src := []byte(`export const ORIGIN_TREE = {"North/South": {"Child": {}}, "X": {}};`)
	if err := os.WriteFile(fs.DataJSPath, src, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := fs.Load(context.Background())
	if !errors.Is(err, model.ErrRepository) {
		t.Fatalf("err = %v, want RepositoryError", err)
	}
	if !strings.Contains(err.Error(), "North/South") {
		t.Errorf("error should name the key: %v", err)
	}
	got, _ := os.ReadFile(fs.DataJSPath)
	if string(got) != string(src) {
		t.Errorf("data.js changed:\n%s", got)
	}
}

func TestFilesCanceledCommitWritesNothing(t *testing.T) {
	fs, dir := newFiles(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := fs.Commit(ctx, sampleDataset(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("canceled commit left files: %v", entries)
	}
}

// TestFilesSharedByTwoStores runs a writer and a reader over the same
// files, as potiondb watch does next to an editing command. The reader's
// recovery must never eat a commit the writer reports as done.
func TestFilesSharedByTwoStores(t *testing.T) {
	writer, dir := newFiles(t)
	reader := store.NewFiles(writer.IngredientsPath, writer.RecipesPath, writer.DataJSPath, zap.NewNop())
	ctx := context.Background()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, err := reader.Load(ctx); err != nil {
				t.Errorf("reader load: %v", err)
				return
			}
		}
	}()

	for i := range 100 {
		title := fmt.Sprintf("Book%d", i)
		ds := model.NewDataset()
		ds.SetBooks([]string{title})
		if err := writer.Commit(ctx, ds); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		data, err := os.ReadFile(writer.DataJSPath)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), `"`+title+`"`) {
			t.Fatalf("commit %d reported success but data.js holds:\n%s", i, data)
		}
	}
	close(stop)
	wg.Wait()

	if _, err := os.Stat(filepath.Join(dir, store.JournalName)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("journal left behind: %v", err)
	}
	assertNoTemps(t, dir)
}

func TestFilesLockFileNextToJournal(t *testing.T) {
	fs, dir := newFiles(t)
	if err := fs.Commit(context.Background(), sampleDataset(t)); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, store.LockName)); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}

func assertNoTemps(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
