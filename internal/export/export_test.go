package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"potiondb/internal/frontmatter"
	"potiondb/internal/model"
	"potiondb/internal/plugin"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// sampleDataset has three ingredients, one recipe with two alternatives and
// a two-level origin tree.
func sampleDataset(t *testing.T) *model.Dataset {
	t.Helper()
	ds := model.NewDataset()
	ds.SetBooks([]string{"Herbal Basics", "Bestiary"})
	tree := model.NewTree()
	toth, err := tree.Add(model.Root, "Tothymia")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Add(toth, "Silvanea"); err != nil {
		t.Fatal(err)
	}
	ds.SetOriginTree(tree)

	for _, ing := range []model.Ingredient{
		{Name: "Salt", Category: model.Binder, Difficulty: 1},
		{Name: "Ember", Category: model.Catalyst, Difficulty: 2},
		{Name: "Root", Category: model.Reactant, Difficulty: 3, ShortEffect: "earthy", Origins: []string{"Silvanea"}, Books: []string{"Herbal Basics"}},
	} {
		if err := ds.Ingredients.Add(ing); err != nil {
			t.Fatal(err)
		}
	}
	bonus := 1.5
	if err := ds.Recipes.Add(model.Recipe{
		Name:   "Tonic",
		Emoji:  "🧪",
		Desc:   "Restores vigor.",
		Bonus:  &bonus,
		Combos: [][]string{{"Root"}, {"Salt", "Ember", "Root"}},
		Books:  []string{"Herbal Basics"},
	}); err != nil {
		t.Fatal(err)
	}
	return ds
}

func generate(t *testing.T, ds *model.Dataset) *Bundle {
	t.Helper()
	b, err := Generate(ds, DefaultTitle)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return b
}

func page(t *testing.T, b *Bundle, path string) string {
	t.Helper()
	p, ok := b.Page(path)
	if !ok {
		t.Fatalf("page %s missing; have %v", path, b.Paths())
	}
	return string(p)
}

// snapshot reads every file under dir keyed by slash path.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return out
}

// ---------------------------------------------------------------------------
// Layout
// ---------------------------------------------------------------------------

func TestGenerateLayout(t *testing.T) {
	b := generate(t, sampleDataset(t))
	want := []string{
		"books.md",
		"index.md",
		"ingredients/Ember.md",
		"ingredients/Root.md",
		"ingredients/Salt.md",
		"inspection.md",
		"origins.md",
		"recipes/Tonic.md",
	}
	if diff := cmp.Diff(want, b.Paths()); diff != "" {
		t.Errorf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestIndexGroupsByCategory(t *testing.T) {
	idx := page(t, generate(t, sampleDataset(t)), "index.md")
	for _, want := range []string{
		"# Potion Catalog",
		"- **Ingredients**: 3",
		"### Binder\n\n- [[ingredients/Salt|Salt]] (difficulty 1)",
		"### Reactant\n\n- [[ingredients/Root|Root]] (difficulty 3)",
		"- [[recipes/Tonic|Tonic]]",
	} {
		if !strings.Contains(idx, want) {
			t.Errorf("index.md missing %q:\n%s", want, idx)
		}
	}
}

// ---------------------------------------------------------------------------
// Notes
// ---------------------------------------------------------------------------

func TestIngredientNote(t *testing.T) {
	note := page(t, generate(t, sampleDataset(t)), "ingredients/Root.md")
	meta, body, err := frontmatter.Read([]byte(note))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := frontmatter.Meta{
		Type:       "ingredient",
		Name:       "Root",
		Category:   "Reactant",
		Difficulty: 3,
		Books:      []string{"Herbal Basics"},
		Origins:    []string{"Silvanea"},
		Tags:       []string{"ingredient", "reactant"},
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("frontmatter mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(body, "> earthy") || !strings.Contains(body, "## Used in\n\n- [[recipes/Tonic|Tonic]]") {
		t.Errorf("unexpected body:\n%s", body)
	}
}

func TestRecipeNoteAlternatives(t *testing.T) {
	note := page(t, generate(t, sampleDataset(t)), "recipes/Tonic.md")
	for _, want := range []string{
		"# 🧪 Tonic",
		"**Bonus**: 1.5",
		"1. [[ingredients/Root|Root]] (difficulty 3)",
		"2. [[ingredients/Salt|Salt]] + [[ingredients/Ember|Ember]] + [[ingredients/Root|Root]] (difficulty 6)",
	} {
		if !strings.Contains(note, want) {
			t.Errorf("recipe note missing %q:\n%s", want, note)
		}
	}
}

func TestRecipeWithUnknownMember(t *testing.T) {
	ds := sampleDataset(t)
	if err := ds.Recipes.Add(model.Recipe{Name: "Broken", Combos: [][]string{{"Ghost"}}}); err != nil {
		t.Fatal(err)
	}
	note := page(t, generate(t, ds), "recipes/Broken.md")
	if !strings.Contains(note, "1. Ghost (difficulty ?)") {
		t.Errorf("unknown member should render as plain text:\n%s", note)
	}
}

// ---------------------------------------------------------------------------
// Catalog pages
// ---------------------------------------------------------------------------

func TestBooksPageCountsReferences(t *testing.T) {
	books := page(t, generate(t, sampleDataset(t)), "books.md")
	if !strings.Contains(books, "| Herbal Basics | 2 |") || !strings.Contains(books, "| Bestiary | 0 |") {
		t.Errorf("unexpected books page:\n%s", books)
	}
}

func TestOriginsPageIsIndented(t *testing.T) {
	origins := page(t, generate(t, sampleDataset(t)), "origins.md")
	if !strings.Contains(origins, "- Tothymia\n  - Silvanea (1)\n") {
		t.Errorf("unexpected origins page:\n%s", origins)
	}
}

func TestInspectionPage(t *testing.T) {
	clean := page(t, generate(t, sampleDataset(t)), "inspection.md")
	if !strings.Contains(clean, "_No problems found._") {
		t.Errorf("sample dataset should be clean:\n%s", clean)
	}

	ds := sampleDataset(t)
	if err := ds.Ingredients.Add(model.Ingredient{Name: "Moss", Category: model.Reactant, Books: []string{"Lost"}}); err != nil {
		t.Fatal(err)
	}
	dirty := page(t, generate(t, ds), "inspection.md")
	for _, want := range []string{"## Missing books\n\n- Lost", "## Unused ingredients\n\n- Moss"} {
		if !strings.Contains(dirty, want) {
			t.Errorf("inspection missing %q:\n%s", want, dirty)
		}
	}
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

func TestExportIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDataset(t)
	v := Vault{}
	cfg, err := plugin.Defaults(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Export(ds, cfg, dir); err != nil {
		t.Fatalf("first export: %v", err)
	}
	first := snapshot(t, dir)
	if err := v.Export(ds, cfg, dir); err != nil {
		t.Fatalf("second export: %v", err)
	}
	if diff := cmp.Diff(first, snapshot(t, dir)); diff != "" {
		t.Errorf("second export differs (-first +second):\n%s", diff)
	}
}

func TestExportPrunesStaleNotes(t *testing.T) {
	dir := t.TempDir()
	ds := sampleDataset(t)
	if err := (Vault{}).Export(ds, nil, dir); err != nil {
		t.Fatal(err)
	}
	ds.Recipes.Delete("Tonic")
	if err := (Vault{}).Export(ds, nil, dir); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "recipes", "Tonic.md")); !os.IsNotExist(err) {
		t.Errorf("stale recipe note still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "ingredients", "Root.md")); err != nil {
		t.Errorf("ingredient note removed: %v", err)
	}
}

func TestConfiguredTitle(t *testing.T) {
	dir := t.TempDir()
	if err := (Vault{}).Export(sampleDataset(t), map[string]string{"title": "Grimoire"}, dir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "index.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "# Grimoire") {
		t.Errorf("title not applied:\n%s", data)
	}
}

// ---------------------------------------------------------------------------
// File names
// ---------------------------------------------------------------------------

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Root":            "Root",
		"Salt/Pepper":     "Salt-Pepper",
		"What? Really":    "What- Really",
		"a//b":            "a-b",
		"..hidden..":      "hidden",
		"[[x]]":           "x",
		"":                "untitled",
		"Dragon's Breath": "Dragon's Breath",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNoteFilesResolveCollisions(t *testing.T) {
	got := noteFiles([]string{"a/b", "a:b", "A-B", "c"})
	want := map[string]string{"A-B": "A-B", "a/b": "a-b-2", "a:b": "a-b-3", "c": "c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("noteFiles mismatch (-want +got):\n%s", diff)
	}
}
