// Package export renders a dataset as a markdown vault: one note per
// ingredient and recipe plus catalog, origin and inspection pages.
//
// Vault layout:
//
//	index.md                 entry point listing every record
//	ingredients/<name>.md    one note per ingredient
//	recipes/<name>.md        one note per recipe
//	books.md                 books catalog with reference counts
//	origins.md               indented origin tree
//	inspection.md            integrity report
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"potiondb/internal/frontmatter"
	"potiondb/internal/integrity"
	"potiondb/internal/model"
	"potiondb/internal/plugin"
	"potiondb/internal/suggest"
)

// DefaultTitle heads index.md when no title is configured.
const DefaultTitle = "Potion Catalog"

// noteDirs are recreated on every export; stale notes inside are removed.
var noteDirs = []string{"ingredients", "recipes"}

// Vault is the markdown exporter.
type Vault struct{}

var _ plugin.Exporter = Vault{}

func (Vault) Name() string { return "vault" }

func (Vault) Configure() ([]plugin.ConfigQuestion, error) {
	return []plugin.ConfigQuestion{
		{Key: "title", Prompt: "Vault title", Type: "text", Default: DefaultTitle},
	}, nil
}

// Export generates the vault for ds and writes it into outputDir.
func (Vault) Export(ds *model.Dataset, config map[string]string, outputDir string) error {
	title := strings.TrimSpace(config["title"])
	if title == "" {
		title = DefaultTitle
	}
	b, err := Generate(ds, title)
	if err != nil {
		return err
	}
	return Write(b, outputDir)
}

// Bundle holds rendered pages keyed by slash-separated relative path.
type Bundle struct {
	pages map[string][]byte
}

// Paths returns every page path, sorted.
func (b *Bundle) Paths() []string {
	paths := make([]string, 0, len(b.pages))
	for p := range b.pages {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Page returns the content of one page.
func (b *Bundle) Page(path string) ([]byte, bool) {
	p, ok := b.pages[path]
	return p, ok
}

// Generate renders every page of the vault without touching the disk.
func Generate(ds *model.Dataset, title string) (*Bundle, error) {
	g := &generator{
		ds:       ds,
		pages:    make(map[string][]byte),
		ingFiles: noteFiles(ds.Ingredients.Names()),
		recFiles: noteFiles(ds.Recipes.Names()),
	}
	g.page("index.md", g.index(title))
	for _, ing := range ds.Ingredients.List() {
		if err := g.ingredient(ing); err != nil {
			return nil, err
		}
	}
	for _, r := range ds.Recipes.List() {
		if err := g.recipe(r); err != nil {
			return nil, err
		}
	}
	g.page("books.md", g.books())
	g.page("origins.md", g.origins())
	g.page("inspection.md", inspection(integrity.Inspect(ds)))
	return &Bundle{pages: g.pages}, nil
}

// Write stores the bundle under outputDir in sorted path order and removes
// notes left over from records that no longer exist.
func Write(b *Bundle, outputDir string) error {
	for _, sub := range noteDirs {
		dir := filepath.Join(outputDir, sub)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir %s: %w", sub, err)
		}
		if err := prune(b, dir, sub); err != nil {
			return err
		}
	}
	for _, p := range b.Paths() {
		if err := writeNote(filepath.Join(outputDir, filepath.FromSlash(p)), b.pages[p]); err != nil {
			return err
		}
	}
	return nil
}

func prune(b *Bundle, dir, sub string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		if _, ok := b.pages[sub+"/"+e.Name()]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("remove stale note: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Page builders
// ---------------------------------------------------------------------------

type generator struct {
	ds       *model.Dataset
	pages    map[string][]byte
	ingFiles map[string]string
	recFiles map[string]string
}

func (g *generator) page(path string, content string) {
	g.pages[path] = []byte(content)
}

func (g *generator) ingLink(name string) string {
	if f, ok := g.ingFiles[name]; ok {
		return fmt.Sprintf("[[ingredients/%s|%s]]", f, name)
	}
	return name
}

func (g *generator) recLink(name string) string {
	return fmt.Sprintf("[[recipes/%s|%s]]", g.recFiles[name], name)
}

func (g *generator) index(title string) string {
	var b strings.Builder
	b.WriteString(header("index"))
	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- **Ingredients**: %d\n", g.ds.Ingredients.Len())
	fmt.Fprintf(&b, "- **Recipes**: %d\n", g.ds.Recipes.Len())
	fmt.Fprintf(&b, "- **Books**: %d\n\n", len(g.ds.Books()))

	b.WriteString("## Ingredients\n")
	for _, cat := range model.Categories {
		items, _ := suggest.ByCategory(g.ds, string(cat))
		if len(items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n\n", cat)
		for _, ing := range items {
			fmt.Fprintf(&b, "- %s (difficulty %d)\n", g.ingLink(ing.Name), ing.Difficulty)
		}
	}
	var other []string
	for _, ing := range g.ds.Ingredients.List() {
		if _, err := model.ParseCategory(string(ing.Category)); err != nil {
			other = append(other, ing.Name)
		}
	}
	if len(other) > 0 {
		b.WriteString("\n### Uncategorized\n\n")
		for _, name := range model.SortedNames(other) {
			b.WriteString("- " + g.ingLink(name) + "\n")
		}
	}

	b.WriteString("\n## Recipes\n\n")
	for _, name := range model.SortedNames(g.ds.Recipes.Names()) {
		b.WriteString("- " + g.recLink(name) + "\n")
	}
	b.WriteString("\nSee also [[books]], [[origins]] and [[inspection]].\n")
	return b.String()
}

func (g *generator) ingredient(ing model.Ingredient) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ing.Name)
	if ing.ShortEffect != "" {
		fmt.Fprintf(&b, "> %s\n\n", ing.ShortEffect)
	}
	if ing.Effect != "" {
		b.WriteString(ing.Effect + "\n\n")
	}
	fmt.Fprintf(&b, "**Category**: %s\n", ing.Category)
	fmt.Fprintf(&b, "**Difficulty**: %d\n", ing.Difficulty)

	var usedIn []string
	for _, r := range g.ds.Recipes.List() {
		if r.Uses(ing.Name) {
			usedIn = append(usedIn, r.Name)
		}
	}
	if len(usedIn) > 0 {
		b.WriteString("\n## Used in\n\n")
		for _, name := range model.SortedNames(model.Unique(usedIn)) {
			b.WriteString("- " + g.recLink(name) + "\n")
		}
	}

	meta := frontmatter.Meta{
		Type:       "ingredient",
		Name:       ing.Name,
		Category:   string(ing.Category),
		Difficulty: ing.Difficulty,
		Books:      ing.Books,
		Origins:    ing.Origins,
		Tags:       []string{"ingredient", tag(string(ing.Category))},
	}
	note, err := frontmatter.Render(meta, b.String())
	if err != nil {
		return fmt.Errorf("ingredient %q: %w", ing.Name, err)
	}
	g.pages["ingredients/"+g.ingFiles[ing.Name]+".md"] = note
	return nil
}

func (g *generator) recipe(r model.Recipe) error {
	var b strings.Builder
	if r.Emoji != "" {
		fmt.Fprintf(&b, "# %s %s\n\n", r.Emoji, r.Name)
	} else {
		fmt.Fprintf(&b, "# %s\n\n", r.Name)
	}
	if r.Desc != "" {
		b.WriteString(r.Desc + "\n\n")
	}
	if r.Bonus != nil {
		fmt.Fprintf(&b, "**Bonus**: %s\n\n", strconv.FormatFloat(*r.Bonus, 'g', -1, 64))
	}

	b.WriteString("## Alternatives\n\n")
	for i, combo := range r.Combos {
		links := make([]string, len(combo))
		for j, m := range combo {
			links[j] = g.ingLink(m)
		}
		diff := "?"
		if d, err := suggest.Difficulty(g.ds, combo); err == nil {
			diff = strconv.Itoa(d)
		}
		fmt.Fprintf(&b, "%d. %s (difficulty %s)\n", i+1, strings.Join(links, " + "), diff)
	}

	meta := frontmatter.Meta{
		Type:  "recipe",
		Name:  r.Name,
		Books: r.Books,
		Tags:  []string{"recipe"},
	}
	note, err := frontmatter.Render(meta, b.String())
	if err != nil {
		return fmt.Errorf("recipe %q: %w", r.Name, err)
	}
	g.pages["recipes/"+g.recFiles[r.Name]+".md"] = note
	return nil
}

func (g *generator) books() string {
	counts := make(map[string]int)
	for _, ing := range g.ds.Ingredients.List() {
		for _, bk := range ing.Books {
			counts[bk]++
		}
	}
	for _, r := range g.ds.Recipes.List() {
		for _, bk := range r.Books {
			counts[bk]++
		}
	}

	var b strings.Builder
	b.WriteString(header("books"))
	b.WriteString("# Books\n\n")
	books := g.ds.Books()
	if len(books) == 0 {
		b.WriteString("_No books._\n")
		return b.String()
	}
	b.WriteString("| Title | References |\n")
	b.WriteString("|-------|------------|\n")
	for _, bk := range books {
		fmt.Fprintf(&b, "| %s | %d |\n", bk, counts[bk])
	}
	return b.String()
}

func (g *generator) origins() string {
	counts := make(map[string]int)
	for _, ing := range g.ds.Ingredients.List() {
		for _, o := range ing.Origins {
			counts[model.LabelOf(o)]++
		}
	}

	var b strings.Builder
	b.WriteString(header("origins"))
	b.WriteString("# Origins\n\n")
	tree := g.ds.OriginTree()
	if tree.Len() == 0 {
		b.WriteString("_No origins._\n")
		return b.String()
	}
	tree.Walk(func(id model.NodeID, depth int) bool {
		label := tree.Label(id)
		fmt.Fprintf(&b, "%s- %s", strings.Repeat("  ", depth), label)
		if n := counts[label]; n > 0 {
			fmt.Fprintf(&b, " (%d)", n)
		}
		b.WriteString("\n")
		return true
	})
	return b.String()
}

func inspection(rep integrity.Report) string {
	var b strings.Builder
	b.WriteString(header("inspection"))
	b.WriteString("# Inspection\n\n")
	if rep.Clean() {
		b.WriteString("_No problems found._\n")
		return b.String()
	}
	for _, s := range rep.Sections() {
		if len(s.Items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		for _, it := range s.Items {
			b.WriteString("- " + it + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// header renders the frontmatter of a catalog page.
func header(kind string) string {
	// A Meta of plain strings always marshals.
	out, _ := frontmatter.Render(frontmatter.Meta{Type: kind, Tags: []string{"potiondb/" + kind}}, "\n")
	return string(out)
}

func tag(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "-"))
}

// noteFiles assigns every distinct name a file base name. Names that
// sanitize to the same base get "-2", "-3", ... in sorted name order.
func noteFiles(names []string) map[string]string {
	files := make(map[string]string)
	taken := make(map[string]bool)
	for _, n := range model.SortedNames(model.Unique(names)) {
		base := sanitizeFilename(n)
		f := base
		for i := 2; taken[strings.ToLower(f)]; i++ {
			f = base + "-" + strconv.Itoa(i)
		}
		taken[strings.ToLower(f)] = true
		files[n] = f
	}
	return files
}

// sanitizeFilename replaces characters that are unsafe in file names or
// wiki links with -, collapses runs of - and trims the result.
func sanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', '#', '[', ']', '^':
			return '-'
		}
		if r < 0x20 {
			return '-'
		}
		return r
	}, s)
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	s = strings.Trim(s, "-. ")
	if s == "" {
		return "untitled"
	}
	return s
}

// writeNote writes content to path, creating parent directories as needed.
func writeNote(path string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
