package store_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"potiondb/internal/model"
	"potiondb/internal/store"
)

const sampleDataJS = `// Generated by hand
export const ORIGIN_TREE = {
  "Tothymia": {
    "Silvanea": { "Elenart": {}, },   // trailing comma
    'Terragard': {}
  },
  /* a second realm */
  "Varn": "legacy leaf"
};

const BOOKS = [
  "Herbal Basics",
  "Bestiary // of Catalysts",
  "Herbal Basics",
];
`

func TestDecodeDataJS(t *testing.T) {
	books, tree, err := store.DecodeDataJS([]byte(sampleDataJS))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Herbal Basics", "Bestiary // of Catalysts"}, books); diff != "" {
		t.Errorf("books mismatch (-want +got):\n%s", diff)
	}
	want := []string{"Tothymia", "Tothymia/Silvanea", "Tothymia/Silvanea/Elenart", "Tothymia/Terragard", "Varn"}
	if diff := cmp.Diff(want, tree.Paths()); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeDataJSMissingParts(t *testing.T) {
	books, tree, err := store.DecodeDataJS(nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(books) != 0 || tree.Len() != 0 {
		t.Errorf("empty input: books=%v nodes=%d", books, tree.Len())
	}

	books, tree, err = store.DecodeDataJS([]byte(`export const BOOKS = ["Only"];`))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Only"}, books); diff != "" {
		t.Errorf("books (-want +got):\n%s", diff)
	}
	if tree.Len() != 0 {
		t.Errorf("tree should be empty, has %d nodes", tree.Len())
	}
}

func TestDecodeDataJSUnterminated(t *testing.T) {
	if _, _, err := store.DecodeDataJS([]byte(`export const ORIGIN_TREE = { "A": {`)); err == nil {
		t.Error("expected error for unterminated literal")
	}
}

func TestDecodeDataJSLooseLiterals(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantPaths []string
		wantBooks []string
	}{
		{
			name:      "bare keys without spaces",
			src:       `export const ORIGIN_TREE = {A:{B:{}},$c_1 : {}};`,
			wantPaths: []string{"A", "A/B", "$c_1"},
		},
		{
			name:      "escaped quote in single-quoted string",
			src:       `export const ORIGIN_TREE = {'Faune d\'Aqualine': {}}; export const BOOKS = ['L\'herbier'];`,
			wantPaths: []string{"Faune d'Aqualine"},
			wantBooks: []string{"L'herbier"},
		},
		{
			name:      "js escapes",
			src:       `export const BOOKS = ["Caf\u00e9", 'Tab\there', "\x41\u{1F9EA}", "\uD83E\uDDEA", "say \'hi\'"];`,
			wantBooks: []string{"Café", "Tab\there", "A🧪", "🧪", "say 'hi'"},
		},
		{
			name:      "template literal and numeric key",
			src:       "export const ORIGIN_TREE = {`Varn`: {}, 7: {}};",
			wantPaths: []string{"Varn", "7"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			books, tree, err := store.DecodeDataJS([]byte(tc.src))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.wantPaths, tree.Paths(), cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("tree (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tc.wantBooks, books, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("books (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeDataJSRejectsUnusableKeys(t *testing.T) {
	for _, src := range []string{
		`export const ORIGIN_TREE = {"North/South": {"Child": {}}, "X": {}};`,
		`export const ORIGIN_TREE = {"X": {"": {}}};`,
	} {
		_, _, err := store.DecodeDataJS([]byte(src))
		if err == nil {
			t.Errorf("%s: expected error", src)
			continue
		}
		if !strings.Contains(err.Error(), "origin key") {
			t.Errorf("%s: error should name the key: %v", src, err)
		}
	}
}

func TestDecodeDataJSTemplateSubstitution(t *testing.T) {
	if _, _, err := store.DecodeDataJS([]byte("export const BOOKS = [`${x}`];")); err == nil {
		t.Error("expected error for template substitution")
	}
}

func TestDataJSRoundTrip(t *testing.T) {
	tree := model.NewTree()
	a, _ := tree.Add(model.Root, "Zeta")
	tree.Add(a, "Élan \"quoted\"")
	tree.Add(model.Root, "Alpha")
	books := []string{"B", "A"}

	data := store.EncodeDataJS(books, tree)
	gotBooks, gotTree, err := store.DecodeDataJS(data)
	if err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	if diff := cmp.Diff(books, gotBooks); diff != "" {
		t.Errorf("books (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(tree.Paths(), gotTree.Paths()); diff != "" {
		t.Errorf("tree order not preserved (-want +got):\n%s", diff)
	}
}

func TestEncodeDataJSEmpty(t *testing.T) {
	got := string(store.EncodeDataJS(nil, model.NewTree()))
	want := "export const ORIGIN_TREE = {};\n\nexport const BOOKS = [];\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
