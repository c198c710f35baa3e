package plugin_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"potiondb/internal/model"
	"potiondb/internal/plugin"
)

type fakeExporter struct {
	name string
	qs   []plugin.ConfigQuestion
	err  error
}

func (f fakeExporter) Name() string { return f.name }
func (f fakeExporter) Configure() ([]plugin.ConfigQuestion, error) { return f.qs, f.err }
func (f fakeExporter) Export(*model.Dataset, map[string]string, string) error { return nil }

func TestRegistryNames(t *testing.T) {
	r := plugin.NewRegistry(fakeExporter{name: "vault"}, fakeExporter{name: "sqlite"})
	if diff := cmp.Diff([]string{"sqlite", "vault"}, r.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
	if _, ok := r["vault"]; !ok {
		t.Error("vault not registered")
	}
}

func TestDefaults(t *testing.T) {
	e := fakeExporter{name: "vault", qs: []plugin.ConfigQuestion{
		{Key: "title", Prompt: "Title", Type: "text", Default: "Potion Catalog"},
		{Key: "empty", Prompt: "Empty", Type: "text"},
	}}
	got, err := plugin.Defaults(e)
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"title": "Potion Catalog", "empty": ""}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Defaults (-want +got):\n%s", diff)
	}

	boom := errors.New("boom")
	if _, err := plugin.Defaults(fakeExporter{err: boom}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}
