// Package plugin defines the contract shared by dataset exporters.
package plugin

import "potiondb/internal/model"

// ConfigQuestion describes a single configuration prompt for an exporter.
type ConfigQuestion struct {
	Key     string
	Prompt  string
	Type    string // "text"
	Default string
}

// Exporter is the interface every export format implements.
type Exporter interface {
	// Name returns the format's short identifier (e.g. "vault").
	Name() string

	// Configure returns the questions the exporter needs answered before it can run.
	Configure() ([]ConfigQuestion, error)

	// Export writes ds into outputDir using the provided config key/value pairs.
	Export(ds *model.Dataset, config map[string]string, outputDir string) error
}

// Registry maps format names to exporters.
type Registry map[string]Exporter

// NewRegistry indexes exporters by Name.
func NewRegistry(exporters ...Exporter) Registry {
	r := make(Registry, len(exporters))
	for _, e := range exporters {
		r[e.Name()] = e
	}
	return r
}

// Names returns the registered format names, sorted.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for n := range r {
		names = append(names, n)
	}
	return model.SortedNames(names)
}

// Defaults returns the default answer of every question of e.
func Defaults(e Exporter) (map[string]string, error) {
	qs, err := e.Configure()
	if err != nil {
		return nil, err
	}
	cfg := make(map[string]string, len(qs))
	for _, q := range qs {
		cfg[q.Key] = q.Default
	}
	return cfg, nil
}
