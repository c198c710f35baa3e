package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"potiondb/internal/catalog"
	"potiondb/internal/config"
	"potiondb/internal/logging"
	"potiondb/internal/store"
)

var (
	stdout  io.Writer = os.Stdout
	verbose bool
)

// env is the resolved configuration and logger of one invocation.
type env struct {
	cfg *config.Config
	log *zap.Logger
}

func loadEnv() (*env, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("working directory: %w", err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.LogLevel, verbose)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log}, nil
}

func (e *env) openStore(backend string) (store.Store, error) {
	return store.Open(store.Options{
		Backend:         backend,
		IngredientsPath: e.cfg.IngredientsPath,
		RecipesPath:     e.cfg.RecipesPath,
		DataJSPath:      e.cfg.DataJSPath,
		SQLitePath:      e.cfg.SQLitePath,
		Logger:          e.log,
	})
}

// dataPaths lists the files holding the dataset of backend.
func (e *env) dataPaths(backend string) []string {
	if backend == store.BackendSQLite {
		return []string{e.cfg.SQLitePath, e.cfg.SQLitePath + "-wal"}
	}
	return []string{e.cfg.IngredientsPath, e.cfg.RecipesPath, e.cfg.DataJSPath}
}

// app is an env with the configured store and a catalog service over it.
type app struct {
	*env
	st  store.Store
	svc *catalog.Service
}

func openApp() (*app, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, err
	}
	st, err := e.openStore(e.cfg.Backend)
	if err != nil {
		return nil, err
	}
	e.log.Debug("store opened", zap.String("backend", e.cfg.Backend))
	return &app{env: e, st: st, svc: catalog.New(st, e.log)}, nil
}

func (a *app) close() {
	if err := a.st.Close(); err != nil {
		a.log.Warn("closing store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// withApp opens the app around fn.
func withApp(fn func(a *app) error) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

// ---------------------------------------------------------------------------
// Argument helpers
// ---------------------------------------------------------------------------

func usageErr(usage string) error {
	return fmt.Errorf("usage: %s", usage)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// parseArgs parses fs from args, allowing flags after positional
// arguments, and returns the positional ones.
func parseArgs(fs *flag.FlagSet, args []string, usage string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, usageErr(usage)
			}
			return nil, fmt.Errorf("%v\n%w", err, usageErr(usage))
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return pos, nil
		}
		pos = append(pos, rest[0])
		args = rest[1:]
	}
}

// setFlags returns the names of the flags given on the command line.
func setFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// listFlag is a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// subcommand is one verb of a command group such as "book rename".
type subcommand struct {
	name  string
	usage string
	run   func(args []string) error
}

func runGroup(group string, subs []subcommand, args []string) error {
	names := make([]string, len(subs))
	for i, s := range subs {
		names[i] = s.name
	}
	if len(args) == 0 {
		lines := make([]string, len(subs))
		for i, s := range subs {
			lines[i] = "  " + s.usage
		}
		return fmt.Errorf("usage: potiondb %s %s\n%s", group, strings.Join(names, "|"), strings.Join(lines, "\n"))
	}
	for _, s := range subs {
		if s.name == args[0] {
			return s.run(args[1:])
		}
	}
	return unknown(group+" subcommand", args[0], names)
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(stdout, "%s: %s\n", title, strings.Join(items, ", "))
}
