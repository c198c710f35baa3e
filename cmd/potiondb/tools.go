package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"potiondb/internal/export"
	"potiondb/internal/integrity"
	"potiondb/internal/model"
	"potiondb/internal/plugin"
	"potiondb/internal/store"
	"potiondb/internal/suggest"
	"potiondb/internal/watch"
)

// ---------------------------------------------------------------------------
// inspect / validate
// ---------------------------------------------------------------------------

func runInspect(args []string) error {
	const usage = "potiondb inspect [--json]"
	fs := newFlags("inspect")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	pos, err := parseArgs(fs, args, usage)
	if err != nil {
		return err
	}
	if len(pos) != 0 {
		return usageErr(usage)
	}
	return withApp(func(a *app) error {
		rep, err := a.svc.Inspect(context.Background())
		if err != nil {
			return err
		}
		if *asJSON {
			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		fmt.Fprint(stdout, renderReport(rep))
		return nil
	})
}

func runValidate(args []string) error {
	if len(args) != 0 {
		return usageErr("potiondb validate")
	}
	return withApp(func(a *app) error {
		ctx := context.Background()
		if err := a.svc.ValidateDataset(ctx); err != nil {
			return err
		}
		ds, err := a.svc.Dataset(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "dataset is valid (%d ingredients, %d recipes)\n", ds.Ingredients.Len(), ds.Recipes.Len())
		return nil
	})
}

// ---------------------------------------------------------------------------
// suggest
// ---------------------------------------------------------------------------

func runSuggest(args []string) error {
	const usage = "potiondb suggest <category> | potiondb suggest combo [flags]"
	if len(args) == 0 {
		return usageErr(usage)
	}
	if args[0] == "combo" {
		return suggestCombo(args[1:])
	}
	if len(args) != 1 {
		return usageErr(usage)
	}
	return withApp(func(a *app) error {
		ds, err := a.svc.Dataset(context.Background())
		if err != nil {
			return err
		}
		items, err := suggest.ByCategory(ds, args[0])
		if err != nil {
			return err
		}
		for _, ing := range items {
			fmt.Fprintf(stdout, "%3d  %s\n", ing.Difficulty, ing.Name)
		}
		return nil
	})
}

func suggestCombo(args []string) error {
	const usage = "potiondb suggest combo [--binder b] [--catalyst c] [--reactant r] [--hardest] [--book b]... [--origin o]..."
	fs := newFlags("suggest combo")
	var partial suggest.Combo
	var opts suggest.Options
	var books, origins listFlag
	fs.StringVar(&partial.Binder, "binder", "", "fixed binder")
	fs.StringVar(&partial.Catalyst, "catalyst", "", "fixed catalyst")
	fs.StringVar(&partial.Reactant, "reactant", "", "fixed reactant")
	fs.BoolVar(&opts.Hardest, "hardest", false, "pick the hardest candidates")
	fs.Var(&books, "book", "restrict to a book (repeatable)")
	fs.Var(&origins, "origin", "restrict to an origin (repeatable)")
	pos, err := parseArgs(fs, args, usage)
	if err != nil {
		return err
	}
	if len(pos) != 0 {
		return usageErr(usage)
	}
	opts.Books, opts.Origins = books, origins

	return withApp(func(a *app) error {
		ds, err := a.svc.Dataset(context.Background())
		if err != nil {
			return err
		}
		combo := suggest.CompleteCombo(ds, partial, opts)
		slots := []struct {
			cat  model.Category
			name string
		}{{model.Binder, combo.Binder}, {model.Catalyst, combo.Catalyst}, {model.Reactant, combo.Reactant}}
		for _, s := range slots {
			name := s.name
			if name == "" {
				name = "(no candidate)"
			}
			fmt.Fprintf(stdout, "%-9s %s\n", s.cat, name)
		}
		d, err := suggest.Difficulty(ds, combo.Members())
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "difficulty %d\n", d)
		return nil
	})
}

// ---------------------------------------------------------------------------
// export
// ---------------------------------------------------------------------------

func exporters(a *app) plugin.Registry {
	return plugin.NewRegistry(export.Vault{}, store.SQLiteExporter{Log: a.log})
}

func runExport(args []string) error {
	const usage = "potiondb export <format> <output-dir> [--prompt]"
	fs := newFlags("export")
	ask := fs.Bool("prompt", false, "ask for the exporter settings")
	pos, err := parseArgs(fs, args, usage)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return usageErr(usage)
	}
	format, outputDir := pos[0], pos[1]

	return withApp(func(a *app) error {
		reg := exporters(a)
		e, ok := reg[format]
		if !ok {
			return unknown("export format", format, reg.Names())
		}
		settings, err := plugin.Defaults(e)
		if err != nil {
			return fmt.Errorf("configure %s: %w", format, err)
		}
		for k, v := range a.cfg.Exporter(format) {
			settings[k] = v
		}
		if *ask {
			qs, err := e.Configure()
			if err != nil {
				return fmt.Errorf("configure %s: %w", format, err)
			}
			for i := range qs {
				qs[i].Default = settings[qs[i].Key]
			}
			answers, err := promptQuestions(qs)
			if err != nil {
				return fmt.Errorf("prompt: %w", err)
			}
			for k, v := range answers {
				if strings.TrimSpace(v) != "" {
					settings[k] = v
				}
			}
		}

		ds, err := a.svc.Dataset(context.Background())
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", outputDir, err)
		}
		if err := e.Export(ds, settings, outputDir); err != nil {
			return fmt.Errorf("export %s: %w", format, err)
		}
		a.log.Info("dataset exported", zap.String("format", format), zap.String("dir", outputDir))
		fmt.Fprintf(stdout, "exported %d ingredients and %d recipes as %s to %s\n",
			ds.Ingredients.Len(), ds.Recipes.Len(), format, outputDir)
		return nil
	})
}

// ---------------------------------------------------------------------------
// watch / sync
// ---------------------------------------------------------------------------

func runWatch(args []string) error {
	if len(args) != 0 {
		return usageErr("potiondb watch")
	}
	return withApp(func(a *app) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		rep, err := a.svc.Inspect(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, renderReport(rep))

		w, err := watch.New(a.st, a.dataPaths(a.cfg.Backend), func(rep integrity.Report, err error) {
			if err != nil {
				fmt.Fprintf(stdout, "reload failed: %v\n", err)
				return
			}
			fmt.Fprint(stdout, renderReport(rep))
		}, a.log)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "watching for changes (Ctrl-C to stop)")
		<-ctx.Done()
		w.Stop()
		return nil
	})
}

func runSync(args []string) error {
	const usage = "potiondb sync <from> <to>"
	if len(args) != 2 {
		return usageErr(usage)
	}
	from, err := backendName(args[0])
	if err != nil {
		return err
	}
	to, err := backendName(args[1])
	if err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("source and destination are both %s\n%w", from, usageErr(usage))
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.log.Sync()
	src, err := e.openStore(from)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := e.openStore(to)
	if err != nil {
		return err
	}
	defer dst.Close()

	ds, err := store.Copy(context.Background(), dst, src)
	if err != nil {
		return err
	}
	e.log.Info("dataset synced", zap.String("from", from), zap.String("to", to))
	fmt.Fprintf(stdout, "copied %d ingredients and %d recipes from %s to %s\n",
		ds.Ingredients.Len(), ds.Recipes.Len(), from, to)
	return nil
}
