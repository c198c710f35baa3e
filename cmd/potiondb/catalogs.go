package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"potiondb/internal/migrate"
	"potiondb/internal/model"
	"potiondb/internal/store"
	"potiondb/internal/workspace"
)

func printResult(res migrate.Result) {
	if res.Touched() == 0 {
		fmt.Fprintln(stdout, "no record referenced it")
		return
	}
	printList("updated ingredients", res.Ingredients)
	printList("updated recipes", res.Recipes)
}

// optionalTarget returns args[1], or "" when only the source was given.
func optionalTarget(args []string) string {
	if len(args) == 2 {
		return args[1]
	}
	return ""
}

// ---------------------------------------------------------------------------
// book
// ---------------------------------------------------------------------------

func runBook(args []string) error {
	return runGroup("book", []subcommand{
		{"list", "potiondb book list", bookList},
		{"add", "potiondb book add <title>", bookAdd},
		{"rename", "potiondb book rename <old> <new>", bookRename},
		{"remove", "potiondb book remove <title>", bookRemove},
		{"migrate", "potiondb book migrate <old> [<new>]", bookMigrate},
	}, args)
}

func bookList(args []string) error {
	if len(args) != 0 {
		return usageErr("potiondb book list")
	}
	return withApp(func(a *app) error {
		books, err := a.svc.Books(context.Background())
		if err != nil {
			return err
		}
		for _, b := range books {
			fmt.Fprintln(stdout, b)
		}
		return nil
	})
}

func bookAdd(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb book add <title>")
	}
	return withApp(func(a *app) error {
		if err := a.svc.AddBook(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "added book %q\n", strings.TrimSpace(args[0]))
		return nil
	})
}

func bookRename(args []string) error {
	if len(args) != 2 {
		return usageErr("potiondb book rename <old> <new>")
	}
	return withApp(func(a *app) error {
		res, err := a.svc.RenameBook(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "renamed book %q to %q\n", args[0], args[1])
		printResult(res)
		return nil
	})
}

func bookRemove(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb book remove <title>")
	}
	return withApp(func(a *app) error {
		res, err := a.svc.RemoveBook(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "removed book %q\n", args[0])
		printResult(res)
		return nil
	})
}

func bookMigrate(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageErr("potiondb book migrate <old> [<new>]")
	}
	return withApp(func(a *app) error {
		res, err := a.svc.MigrateBookRefs(context.Background(), args[0], optionalTarget(args))
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	})
}

// ---------------------------------------------------------------------------
// origin
// ---------------------------------------------------------------------------

func runOrigin(args []string) error {
	return runGroup("origin", []subcommand{
		{"tree", "potiondb origin tree", originTree},
		{"add", "potiondb origin add <label> [--parent <path>]", originAdd},
		{"rename", "potiondb origin rename <path> <label>", originRename},
		{"remove", "potiondb origin remove <path>", originRemove},
		{"migrate", "potiondb origin migrate <old> [<new>]", originMigrate},
	}, args)
}

func originTree(args []string) error {
	if len(args) != 0 {
		return usageErr("potiondb origin tree")
	}
	return withApp(func(a *app) error {
		tree, err := a.svc.OriginTree(context.Background())
		if err != nil {
			return err
		}
		if tree.Len() == 0 {
			fmt.Fprintln(stdout, "(empty)")
			return nil
		}
		fmt.Fprint(stdout, renderTree(tree))
		return nil
	})
}

func originAdd(args []string) error {
	const usage = "potiondb origin add <label> [--parent <path>]"
	fs := newFlags("origin add")
	parent := fs.String("parent", "", "path of the parent node")
	pos, err := parseArgs(fs, args, usage)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usageErr(usage)
	}
	return withApp(func(a *app) error {
		path, err := a.svc.AddOrigin(context.Background(), *parent, pos[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "added origin %s\n", path)
		return nil
	})
}

func originRename(args []string) error {
	if len(args) != 2 {
		return usageErr("potiondb origin rename <path> <label>")
	}
	return withApp(func(a *app) error {
		res, err := a.svc.RenameOrigin(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "renamed origin %s to %q\n", args[0], args[1])
		printResult(res)
		return nil
	})
}

func originRemove(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb origin remove <path>")
	}
	return withApp(func(a *app) error {
		res, err := a.svc.RemoveOrigin(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "removed origin %s\n", args[0])
		printResult(res)
		return nil
	})
}

func originMigrate(args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usageErr("potiondb origin migrate <old> [<new>]")
	}
	return withApp(func(a *app) error {
		res, err := a.svc.MigrateOriginRefs(context.Background(), args[0], optionalTarget(args))
		if err != nil {
			return err
		}
		printResult(res)
		return nil
	})
}

// ---------------------------------------------------------------------------
// init / workspace
// ---------------------------------------------------------------------------

func runInit(args []string) error {
	const usage = "potiondb init [<workspace>] [--from <dir>]"
	fs := newFlags("init")
	from := fs.String("from", "", "copy the data files of this directory")
	pos, err := parseArgs(fs, args, usage)
	if err != nil {
		return err
	}
	switch {
	case len(pos) > 1:
		return usageErr(usage)
	case len(pos) == 1:
		w, err := workspace.InitFrom(pos[0], *from)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created workspace %q at %s\n", w.Name, w.Dir)
		return nil
	case *from != "":
		return fmt.Errorf("--from needs a workspace name\n%w", usageErr(usage))
	}

	// Checked before opening: the sqlite backend creates its file on open.
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.log.Sync()
	for _, p := range e.dataPaths(e.cfg.Backend) {
		if _, err := os.Stat(p); err == nil {
			return model.Errorf(model.KindDuplicateName, "%s already exists", p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return model.Wrap(err, "stat %s", p)
		}
	}
	st, err := e.openStore(e.cfg.Backend)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Commit(context.Background(), model.NewDataset()); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "initialized empty %s dataset\n", e.cfg.Backend)
	return nil
}

func runWorkspace(args []string) error {
	return runGroup("workspace", []subcommand{
		{"list", "potiondb workspace list", workspaceList},
		{"path", "potiondb workspace path <name>", workspacePath},
		{"remove", "potiondb workspace remove <name>", workspaceRemove},
	}, args)
}

func workspaceList(args []string) error {
	if len(args) != 0 {
		return usageErr("potiondb workspace list")
	}
	names, err := workspace.List()
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(stdout, n)
	}
	return nil
}

func workspacePath(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb workspace path <name>")
	}
	w, err := workspace.Open(args[0])
	if err != nil {
		return err
	}
	p := w.Paths()
	fmt.Fprintf(stdout, "ingredients: %s\nrecipes:     %s\ndata.js:     %s\nsqlite:      %s\n",
		p.Ingredients, p.Recipes, p.DataJS, p.SQLite)
	return nil
}

func workspaceRemove(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb workspace remove <name>")
	}
	if err := workspace.Remove(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "removed workspace %q\n", args[0])
	return nil
}

// backendName validates a backend argument of sync.
func backendName(s string) (string, error) {
	switch b := strings.ToLower(strings.TrimSpace(s)); b {
	case store.BackendFiles, store.BackendSQLite:
		return b, nil
	default:
		return "", fmt.Errorf("unknown backend %q (want %s or %s)", s, store.BackendFiles, store.BackendSQLite)
	}
}
