package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"potiondb/internal/validate"
)

// command describes a CLI subcommand.
type command struct {
	name  string
	short string
	usage string
	long  string
	run   func(args []string) error
}

var commands = []command{
	{
		name:  "init",
		short: "Create a dataset or a named workspace",
		usage: "potiondb init [<workspace>] [--from <dir>]",
		long: `Without a name, create empty data files for the configured backend in
the working directory. Errors if any of them already exists.

With a name, create ~/.potiondb/<workspace>/ seeded with empty data files,
or with copies of the files found in --from.
`,
		run: runInit,
	},
	{
		name:  "workspace",
		short: "List, locate or remove workspaces",
		usage: "potiondb workspace list|path|remove [<name>]",
		long: `Manage the named workspaces under ~/.potiondb/.

  list            print every workspace name
  path <name>     print the data file locations of a workspace
  remove <name>   delete a workspace and its data
`,
		run: runWorkspace,
	},
	{
		name:  "inspect",
		short: "Report dangling references and invalid records",
		usage: "potiondb inspect [--json]",
		long: `Inspect the dataset without modifying it: missing books, invalid or
ambiguous origins, unused ingredients, invalid recipes and duplicate names.
`,
		run: runInspect,
	},
	{
		name:  "validate",
		short: "Validate every record against the catalogs",
		usage: "potiondb validate",
		long: `Validate every ingredient and recipe. Exits non-zero with the first
problem found.
`,
		run: runValidate,
	},
	{
		name:  "ingredients",
		short: "List ingredients",
		usage: "potiondb ingredients [--category <category>]",
		long: `List ingredients in stored order, or one category sorted by difficulty.
`,
		run: runIngredients,
	},
	{
		name:  "recipes",
		short: "List recipes",
		usage: "potiondb recipes",
		long:  "List recipes with their alternatives.\n",
		run:   runRecipes,
	},
	{
		name:  "ingredient",
		short: "Add, update, rename, delete or duplicate an ingredient",
		usage: "potiondb ingredient add|update|rename|delete|duplicate <name> [flags]",
		long: `Edit one ingredient.

  add <name>            --category --difficulty --short --effect --origin --book
  update <name>         same flags; only the given ones change
  rename <old> <new>    rename and rewrite every recipe combo using it
  delete <name>         remove; reports recipes left referencing it
  duplicate <name>      copy as "<name> (copy)"

--origin and --book may be repeated. add prompts for missing fields when
run in a terminal.
`,
		run: runIngredient,
	},
	{
		name:  "recipe",
		short: "Add, update, delete or duplicate a recipe",
		usage: "potiondb recipe add|update|delete|duplicate <name> [flags]",
		long: `Edit one recipe.

  add <name>         --combo "A + B + C" (repeatable) --desc --emoji --bonus --book
  update <name>      same flags; given --combo values replace every alternative,
                     an empty --bonus clears it
  delete <name>
  duplicate <name>
`,
		run: runRecipe,
	},
	{
		name:  "book",
		short: "Manage the books catalog",
		usage: "potiondb book list|add|rename|remove|migrate [<title>...]",
		long: `Manage the books catalog. rename and remove cascade to every record.

  list
  add <title>
  rename <old> <new>
  remove <title>
  migrate <old> [<new>]   rewrite references only; empty <new> removes them
`,
		run: runBook,
	},
	{
		name:  "origin",
		short: "Manage the origin tree",
		usage: "potiondb origin tree|add|rename|remove|migrate [<path>...]",
		long: `Manage the origin tree. Paths separate labels with "/".

  tree
  add <label> [--parent <path>]
  rename <path> <label>
  remove <path>            removes the whole subtree
  migrate <old> [<new>]    rewrite references only; empty <new> removes them
`,
		run: runOrigin,
	},
	{
		name:  "suggest",
		short: "Suggest ingredients by difficulty",
		usage: "potiondb suggest <category> | potiondb suggest combo [flags]",
		long: `List one category sorted by difficulty, or complete a combo:

  combo --binder --catalyst --reactant   fixed slots
        --hardest                       pick the hardest candidates
        --book --origin                 restrict candidates (repeatable)
`,
		run: runSuggest,
	},
	{
		name:  "export",
		short: "Export the dataset",
		usage: "potiondb export <format> <output-dir> [--prompt]",
		long: `Export the dataset with one of the registered formats (vault, sqlite).
Settings come from the exporters section of potiondb.yaml; --prompt asks
for them interactively.
`,
		run: runExport,
	},
	{
		name:  "watch",
		short: "Re-inspect the dataset whenever its files change",
		usage: "potiondb watch",
		long:  "Watch the data files and print a fresh inspection after every change.\n",
		run:   runWatch,
	},
	{
		name:  "sync",
		short: "Copy the dataset between backends",
		usage: "potiondb sync <from> <to>",
		long: `Copy the whole dataset from one backend to the other, e.g.
"potiondb sync files sqlite".
`,
		run: runSync,
	},
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "potiondb: alchemy ingredient and recipe catalog\n\n")
	fmt.Fprintf(w, "Usage:\n  potiondb [-v] <command> [arguments]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", cmd.name, cmd.short)
	}
	fmt.Fprintf(w, "\nRun 'potiondb help <command>' for details on a specific command.\n")
}

func printCommandHelp(w io.Writer, name string) {
	for _, cmd := range commands {
		if cmd.name == name {
			fmt.Fprintf(w, "Usage: %s\n\n%s", cmd.usage, cmd.long)
			return
		}
	}
	fmt.Fprintf(w, "potiondb: unknown command %q\n\nRun 'potiondb help' for usage.\n", name)
}

func commandNames() []string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	return names
}

// unknown builds the error for a word matching none of names.
func unknown(what, word string, names []string) error {
	msg := fmt.Sprintf("unknown %s %q", what, word)
	if s, ok := validate.Closest(word, names); ok {
		msg += fmt.Sprintf(" (did you mean %q?)", s)
	}
	return fmt.Errorf("%s\n\nRun 'potiondb help' for usage.", msg)
}

func dispatch(args []string) error {
	for len(args) > 0 && (args[0] == "-v" || args[0] == "--verbose") {
		verbose = true
		args = args[1:]
	}
	if len(args) == 0 || args[0] == "--help" || args[0] == "-h" {
		printUsage(stdout)
		return nil
	}
	if args[0] == "help" {
		if len(args) >= 2 {
			printCommandHelp(stdout, args[1])
		} else {
			printUsage(stdout)
		}
		return nil
	}
	for _, cmd := range commands {
		if cmd.name == args[0] {
			return cmd.run(args[1:])
		}
	}
	return unknown("command", args[0], commandNames())
}

func main() {
	if err := dispatch(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "potiondb: "+strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
