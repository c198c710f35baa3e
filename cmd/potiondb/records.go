package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mattn/go-isatty"

	"potiondb/internal/model"
	"potiondb/internal/plugin"
	"potiondb/internal/suggest"
)

// ---------------------------------------------------------------------------
// ingredients / recipes
// ---------------------------------------------------------------------------

func runIngredients(args []string) error {
	const usage = "potiondb ingredients [--category <category>]"
	fs := newFlags("ingredients")
	category := fs.String("category", "", "only this category, sorted by difficulty")
	pos, err := parseArgs(fs, args, usage)
	if err != nil {
		return err
	}
	if len(pos) != 0 {
		return usageErr(usage)
	}
	return withApp(func(a *app) error {
		ctx := context.Background()
		var items []model.Ingredient
		if *category != "" {
			ds, err := a.svc.Dataset(ctx)
			if err != nil {
				return err
			}
			if items, err = suggest.ByCategory(ds, *category); err != nil {
				return err
			}
		} else if items, err = a.svc.Ingredients(ctx); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tCATEGORY\tDIFFICULTY\tORIGINS\tBOOKS")
		for _, ing := range items {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", ing.Name, ing.Category, ing.Difficulty,
				strings.Join(ing.Origins, ", "), strings.Join(ing.Books, ", "))
		}
		return tw.Flush()
	})
}

func runRecipes(args []string) error {
	if len(args) != 0 {
		return usageErr("potiondb recipes")
	}
	return withApp(func(a *app) error {
		recs, err := a.svc.Recipes(context.Background())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tALTERNATIVES\tBOOKS")
		for _, r := range recs {
			alts := make([]string, len(r.Combos))
			for i, c := range r.Combos {
				alts[i] = strings.Join(c, " + ")
			}
			name := r.Name
			if r.Emoji != "" {
				name = r.Emoji + " " + name
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, strings.Join(alts, " | "), strings.Join(r.Books, ", "))
		}
		return tw.Flush()
	})
}

// ---------------------------------------------------------------------------
// ingredient
// ---------------------------------------------------------------------------

func runIngredient(args []string) error {
	return runGroup("ingredient", []subcommand{
		{"add", "potiondb ingredient add <name> [--category c] [--difficulty n] [--short s] [--effect e] [--origin o]... [--book b]...", ingredientAdd},
		{"update", "potiondb ingredient update <name> [flags]", ingredientUpdate},
		{"rename", "potiondb ingredient rename <old> <new>", ingredientRename},
		{"delete", "potiondb ingredient delete <name>", ingredientDelete},
		{"duplicate", "potiondb ingredient duplicate <name>", ingredientDuplicate},
	}, args)
}

// ingredientFlags binds the editable fields of an ingredient.
type ingredientFlags struct {
	category   *string
	difficulty *int
	short      *string
	effect     *string
	origins    listFlag
	books      listFlag
}

func bindIngredientFlags(name string) (*ingredientFlags, *flag.FlagSet) {
	fs := newFlags(name)
	f := &ingredientFlags{
		category:   fs.String("category", "", "Binder, Catalyst or Reactant"),
		difficulty: fs.Int("difficulty", 0, "difficulty"),
		short:      fs.String("short", "", "short effect"),
		effect:     fs.String("effect", "", "full effect"),
	}
	fs.Var(&f.origins, "origin", "origin label or path (repeatable)")
	fs.Var(&f.books, "book", "book title (repeatable)")
	return f, fs
}

// apply copies the flags given on the command line onto ing.
func (f *ingredientFlags) apply(ing *model.Ingredient, set map[string]bool) {
	if set["category"] {
		ing.Category = model.Category(*f.category)
	}
	if set["difficulty"] {
		ing.Difficulty = *f.difficulty
	}
	if set["short"] {
		ing.ShortEffect = *f.short
	}
	if set["effect"] {
		ing.Effect = *f.effect
	}
	if set["origin"] {
		ing.Origins = f.origins
	}
	if set["book"] {
		ing.Books = f.books
	}
}

// ingredientQuestions asks for the scalar fields not given as flags.
func ingredientQuestions(set map[string]bool) []plugin.ConfigQuestion {
	var qs []plugin.ConfigQuestion
	for _, q := range []plugin.ConfigQuestion{
		{Key: "category", Prompt: "Category (Binder, Catalyst, Reactant)", Type: "text"},
		{Key: "difficulty", Prompt: "Difficulty", Type: "text", Default: "0"},
		{Key: "short", Prompt: "Short effect", Type: "text"},
		{Key: "effect", Prompt: "Effect", Type: "text"},
	} {
		if !set[q.Key] {
			qs = append(qs, q)
		}
	}
	return qs
}

func ingredientAdd(args []string) error {
	const usage = "potiondb ingredient add <name> [--category c] [--difficulty n] [--short s] [--effect e] [--origin o]... [--book b]..."
	f, fs := bindIngredientFlags("ingredient add")
	pos, err := parseArgs(fs, args, usage)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usageErr(usage)
	}
	set := setFlags(fs)
	ing := model.Ingredient{Name: pos[0]}
	f.apply(&ing, set)

	if !set["category"] {
		if !isatty.IsTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("missing --category\n%w", usageErr(usage))
		}
		answers, err := promptQuestions(ingredientQuestions(set))
		if err != nil {
			return err
		}
		ing.Category = model.Category(answers["category"])
		if v, ok := answers["difficulty"]; ok && strings.TrimSpace(v) != "" {
			d, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return model.Errorf(model.KindValidation, "difficulty must be an integer: %q", v)
			}
			ing.Difficulty = d
		}
		if v, ok := answers["short"]; ok {
			ing.ShortEffect = v
		}
		if v, ok := answers["effect"]; ok {
			ing.Effect = v
		}
	}

	return withApp(func(a *app) error {
		stored, err := a.svc.CreateIngredient(context.Background(), ing)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "added ingredient %q (%s, difficulty %d)\n", stored.Name, stored.Category, stored.Difficulty)
		return nil
	})
}

func ingredientUpdate(args []string) error {
	const usage = "potiondb ingredient update <name> [--category c] [--difficulty n] [--short s] [--effect e] [--origin o]... [--book b]..."
	f, fs := bindIngredientFlags("ingredient update")
	pos, err := parseArgs(fs, args, usage)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usageErr(usage)
	}
	set := setFlags(fs)
	if len(set) == 0 {
		return fmt.Errorf("nothing to update\n%w", usageErr(usage))
	}
	return withApp(func(a *app) error {
		ctx := context.Background()
		ds, err := a.svc.Dataset(ctx)
		if err != nil {
			return err
		}
		ing, err := ds.Ingredients.Get(pos[0])
		if err != nil {
			return err
		}
		f.apply(&ing, set)
		stored, err := a.svc.UpdateIngredient(ctx, ing)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "updated ingredient %q\n", stored.Name)
		return nil
	})
}

func ingredientRename(args []string) error {
	if len(args) != 2 {
		return usageErr("potiondb ingredient rename <old> <new>")
	}
	return withApp(func(a *app) error {
		recs, err := a.svc.RenameIngredient(context.Background(), args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "renamed ingredient %q to %q\n", args[0], args[1])
		printList("updated recipes", recs)
		return nil
	})
}

func ingredientDelete(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb ingredient delete <name>")
	}
	return withApp(func(a *app) error {
		broken, err := a.svc.DeleteIngredient(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted ingredient %q\n", args[0])
		printList("warning: recipes still using it", broken)
		return nil
	})
}

func ingredientDuplicate(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb ingredient duplicate <name>")
	}
	return withApp(func(a *app) error {
		name, err := a.svc.DuplicateIngredient(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created ingredient %q\n", name)
		return nil
	})
}

// ---------------------------------------------------------------------------
// recipe
// ---------------------------------------------------------------------------

func runRecipe(args []string) error {
	return runGroup("recipe", []subcommand{
		{"add", recipeAddUsage, recipeAdd},
		{"update", recipeUpdateUsage, recipeUpdate},
		{"delete", "potiondb recipe delete <name>", recipeDelete},
		{"duplicate", "potiondb recipe duplicate <name>", recipeDuplicate},
	}, args)
}

const (
	recipeAddUsage    = "potiondb recipe add <name> --combo \"A + B + C\"... [--desc d] [--emoji e] [--bonus n] [--book b]..."
	recipeUpdateUsage = "potiondb recipe update <name> [--combo \"A + B + C\"]... [--desc d] [--emoji e] [--bonus n] [--book b]..."
)

// parseCombo splits "A + B + C" into member names.
func parseCombo(s string) []string {
	var out []string
	for _, m := range strings.Split(s, "+") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

type recipeFlags struct {
	desc   *string
	emoji  *string
	bonus  *string
	combos listFlag
	books  listFlag
}

func bindRecipeFlags(name string) (*recipeFlags, *flag.FlagSet) {
	fs := newFlags(name)
	f := &recipeFlags{
		desc:  fs.String("desc", "", "description"),
		emoji: fs.String("emoji", "", "emoji"),
		bonus: fs.String("bonus", "", "bonus value (empty clears it)"),
	}
	fs.Var(&f.combos, "combo", "alternative as \"A + B + C\" (repeatable)")
	fs.Var(&f.books, "book", "book title (repeatable)")
	return f, fs
}

// apply copies the flags given on the command line onto r. Given combos
// replace every alternative.
func (f *recipeFlags) apply(r *model.Recipe, set map[string]bool) error {
	if set["desc"] {
		r.Desc = *f.desc
	}
	if set["emoji"] {
		r.Emoji = *f.emoji
	}
	if set["book"] {
		r.Books = f.books
	}
	if set["combo"] {
		r.Combos = nil
		for _, c := range f.combos {
			r.AddCombo(parseCombo(c)...)
		}
	}
	if set["bonus"] {
		r.Bonus = nil
		if v := strings.TrimSpace(*f.bonus); v != "" {
			b, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return model.Errorf(model.KindValidation, "bonus must be a number: %q", *f.bonus)
			}
			r.Bonus = &b
		}
	}
	return nil
}

func recipeAdd(args []string) error {
	f, fs := bindRecipeFlags("recipe add")
	pos, err := parseArgs(fs, args, recipeAddUsage)
	if err != nil {
		return err
	}
	if len(pos) != 1 || len(f.combos) == 0 {
		return usageErr(recipeAddUsage)
	}
	r := model.Recipe{Name: pos[0]}
	if err := f.apply(&r, setFlags(fs)); err != nil {
		return err
	}

	return withApp(func(a *app) error {
		stored, err := a.svc.CreateRecipe(context.Background(), r)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "added recipe %q with %d alternative(s)\n", stored.Name, len(stored.Combos))
		return nil
	})
}

func recipeUpdate(args []string) error {
	f, fs := bindRecipeFlags("recipe update")
	pos, err := parseArgs(fs, args, recipeUpdateUsage)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return usageErr(recipeUpdateUsage)
	}
	set := setFlags(fs)
	if len(set) == 0 {
		return fmt.Errorf("nothing to update\n%w", usageErr(recipeUpdateUsage))
	}
	return withApp(func(a *app) error {
		ctx := context.Background()
		ds, err := a.svc.Dataset(ctx)
		if err != nil {
			return err
		}
		r, err := ds.Recipes.Get(pos[0])
		if err != nil {
			return err
		}
		if err := f.apply(&r, set); err != nil {
			return err
		}
		stored, err := a.svc.UpdateRecipe(ctx, r)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "updated recipe %q (%d alternative(s))\n", stored.Name, len(stored.Combos))
		return nil
	})
}

func recipeDelete(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb recipe delete <name>")
	}
	return withApp(func(a *app) error {
		if err := a.svc.DeleteRecipe(context.Background(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted recipe %q\n", args[0])
		return nil
	})
}

func recipeDuplicate(args []string) error {
	if len(args) != 1 {
		return usageErr("potiondb recipe duplicate <name>")
	}
	return withApp(func(a *app) error {
		name, err := a.svc.DuplicateRecipe(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "created recipe %q\n", name)
		return nil
	})
}
