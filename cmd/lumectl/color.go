package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/dokzlo13/lumectl/internal/resolve"
	"github.com/dokzlo13/lumectl/internal/store"
)

func (a *app) cmdColorSet(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: lumectl color set <name> <hex>")
	}
	name, hex := args[0], args[1]
	if !resolve.IsHexLiteral(hex) {
		return fmt.Errorf("invalid color value %q: want 6 hex digits, no '#'", hex)
	}
	if err := a.store.SaveColor(name, hex); err != nil {
		return err
	}
	fmt.Printf("%s = %s\n", store.NormalizeColorName(name), strings.ToLower(hex))
	return nil
}

func (a *app) cmdColors() error {
	colors, err := a.store.LoadColors()
	if err != nil {
		return err
	}
	names := make([]string, 0, len(colors))
	for name := range colors {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\n", name, colors[name])
	}
	return w.Flush()
}
