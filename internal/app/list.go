package app

import (
	"fmt"
	"io"
	"strings"
)

// List prints every task identifier and alias, in declaration order.
func (a *App) List(w io.Writer) error {
	if w == nil {
		w = a.outW
	}
	tasks, aliases := a.registry.Names()

	fmt.Fprintln(w, "Tasks:")
	for _, name := range tasks {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintln(w, "Aliases:")
	for _, name := range aliases {
		alias, _ := a.registry.Alias(name)
		fmt.Fprintf(w, "  %s = %s\n", name, strings.Join(alias.Tasks, ", "))
	}
	return nil
}
