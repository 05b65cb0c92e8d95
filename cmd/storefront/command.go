package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// Command est une sous-commande du client
type Command struct {
	Name        string
	Description string
	Usage       string
	Examples    []string
	Run         func(ctx context.Context, a *app, args []string) error
}

// NewFlagSet crée le jeu de flags standard d'une commande
func (c *Command) NewFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet(c.Name, flag.ContinueOnError)
	fs.Usage = func() { c.PrintUsage() }
	return fs
}

func (c *Command) PrintUsage() {
	fmt.Fprintf(os.Stderr, "%s\n\n", c.Description)
	fmt.Fprintf(os.Stderr, "USAGE:\n    %s\n\n", c.Usage)
	if len(c.Examples) > 0 {
		fmt.Fprintf(os.Stderr, "EXAMPLES:\n")
		for _, example := range c.Examples {
			fmt.Fprintf(os.Stderr, "    %s\n", example)
		}
	}
}

// CommandRegistry conserve les commandes dans l'ordre d'enregistrement
type CommandRegistry struct {
	commands map[string]*Command
	order    []string
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{commands: make(map[string]*Command)}
}

func (r *CommandRegistry) Register(cmd *Command) {
	if _, exists := r.commands[cmd.Name]; !exists {
		r.order = append(r.order, cmd.Name)
	}
	r.commands[cmd.Name] = cmd
}

// Lookup renvoie la commande demandée, ou une erreur après avoir affiché l'aide
func (r *CommandRegistry) Lookup(args []string) (*Command, error) {
	if len(args) < 1 {
		r.PrintHelp(os.Stdout)
		return nil, fmt.Errorf("no command specified")
	}

	switch args[0] {
	case "help", "-h", "--help":
		r.PrintHelp(os.Stdout)
		return nil, nil
	}

	cmd, ok := r.commands[args[0]]
	if !ok {
		r.PrintHelp(os.Stderr)
		return nil, fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd, nil
}

func (r *CommandRegistry) PrintHelp(w io.Writer) {
	fmt.Fprintln(w, "storefront - browse the Sugary catalog, manage your cart and check out")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "    storefront <command> [arguments]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	for _, name := range r.order {
		fmt.Fprintf(w, "    %-10s %s\n", name, r.commands[name].Description)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'storefront <command> --help' for more information on a command.")
}

// TableWriter aligne des colonnes de texte
type TableWriter struct {
	w       io.Writer
	headers []string
	rows    [][]string
	widths  []int
}

func NewTableWriter(w io.Writer, headers ...string) *TableWriter {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &TableWriter{w: w, headers: headers, widths: widths}
}

func (t *TableWriter) AddRow(row ...string) {
	t.rows = append(t.rows, row)
	for i, cell := range row {
		if n := len([]rune(cell)); i < len(t.widths) && n > t.widths[i] {
			t.widths[i] = n
		}
	}
}

func (t *TableWriter) Print() {
	t.printSeparator("┌", "┬", "┐")
	t.printRow(t.headers)
	t.printSeparator("├", "┼", "┤")
	for _, row := range t.rows {
		t.printRow(row)
	}
	t.printSeparator("└", "┴", "┘")
}

func (t *TableWriter) printSeparator(left, mid, right string) {
	fmt.Fprint(t.w, left)
	for i, width := range t.widths {
		fmt.Fprint(t.w, strings.Repeat("─", width+2))
		if i < len(t.widths)-1 {
			fmt.Fprint(t.w, mid)
		}
	}
	fmt.Fprintln(t.w, right)
}

func (t *TableWriter) printRow(row []string) {
	fmt.Fprint(t.w, "│")
	for i, cell := range row {
		if i < len(t.widths) {
			pad := t.widths[i] - len([]rune(cell))
			fmt.Fprintf(t.w, " %s%s │", cell, strings.Repeat(" ", pad))
		}
	}
	fmt.Fprintln(t.w)
}
