package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"storefront/internal/config"
)

func main() {
	log.SetFlags(0)
	log.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	registry := NewCommandRegistry()
	for _, cmd := range commands() {
		registry.Register(cmd)
	}

	cmd, err := registry.Lookup(args)
	if cmd == nil {
		return err
	}

	config.Load()
	a, err := newApp(ctx, config.Client())
	if err != nil {
		return err
	}
	defer a.Close()

	err = cmd.Run(ctx, a, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	return err
}

func commands() []*Command {
	return []*Command{
		loginCommand(),
		logoutCommand(),
		whoamiCommand(),
		browseCommand(),
		searchCommand(),
		showCommand(),
		cartCommand(),
		wishCommand(),
		checkoutCommand(),
		orderCommand(),
	}
}

// parseID lit un identifiant produit positionnel
func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid product id %q", s)
	}
	return id, nil
}

func money(v float64) string {
	return fmt.Sprintf("$%.2f", v)
}
