package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"storefront/internal/client"
)

func wishCommand() *Command {
	c := &Command{
		Name:        "wish",
		Description: "Show the wishlist or toggle a product in it",
		Usage:       "storefront wish [list|toggle <id>|remove <id>]",
		Examples: []string{
			"storefront wish toggle 42",
			"storefront wish",
		},
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		fs := c.NewFlagSet()
		if err := fs.Parse(args); err != nil {
			return err
		}
		rest := fs.Args()
		action := "list"
		if len(rest) > 0 {
			action, rest = rest[0], rest[1:]
		}

		switch action {
		case "list":
			items := a.wishlist.Items()
			if len(items) == 0 {
				fmt.Println("Your wishlist is empty.")
				return nil
			}
			t := NewTableWriter(os.Stdout, "ID", "Product", "Brand", "Price")
			for _, m := range items {
				t.AddRow(strconv.Itoa(m.ID), m.Title, m.BrandName, money(m.SalesPriceInUsd))
			}
			t.Print()
			return nil

		case "toggle":
			id, err := argID(rest, 0)
			if err != nil {
				return err
			}
			m, _, err := a.catalog.Find(ctx, id)
			if errors.Is(err, client.ErrNotFound) {
				return fmt.Errorf("product %d not found", id)
			}
			if err != nil {
				return err
			}
			added, err := a.wishlist.Toggle(*m)
			if err != nil {
				return err
			}
			if added {
				fmt.Printf("Added %s to your wishlist.\n", m.Title)
			} else {
				fmt.Printf("Removed %s from your wishlist.\n", m.Title)
			}
			return nil

		case "remove":
			id, err := argID(rest, 0)
			if err != nil {
				return err
			}
			return a.wishlist.Remove(id)

		default:
			c.PrintUsage()
			return fmt.Errorf("unknown wish action: %s", action)
		}
	}
	return c
}
