package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"storefront/internal/cart"
	"storefront/internal/client"
	"storefront/internal/models"
)

func cartCommand() *Command {
	c := &Command{
		Name:        "cart",
		Description: "Show or change the cart",
		Usage:       "storefront cart [show|add <id>|remove <id>|qty <id> <n>|clear|watch]",
		Examples: []string{
			"storefront cart add 42",
			"storefront cart qty 42 3",
			"storefront cart watch",
		},
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		fs := c.NewFlagSet()
		if err := fs.Parse(args); err != nil {
			return err
		}
		rest := fs.Args()
		action := "show"
		if len(rest) > 0 {
			action, rest = rest[0], rest[1:]
		}

		switch action {
		case "show":
			printCart(a.cart.Lines(), a)
			return nil

		case "add":
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
			if err := a.cart.AddItem(*m); err != nil {
				return err
			}
			fmt.Printf("Added %s (quantity %d).\n", m.Title, a.cart.Quantity(id))
			return nil

		case "remove":
			id, err := argID(rest, 0)
			if err != nil {
				return err
			}
			if err := a.cart.RemoveItem(id); err != nil {
				return err
			}
			fmt.Println("Removed.")
			return nil

		case "qty":
			id, err := argID(rest, 0)
			if err != nil {
				return err
			}
			if len(rest) < 2 {
				return errors.New("quantity required")
			}
			n, err := strconv.Atoi(rest[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", rest[1])
			}
			err = a.cart.UpdateQuantity(id, n)
			if errors.Is(err, cart.ErrInvalidQuantity) {
				return fmt.Errorf("quantity must be at least 1, use 'storefront cart remove %d' to drop the product", id)
			}
			if errors.Is(err, cart.ErrNotInCart) {
				return fmt.Errorf("product %d is not in your cart", id)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Quantity set to %d.\n", n)
			return nil

		case "clear":
			if err := a.cart.Clear(); err != nil {
				return err
			}
			fmt.Println("Cart cleared.")
			return nil

		case "watch":
			fmt.Println("Watching the cart, press Ctrl+C to stop.")
			printCart(a.cart.Lines(), a)
			unsubscribe := a.cart.Subscribe(func(lines []models.CartLine) {
				fmt.Println()
				printCart(lines, a)
			})
			defer unsubscribe()
			<-ctx.Done()
			return nil

		default:
			c.PrintUsage()
			return fmt.Errorf("unknown cart action: %s", action)
		}
	}
	return c
}

func printCart(lines []models.CartLine, a *app) {
	if len(lines) == 0 {
		fmt.Println("Your cart is empty.")
		return
	}
	t := NewTableWriter(os.Stdout, "ID", "Product", "Brand", "Price", "Qty", "Total")
	for _, l := range lines {
		t.AddRow(strconv.Itoa(l.ProductID), l.Title, l.Brand, money(l.UnitPrice),
			strconv.Itoa(l.Quantity), money(l.UnitPrice*float64(l.Quantity)))
	}
	t.Print()
	printQuote(a.checkout.Quote(lines))
}

func argID(args []string, i int) (int, error) {
	if len(args) <= i {
		return 0, errors.New("product id required")
	}
	return parseID(args[i])
}
