package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"storefront/internal/catalog"
	"storefront/internal/client"
	"storefront/internal/models"
)

func browseCommand() *Command {
	c := &Command{
		Name:        "browse",
		Description: "List catalog products, one page of 20 at a time",
		Usage:       "storefront browse [-pages n]",
		Examples: []string{
			"storefront browse",
			"storefront browse -pages 3",
		},
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		fs := c.NewFlagSet()
		pages := fs.Int("pages", 1, "number of pages to load")
		if err := fs.Parse(args); err != nil {
			return err
		}

		pager := a.catalog.NewPager(a.cfg.CatalogMaxCalls)
		for i := 0; i < *pages; i++ {
			_, err := pager.Next(ctx)
			if errors.Is(err, catalog.ErrNoMore) {
				break
			}
			if errors.Is(err, catalog.ErrMaxCalls) {
				fmt.Fprintln(os.Stderr, "Reached the maximum number of loads for this listing.")
				break
			}
			if err != nil {
				return err
			}
		}

		items := pager.Items()
		if len(items) == 0 {
			fmt.Println("No products found.")
			return nil
		}
		printProducts(a, items)
		if pager.HasMore() {
			fmt.Printf("Showing %d products. Use -pages %d to see more.\n", len(items), *pages+1)
		}
		return nil
	}
	return c
}

func searchCommand() *Command {
	c := &Command{
		Name:        "search",
		Description: "Search products by title or brand",
		Usage:       "storefront search <query>",
		Examples:    []string{"storefront search chocolate"},
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		fs := c.NewFlagSet()
		if err := fs.Parse(args); err != nil {
			return err
		}
		query := strings.Join(fs.Args(), " ")
		if strings.TrimSpace(query) == "" {
			fs.Usage()
			return errors.New("search query required")
		}

		res, err := a.catalog.GetAll(ctx, models.CatalogFilter{Limit: catalog.FindLimit, Types: catalog.DefaultTypes})
		if err != nil {
			return err
		}
		found := catalog.Search(res.Materials, query)
		if len(found) == 0 {
			fmt.Printf("No products match %q.\n", query)
			return nil
		}
		printProducts(a, found)
		return nil
	}
	return c
}

func showCommand() *Command {
	c := &Command{
		Name:        "show",
		Description: "Show a product and related products from the same brand",
		Usage:       "storefront show <product-id>",
		Examples:    []string{"storefront show 42"},
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		fs := c.NewFlagSet()
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() < 1 {
			fs.Usage()
			return errors.New("product id required")
		}
		id, err := parseID(fs.Arg(0))
		if err != nil {
			return err
		}

		m, all, err := a.catalog.Find(ctx, id)
		if errors.Is(err, client.ErrNotFound) {
			fmt.Println("Product not found.")
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s\n", m.Title)
		fmt.Printf("Brand:    %s\n", m.BrandName)
		fmt.Printf("Price:    %s\n", money(m.SalesPriceInUsd))
		if q := a.cart.Quantity(m.ID); q > 0 {
			fmt.Printf("In cart:  %d\n", q)
		}
		if a.wishlist.Contains(m.ID) {
			fmt.Println("In your wishlist")
		}

		related := catalog.Related(all, *m)
		if len(related) > 0 {
			fmt.Println()
			fmt.Printf("More from %s:\n", m.BrandName)
			printProducts(a, related)
		}
		return nil
	}
	return c
}

func printProducts(a *app, items []models.Material) {
	t := NewTableWriter(os.Stdout, "ID", "Product", "Brand", "Price", "Cart", "♥")
	for _, m := range items {
		inCart := ""
		if q := a.cart.Quantity(m.ID); q > 0 {
			inCart = strconv.Itoa(q)
		}
		wished := ""
		if a.wishlist.Contains(m.ID) {
			wished = "♥"
		}
		t.AddRow(strconv.Itoa(m.ID), m.Title, m.BrandName, money(m.SalesPriceInUsd), inCart, wished)
	}
	t.Print()
}
