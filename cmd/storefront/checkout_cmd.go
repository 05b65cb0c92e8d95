package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"storefront/internal/checkout"
	"storefront/internal/models"
)

func checkoutCommand() *Command {
	c := &Command{
		Name:        "checkout",
		Description: "Price the cart and open a payment session",
		Usage:       "storefront checkout [-dry-run] [-watch]",
		Examples: []string{
			"storefront checkout -dry-run",
			"storefront checkout -watch",
		},
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		fs := c.NewFlagSet()
		dryRun := fs.Bool("dry-run", false, "only show the priced order")
		watch := fs.Bool("watch", false, "wait for the payment result")
		if err := fs.Parse(args); err != nil {
			return err
		}

		lines := a.cart.Lines()
		if len(lines) == 0 {
			return checkout.ErrEmptyCart
		}
		if *dryRun {
			printQuote(a.checkout.Quote(lines))
			return nil
		}

		sessionID, order, err := a.checkout.CreateSession(ctx, lines)
		if err != nil {
			return err
		}
		printQuote(order)
		fmt.Printf("Payment session: %s\n", sessionID)

		if *watch {
			return watchOrder(ctx, a, sessionID)
		}
		return nil
	}
	return c
}

func orderCommand() *Command {
	c := &Command{
		Name:        "order",
		Description: "Show the status of a payment session",
		Usage:       "storefront order <session-id> [-watch]",
		Examples:    []string{"storefront order cs_test_a1b2c3 -watch"},
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		fs := c.NewFlagSet()
		watch := fs.Bool("watch", false, "wait for the payment result")
		if err := fs.Parse(reorderFlags(args)); err != nil {
			return err
		}
		if fs.NArg() < 1 {
			fs.Usage()
			return errors.New("session id required")
		}
		sessionID := fs.Arg(0)

		s, err := a.checkout.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		status, _ := s["status"].(string)
		paymentStatus, _ := s["payment_status"].(string)
		fmt.Printf("Session:        %s\n", sessionID)
		fmt.Printf("Status:         %s\n", status)
		fmt.Printf("Payment status: %s\n", paymentStatus)
		if total, ok := s["amount_total"].(float64); ok {
			currency, _ := s["currency"].(string)
			fmt.Printf("Total charged:  %.2f %s\n", total/100, strings.ToUpper(currency))
		}
		if details, ok := s["customer_details"].(map[string]any); ok {
			if email, _ := details["email"].(string); email != "" {
				fmt.Printf("Receipt sent to %s\n", email)
			}
		}

		if paymentStatus == "paid" {
			return orderPaid(a)
		}
		if *watch {
			return watchOrder(ctx, a, sessionID)
		}
		return nil
	}
	return c
}

// watchOrder suit les notifications du proxy jusqu'au statut final
func watchOrder(ctx context.Context, a *app, sessionID string) error {
	u, err := eventsURL(a.cfg.PaymentBaseURL, sessionID)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("connecting to order updates: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	fmt.Println("Waiting for payment, press Ctrl+C to stop.")
	for {
		var ev models.CheckoutEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("order updates: %w", err)
		}
		switch ev.Status {
		case "completed":
			fmt.Println("Payment received, thank you for your order!")
			return orderPaid(a)
		case "failed":
			msg := ev.Message
			if msg == "" {
				msg = "payment declined"
			}
			fmt.Printf("Payment failed: %s\n", msg)
			return nil
		}
	}
}

// orderPaid vide le panier une fois la commande payée
func orderPaid(a *app) error {
	if len(a.cart.Lines()) == 0 {
		return nil
	}
	if err := a.cart.Clear(); err != nil {
		return err
	}
	fmt.Println("Your cart has been cleared.")
	return nil
}

func eventsURL(base, sessionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid PAYMENT_BASE_URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/checkout-session/" + url.PathEscape(sessionID) + "/ws"
	return u.String(), nil
}

// reorderFlags place les flags avant les arguments positionnels (order <id> -watch)
func reorderFlags(args []string) []string {
	var flags, positional []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)
		} else {
			positional = append(positional, arg)
		}
	}
	return append(flags, positional...)
}

func printQuote(o models.PricedOrder) {
	fmt.Printf("Subtotal: %s\n", money(checkout.FromCents(o.Subtotal)))
	fmt.Printf("%s: %s\n", checkout.DefaultPricing.TaxLabel(), money(checkout.FromCents(o.Tax)))
	if o.Shipping == 0 && o.Subtotal > 0 {
		fmt.Println("Shipping: FREE")
	} else {
		fmt.Printf("Shipping: %s\n", money(checkout.FromCents(o.Shipping)))
	}
	fmt.Printf("Total:    %s\n", money(checkout.FromCents(o.Total)))
}
