package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"storefront/internal/session"
)

func loginCommand() *Command {
	c := &Command{
		Name:        "login",
		Description: "Sign in to the Sugary account API",
		Usage:       "storefront login -u <username> [-p <password>]",
		Examples: []string{
			"storefront login -u jane",
			"echo \"$PASSWORD\" | storefront login -u jane",
		},
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		fs := c.NewFlagSet()
		username := fs.String("u", "", "account username")
		password := fs.String("p", "", "account password (read from stdin when omitted)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *username == "" {
			fs.Usage()
			return errors.New("username required")
		}
		if *password == "" {
			fmt.Fprint(os.Stderr, "Password: ")
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("reading password: %w", err)
			}
			*password = strings.TrimRight(line, "\r\n")
		}

		user, err := a.sessions.Login(ctx, *username, *password)
		if err != nil {
			return err
		}
		name := *username
		if user != nil && user.FullName != "" {
			name = user.FullName
		}
		fmt.Printf("Welcome, %s!\n", name)
		return nil
	}
	return c
}

func logoutCommand() *Command {
	c := &Command{
		Name:        "logout",
		Description: "Sign out and clear the cart, wishlist and tokens",
		Usage:       "storefront logout",
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		if err := a.sessions.Logout(); err != nil {
			return err
		}
		fmt.Println("Signed out.")
		return nil
	}
	return c
}

func whoamiCommand() *Command {
	c := &Command{
		Name:        "whoami",
		Description: "Show the signed-in user",
		Usage:       "storefront whoami",
	}
	c.Run = func(ctx context.Context, a *app, args []string) error {
		user, err := a.sessions.CurrentUser()
		if errors.Is(err, session.ErrNoSession) {
			fmt.Println("Not signed in.")
			return nil
		}
		if err != nil {
			return err
		}

		s, _ := a.sessions.Session()
		fmt.Printf("Username: %s\n", user.Username)
		if user.FullName != "" {
			fmt.Printf("Name:     %s\n", user.FullName)
		}
		if user.Email != "" {
			fmt.Printf("Email:    %s\n", user.Email)
		}
		if user.Role.Title != "" {
			fmt.Printf("Role:     %s\n", user.Role.Title)
		}
		if !s.ExpiresAt.IsZero() {
			fmt.Printf("Token expires: %s\n", s.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	}
	return c
}
