package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrAuthExpired : 401 reçu encore après le rejeu avec le nouveau jeton
	ErrAuthExpired = errors.New("accès refusé après renouvellement du jeton")
	// ErrAuthFatal : renouvellement impossible, la session a été effacée
	ErrAuthFatal = errors.New("session expirée, reconnexion nécessaire")
	// ErrNetwork : échec de transport, jamais rejoué automatiquement
	ErrNetwork = errors.New("erreur réseau")
	// ErrNotFound : 404 ou élément absent du catalogue
	ErrNotFound = errors.New("introuvable")
)

// StatusError est une réponse non-2xx
type StatusError struct {
	Code    int
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.Code, http.StatusText(e.Code))
}

// Is permet errors.Is(err, ErrNotFound) sur un 404
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

func networkError(err error) error {
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func isNetwork(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
