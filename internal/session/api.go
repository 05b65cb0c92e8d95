package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storefront/internal/models"
)

// StatusError est une réponse non-2xx de l'API de comptes
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api comptes: %d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("api comptes: %d %s", e.Code, http.StatusText(e.Code))
}

// API appelle les endpoints d'authentification sans passer par l'intercepteur 401 du client
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Login appelle POST /AdminAccount/Login
func (a *API) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var res models.LoginResponse
	err := a.post(ctx, "/AdminAccount/Login", models.LoginRequest{UserName: username, Password: password}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Refresh appelle POST /Account/RefreshToken avec la paire de jetons courante
func (a *API) Refresh(ctx context.Context, accessToken, refreshToken string) (*models.RefreshResponse, error) {
	var res models.RefreshResponse
	err := a.post(ctx, "/Account/RefreshToken", models.RefreshRequest{AccessToken: accessToken, RefreshToken: refreshToken}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *API) post(ctx context.Context, path string, body, dst any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"Message"`
		}
		_ = json.Unmarshal(payload, &msg)
		return &StatusError{Code: resp.StatusCode, Message: msg.Message}
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		return fmt.Errorf("réponse %s illisible: %w", path, err)
	}
	return nil
}

// TransportError enveloppe une erreur réseau (connexion, timeout)
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "réseau: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }
