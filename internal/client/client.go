// Package client est le client HTTP de l'API Sugary : jeton Bearer, renouvellement sur 401
// et rejeu unique de la requête.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// TokenSource fournit le jeton courant et le renouvelle après un 401 (session.Manager)
type TokenSource interface {
	AccessToken() string
	Refresh(ctx context.Context, staleToken string) (string, error)
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
}

// NewHTTPClient construit le client de transport partagé, instrumenté OpenTelemetry
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// New crée un client pour baseURL. tokens peut être nil pour une API sans authentification.
func New(baseURL string, httpClient *http.Client, tokens TokenSource) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient, tokens: tokens}
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON décode le corps de la réponse dans dst
func (r *Response) JSON(dst any) error {
	if err := json.Unmarshal(r.Body, dst); err != nil {
		return fmt.Errorf("réponse illisible: %w", err)
	}
	return nil
}

// Do envoie la requête. Sur un 401, le jeton est renouvelé (un seul appel réseau quel que soit
// le nombre de requêtes concernées) puis la requête est rejouée une seule fois.
func (c *Client) Do(ctx context.Context, method, path string, body any) (*Response, error) {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encodage requête: %w", err)
		}
	}

	token := ""
	if c.tokens != nil {
		token = c.tokens.AccessToken()
	}
	resp, err := c.send(ctx, method, path, raw, token)
	if err != nil {
		return nil, networkError(err)
	}

	if resp.StatusCode == http.StatusUnauthorized && c.tokens != nil {
		fresh, err := c.tokens.Refresh(ctx, token)
		if err != nil {
			if isNetwork(err) {
				return nil, networkError(err)
			}
			return nil, fmt.Errorf("%w: %w", ErrAuthFatal, err)
		}

		resp, err = c.send(ctx, method, path, raw, fresh)
		if err != nil {
			return nil, networkError(err)
		}
		if resp.StatusCode == http.StatusUnauthorized {
			return resp, fmt.Errorf("%w: %w", ErrAuthExpired, statusError(resp))
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, statusError(resp)
	}
	return resp, nil
}

// Get décode la réponse JSON de GET path dans dst
func (c *Client) Get(ctx context.Context, path string, dst any) error {
	resp, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return resp.JSON(dst)
}

// Post envoie body en JSON et décode la réponse dans dst (ignorée si dst est nil)
func (c *Client) Post(ctx context.Context, path string, body, dst any) error {
	resp, err := c.Do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	if dst == nil {
		return nil
	}
	return resp.JSON(dst)
}

func (c *Client) send(ctx context.Context, method, path string, raw []byte, token string) (*Response, error) {
	var body io.Reader
	if raw != nil {
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if raw != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}

func statusError(resp *Response) *StatusError {
	var msg struct {
		Message string `json:"Message"`
		Lower   string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.Unmarshal(resp.Body, &msg)
	text := msg.Message
	if text == "" {
		text = msg.Lower
	}
	if text == "" {
		text = msg.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: text, Body: resp.Body}
}
