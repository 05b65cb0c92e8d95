// Package session gère la paire de jetons du client : connexion, rotation et déconnexion.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/models"
	"storefront/internal/storage"
)

var (
	ErrNoSession       = errors.New("aucune session")
	ErrNoRefreshToken  = errors.New("refresh token manquant")
	ErrRefreshRejected = errors.New("rafraîchissement refusé")
	ErrLoginFailed     = errors.New("connexion échouée")
)

// Authenticator est l'API de comptes distante (voir API)
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*models.LoginResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*models.RefreshResponse, error)
}

type refreshResult struct {
	token string
	err   error
}

// Manager possède la session du processus. Un seul rafraîchissement est en vol à la fois :
// les appelants suivants attendent dans une file FIFO et reçoivent le même résultat.
type Manager struct {
	api   Authenticator
	store storage.Store
	now   func() time.Time

	mu         sync.Mutex
	refreshing bool
	waiters    []chan refreshResult

	logoutMu sync.Mutex
	onLogout []func(reason error)
}

func NewManager(api Authenticator, store storage.Store) *Manager {
	return &Manager{api: api, store: store, now: time.Now}
}

// OnLogout enregistre fn, appelée quand la session est détruite (logout ou refresh impossible).
// Le client s'en sert pour renvoyer l'utilisateur vers l'écran de connexion.
func (m *Manager) OnLogout(fn func(reason error)) {
	m.logoutMu.Lock()
	m.onLogout = append(m.onLogout, fn)
	m.logoutMu.Unlock()
}

// Session renvoie la session persistée
func (m *Manager) Session() (models.Session, error) {
	var s models.Session
	if _, err := storage.GetJSON(m.store, storage.KeyToken, &s.AccessToken); err != nil {
		return s, err
	}
	if s.AccessToken == "" {
		return s, ErrNoSession
	}
	if _, err := storage.GetJSON(m.store, storage.KeyRefreshToken, &s.RefreshToken); err != nil {
		return s, err
	}
	var expires string
	if _, err := storage.GetJSON(m.store, storage.KeyTokenExpiresAt, &expires); err != nil {
		return s, err
	}
	if expires != "" {
		if t, err := time.Parse(time.RFC3339, expires); err == nil {
			s.ExpiresAt = t
		}
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = tokenExpiry(s.AccessToken)
	}
	return s, nil
}

// AccessToken renvoie le jeton à attacher aux requêtes, ou "" s'il est absent ou expiré
func (m *Manager) AccessToken() string {
	s, err := m.Session()
	if err != nil {
		return ""
	}
	if m.expired(s) {
		return ""
	}
	return s.AccessToken
}

// Login ouvre une session avec l'API de comptes et la persiste
func (m *Manager) Login(ctx context.Context, username, password string) (*models.User, error) {
	res, err := m.api.Login(ctx, username, password)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrLoginFailed, se.Message)
		}
		return nil, err
	}
	if !res.Success || res.Token == "" {
		msg := res.Message
		if msg == "" {
			msg = "Login failed"
		}
		return nil, fmt.Errorf("%w: %s", ErrLoginFailed, msg)
	}

	if err := m.persist(res.Token, res.RefreshToken, ""); err != nil {
		return nil, err
	}
	log.Printf("✅ Connecté en tant que %s", username)

	if res.User != nil {
		return res.User, nil
	}
	return userFromToken(res.Token), nil
}

// Logout détruit la session et tout l'état persisté (panier et favoris compris)
func (m *Manager) Logout() error {
	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.fireLogout(nil)
	return nil
}

// CurrentUser décode le profil contenu dans le jeton d'accès
func (m *Manager) CurrentUser() (*models.User, error) {
	s, err := m.Session()
	if err != nil {
		return nil, err
	}
	u := userFromToken(s.AccessToken)
	if u == nil {
		return nil, fmt.Errorf("profil absent du jeton")
	}
	return u, nil
}

// Refresh obtient un jeton d'accès valide après un 401 reçu avec staleToken.
//
// Si la session a déjà tourné depuis l'envoi de la requête, le jeton courant est renvoyé sans
// appel réseau. Sinon un seul appel à /Account/RefreshToken est fait ; les appels concurrents
// attendent son résultat. En cas de refus la session est effacée et les abonnés OnLogout prévenus.
func (m *Manager) Refresh(ctx context.Context, staleToken string) (string, error) {
	m.mu.Lock()
	if m.refreshing {
		ch := make(chan refreshResult, 1)
		m.waiters = append(m.waiters, ch)
		m.mu.Unlock()

		select {
		case r := <-ch:
			return r.token, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	current, err := m.Session()
	if err == nil && current.AccessToken != staleToken && !m.expired(current) {
		m.mu.Unlock()
		return current.AccessToken, nil
	}
	m.refreshing = true
	m.mu.Unlock()

	token, err := m.doRefresh(ctx, current)

	m.mu.Lock()
	waiters := m.waiters
	m.waiters = nil
	m.refreshing = false
	m.mu.Unlock()

	for _, w := range waiters {
		w <- refreshResult{token: token, err: err}
	}
	return token, err
}

func (m *Manager) doRefresh(ctx context.Context, current models.Session) (string, error) {
	if current.RefreshToken == "" {
		m.endSession(ErrNoRefreshToken)
		return "", ErrNoRefreshToken
	}

	res, err := m.api.Refresh(ctx, current.AccessToken, current.RefreshToken)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// panne réseau : on ne sait pas si la session est morte, on la garde
			return "", err
		}
		reason := fmt.Errorf("%w: %w", ErrRefreshRejected, err)
		m.endSession(reason)
		return "", reason
	}
	if !res.Success || res.Token == "" {
		reason := fmt.Errorf("%w: %s", ErrRefreshRejected, res.Message)
		m.endSession(reason)
		return "", reason
	}

	if err := m.persist(res.Token, res.RefreshToken, res.AccessTokenExpiresAt); err != nil {
		return "", err
	}
	log.Println("🔄 Jeton d'accès renouvelé")
	return res.Token, nil
}

func (m *Manager) persist(token, refreshToken, expiresAt string) error {
	if err := storage.SetJSON(m.store, storage.KeyToken, token); err != nil {
		return err
	}
	if err := storage.SetJSON(m.store, storage.KeyRefreshToken, refreshToken); err != nil {
		return err
	}
	if expiresAt == "" {
		return m.store.Delete(storage.KeyTokenExpiresAt)
	}
	if t, err := time.Parse(time.RFC3339, expiresAt); err == nil {
		expiresAt = t.UTC().Format(time.RFC3339)
	}
	return storage.SetJSON(m.store, storage.KeyTokenExpiresAt, expiresAt)
}

func (m *Manager) endSession(reason error) {
	log.Printf("❌ Session terminée: %v", reason)
	// seuls les jetons sont effacés : panier et favoris survivent à l'expiration
	if err := m.store.Delete(storage.KeyToken, storage.KeyRefreshToken, storage.KeyTokenExpiresAt); err != nil {
		log.Printf("⚠️ Effacement session impossible: %v", err)
	}
	m.fireLogout(reason)
}

func (m *Manager) fireLogout(reason error) {
	m.logoutMu.Lock()
	fns := slices.Clone(m.onLogout)
	m.logoutMu.Unlock()
	for _, fn := range fns {
		fn(reason)
	}
}

func (m *Manager) expired(s models.Session) bool {
	return !s.ExpiresAt.IsZero() && !m.now().Before(s.ExpiresAt)
}

// tokenExpiry lit la claim exp sans vérifier la signature (le client n'a pas la clé)
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

func userFromToken(token string) *models.User {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}
	raw, ok := claims["User"]
	if !ok {
		return nil
	}
	// la claim peut être un objet ou une chaîne JSON selon l'émetteur
	var data []byte
	if s, isString := raw.(string); isString {
		data = []byte(s)
	} else {
		var err error
		if data, err = json.Marshal(raw); err != nil {
			return nil
		}
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil
	}
	return &u
}
