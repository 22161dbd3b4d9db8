package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	cookieName = "sale_products_session"
	userKey    = "user"
)

var ErrNoSession = errors.New("no active session")

// Manager maps a signed session cookie to the id of the logged-in user.
type Manager struct {
	store sessions.Store
}

func NewManager(secret []byte, maxAge time.Duration, secure bool) *Manager {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store}
}

func (m *Manager) Login(w http.ResponseWriter, r *http.Request, userID int64) error {
	sess, err := m.store.Get(r, cookieName)
	if err != nil && sess == nil {
		return fmt.Errorf("load session: %w", err)
	}
	sess.Values[userKey] = userID
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.store.Get(r, cookieName)
	if err != nil && sess == nil {
		return fmt.Errorf("load session: %w", err)
	}
	delete(sess.Values, userKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// UserID returns the user bound to the request's session. A missing, expired
// or tampered cookie yields ErrNoSession.
func (m *Manager) UserID(r *http.Request) (int64, error) {
	sess, err := m.store.Get(r, cookieName)
	if err != nil || sess.IsNew {
		return 0, ErrNoSession
	}
	id, ok := sess.Values[userKey].(int64)
	if !ok {
		return 0, ErrNoSession
	}
	return id, nil
}
