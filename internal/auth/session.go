package auth

import (
	"encoding/gob"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/account"
)

const (
	sessionName = "storefront_session"
	keyUserID   = "user_id"
	keyRole     = "role"
	keyPayment  = "payment_id"
)

type FlashMessage struct {
	Type    string
	Message string
}

func init() {
	gob.Register(FlashMessage{})
}

// SessionManager reads and writes the signed session cookie.
type SessionManager struct {
	store sessions.Store
}

func NewSessionManager(store sessions.Store) *SessionManager {
	return &SessionManager{store: store}
}

// NewCookieStore builds the securecookie-backed store used in production.
func NewCookieStore(key []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(key)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secure
	store.Options.SameSite = http.SameSiteLaxMode
	store.Options.MaxAge = 7 * 24 * 60 * 60
	return store
}

func (m *SessionManager) session(r *http.Request) *sessions.Session {
	s, err := m.store.Get(r, sessionName)
	if err != nil {
		// A tampered or stale cookie yields a fresh session.
		log.Debug().Err(err).Msg("Discarding unreadable session cookie")
	}
	return s
}

// Load is middleware that resolves the identity once per request.
func (m *SessionManager) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.session(r)
		raw, _ := s.Values[keyUserID].(string)
		role, _ := s.Values[keyRole].(string)

		id, err := uuid.FromString(raw)
		if err == nil && id != uuid.Nil && account.Role(role).Valid() {
			r = r.WithContext(WithIdentity(r.Context(), Identity{UserID: id, Role: account.Role(role)}))
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, user *account.User) error {
	s := m.session(r)
	s.Values[keyUserID] = user.ID.String()
	s.Values[keyRole] = string(user.Role)
	return s.Save(r, w)
}

func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	s := m.session(r)
	delete(s.Values, keyUserID)
	delete(s.Values, keyRole)
	return s.Save(r, w)
}

func (m *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, typ, msg string) {
	s := m.session(r)
	s.AddFlash(FlashMessage{Type: typ, Message: msg})
	if err := s.Save(r, w); err != nil {
		log.Error().Err(err).Msg("Failed to save flash message")
	}
}

// Flashes pops the pending flash messages.
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) []FlashMessage {
	s := m.session(r)
	raw := s.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := s.Save(r, w); err != nil {
		log.Error().Err(err).Msg("Failed to clear flash messages")
	}

	messages := make([]FlashMessage, 0, len(raw))
	for _, f := range raw {
		if fm, ok := f.(FlashMessage); ok {
			messages = append(messages, fm)
		}
	}
	return messages
}

// SetPendingPayment remembers the payment recorded for the checkout in
// progress.
func (m *SessionManager) SetPendingPayment(w http.ResponseWriter, r *http.Request, id uuid.UUID) error {
	s := m.session(r)
	s.Values[keyPayment] = id.String()
	return s.Save(r, w)
}

func (m *SessionManager) PendingPayment(r *http.Request) (uuid.UUID, bool) {
	raw, _ := m.session(r).Values[keyPayment].(string)
	id, err := uuid.FromString(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func (m *SessionManager) ClearPendingPayment(w http.ResponseWriter, r *http.Request) error {
	s := m.session(r)
	if _, ok := s.Values[keyPayment]; !ok {
		return nil
	}
	delete(s.Values, keyPayment)
	return s.Save(r, w)
}
