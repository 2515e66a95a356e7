package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Flash kinds rendered by the notification banner.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashError   = "error"
)

// Session defaults applied by NewSessionManager.
const (
	DefaultSessionCookie = "crudkit_session"
	DefaultSessionTTL    = 24 * time.Hour
)

// FlashMessage is a notification shown once on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Session is the per-request view of a stored session. It is not safe for concurrent use.
type Session struct {
	ID string

	data      sessionData
	fresh     bool
	modified  bool
	destroyed bool
}

type sessionData struct {
	Values  map[string]string `json:"values,omitempty"`
	UserID  string            `json:"user_id,omitempty"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

func newSession() *Session {
	return &Session{ID: uuid.NewString(), fresh: true}
}

// Set stores a value under key.
func (s *Session) Set(key, value string) {
	if s.data.Values == nil {
		s.data.Values = make(map[string]string)
	}
	s.data.Values[key] = value
	s.modified = true
}

// Get returns the value stored under key, or "".
func (s *Session) Get(key string) string {
	return s.data.Values[key]
}

// Delete removes key.
func (s *Session) Delete(key string) {
	if _, ok := s.data.Values[key]; !ok {
		return
	}
	delete(s.data.Values, key)
	s.modified = true
}

// SetUser records the signed-in user. An empty id signs the user out.
func (s *Session) SetUser(id string) {
	s.data.UserID = id
	s.modified = true
}

// User returns the signed-in user, or "".
func (s *Session) User() string {
	return s.data.UserID
}

// AddFlash queues msg for the next rendered page.
func (s *Session) AddFlash(msg FlashMessage) {
	s.data.Flashes = append(s.data.Flashes, msg)
	s.modified = true
}

// PopFlashes drains every queued flash message in insertion order.
func (s *Session) PopFlashes() []FlashMessage {
	if len(s.data.Flashes) == 0 {
		return nil
	}
	out := s.data.Flashes
	s.data.Flashes = nil
	s.modified = true
	return out
}

// PopFlash removes and returns the oldest flash message, or nil.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.data.Flashes) == 0 {
		return nil
	}
	msg := s.data.Flashes[0]
	s.data.Flashes = s.data.Flashes[1:]
	s.modified = true
	return &msg
}

// SessionOptions configures the session cookie.
type SessionOptions struct {
	CookieName string
	TTL        time.Duration
	// Secure restricts the cookie to HTTPS. Production deployments set it.
	Secure bool
	// Secret signs the cookie value. Without it the bare session ID is sent.
	Secret string
}

// SessionManager loads sessions from cookies and persists them in a SessionStore.
type SessionManager struct {
	store SessionStore
	opts  SessionOptions
}

// NewSessionManager returns a manager over store. Zero options take the package defaults.
func NewSessionManager(store SessionStore, opts SessionOptions) *SessionManager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultSessionCookie
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultSessionTTL
	}
	return &SessionManager{store: store, opts: opts}
}

// Load returns the session named by the request cookie. A missing, malformed or expired cookie
// yields a fresh session with a new ID, so clients cannot choose their own.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.opts.CookieName)
	if err != nil {
		return newSession(), nil
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return newSession(), nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return newSession(), nil
	}
	raw, err := sm.store.Find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}
	if raw == nil {
		return newSession(), nil
	}
	sess := &Session{ID: id}
	if err := json.Unmarshal(raw, &sess.data); err != nil {
		return nil, fmt.Errorf("session: decode %s: %w", id, err)
	}
	return sess, nil
}

func (sm *SessionManager) sign(id string) string {
	if sm.opts.Secret == "" {
		return id
	}
	return id + "." + sm.mac(id)
}

// verify strips and checks the signature added by sign.
func (sm *SessionManager) verify(value string) (string, bool) {
	if sm.opts.Secret == "" {
		return value, true
	}
	id, sig, ok := strings.Cut(value, ".")
	if !ok {
		return "", false
	}
	return id, hmac.Equal([]byte(sig), []byte(sm.mac(id)))
}

func (sm *SessionManager) mac(id string) string {
	h := hmac.New(sha256.New, []byte(sm.opts.Secret))
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Commit persists sess and writes its cookie. A fresh session that holds nothing is dropped
// without a cookie. Unchanged sessions only have their expiry pushed back.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		if err := sm.store.Delete(ctx, sess.ID); err != nil {
			return fmt.Errorf("session: delete: %w", err)
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}
	switch {
	case sess.modified:
		raw, err := json.Marshal(sess.data)
		if err != nil {
			return fmt.Errorf("session: encode: %w", err)
		}
		if err := sm.store.Save(ctx, sess.ID, raw, sm.opts.TTL); err != nil {
			return fmt.Errorf("session: save: %w", err)
		}
		sess.modified = false
		sess.fresh = false
	case sess.fresh:
		return nil
	default:
		if err := sm.store.Touch(ctx, sess.ID, sm.opts.TTL); err != nil {
			return fmt.Errorf("session: touch: %w", err)
		}
	}
	http.SetCookie(w, sm.cookie(sm.sign(sess.ID), int(sm.opts.TTL/time.Second)))
	return nil
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.opts.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Destroy marks sess for deletion on the next Commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// TTL reports how long an idle session survives.
func (sm *SessionManager) TTL() time.Duration {
	return sm.opts.TTL
}

// CookieName returns the session cookie name.
func (sm *SessionManager) CookieName() string {
	return sm.opts.CookieName
}
