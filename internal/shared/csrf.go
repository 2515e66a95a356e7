package shared

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

const (
	// CSRFSessionKey holds the per-session secret.
	CSRFSessionKey = "csrf_secret"
	// CSRFFormField is the hidden input rendered into every form.
	CSRFFormField = "csrf_token"
	// CSRFHeader carries the token for non-form submissions.
	CSRFHeader = "X-CSRF-Token"
)

const csrfSecretLen = sha256.Size

var csrfEncoding = base64.RawURLEncoding

// CSRFManager keeps one secret per session and hands out a freshly masked copy of it on every
// render. Pages never repeat a token byte for byte, which defeats compression side channels.
type CSRFManager struct {
	key []byte
}

// NewCSRFManager returns a manager whose session secrets are derived with key.
func NewCSRFManager(key string) *CSRFManager {
	return &CSRFManager{key: []byte(key)}
}

// EnsureToken returns a masked token for sess, creating the session secret on first use.
func (m *CSRFManager) EnsureToken(sess *Session) (string, error) {
	if sess == nil {
		return "", ErrCSRFTokenMissing
	}
	secret, ok := sessionSecret(sess)
	if !ok {
		var err error
		if secret, err = m.newSecret(sess.ID); err != nil {
			return "", err
		}
		sess.Set(CSRFSessionKey, csrfEncoding.EncodeToString(secret))
	}
	return maskSecret(secret)
}

// VerifyToken accepts any masked token issued for sess.
func (m *CSRFManager) VerifyToken(sess *Session, token string) error {
	if sess == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	secret, ok := sessionSecret(sess)
	if !ok {
		return ErrCSRFTokenMissing
	}
	got, ok := unmaskToken(token)
	if !ok || !hmac.Equal(secret, got) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

func sessionSecret(sess *Session) ([]byte, bool) {
	secret, err := csrfEncoding.DecodeString(sess.Get(CSRFSessionKey))
	if err != nil || len(secret) != csrfSecretLen {
		return nil, false
	}
	return secret, true
}

func (m *CSRFManager) newSecret(sessionID string) ([]byte, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, m.key)
	_, _ = mac.Write([]byte(sessionID))
	_, _ = mac.Write(nonce)
	return mac.Sum(nil), nil
}

// maskSecret encodes pad || secret^pad with a random pad.
func maskSecret(secret []byte) (string, error) {
	buf := make([]byte, 2*len(secret))
	pad, masked := buf[:len(secret)], buf[len(secret):]
	if _, err := rand.Read(pad); err != nil {
		return "", err
	}
	subtle.XORBytes(masked, secret, pad)
	return csrfEncoding.EncodeToString(buf), nil
}

func unmaskToken(token string) ([]byte, bool) {
	buf, err := csrfEncoding.DecodeString(token)
	if err != nil || len(buf) != 2*csrfSecretLen {
		return nil, false
	}
	secret := make([]byte, csrfSecretLen)
	subtle.XORBytes(secret, buf[csrfSecretLen:], buf[:csrfSecretLen])
	return secret, true
}
