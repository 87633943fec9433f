package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/sessions/memstore"
	gsessions "github.com/gorilla/sessions"

	"github.com/yourusername/authgate/internal/config"
)

const (
	SessionCookieName = "auth_session"

	sessionKeyUserID     = "userId"
	sessionKeyUsername   = "username"
	sessionKeyIssuedAt   = "issued_at"
	sessionKeyLastActive = "last_activity"
	sessionKeyCSRF       = "csrf_token"

	csrfHeader = "X-CSRF-Token"
)

// Session は Manager が読み書きするセッションの操作です。
// sessions.Default(c) が返す sessions.Session はこのインターフェースを満たします。
type Session interface {
	Get(key any) any
	Set(key any, val any)
	Clear()
	Options(sessions.Options)
	Save() error
}

// backedSession は gin-contrib/sessions の実装が持つ gorilla セッションへのアクセスです。
type backedSession interface {
	Session() *gsessions.Session
}

// renewID はセッション内容を破棄し、次の Save で新しいセッションIDが発行されるようにします。
// 既存IDのサーバー側エントリは削除します。
func renewID(session Session, opts sessions.Options) error {
	session.Clear()

	backed, ok := session.(backedSession)
	if !ok {
		return nil
	}
	raw := backed.Session()
	if raw == nil || raw.ID == "" {
		return nil
	}

	var keep gsessions.Options
	if raw.Options != nil {
		keep = *raw.Options
	}
	opts.MaxAge = -1
	session.Options(opts)
	if err := session.Save(); err != nil {
		return err
	}

	raw.ID = ""
	raw.IsNew = true
	raw.Options = &keep
	return nil
}

// CookieOptions は設定からセッションクッキーのオプションを組み立てます。
func CookieOptions(cfg *config.Config) sessions.Options {
	return sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxLifetime.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsRelease(),
		SameSite: http.SameSiteStrictMode,
	}
}

// NewSessionStore は SESSION_STORE に応じたセッションストアを作成します。
// memory はセッション値をサーバー側に保持し、クッキーには署名付きIDだけを載せます。
func NewSessionStore(cfg *config.Config, secret []byte) (sessions.Store, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("session secret is empty")
	}

	var store sessions.Store
	switch cfg.SessionStore {
	case config.SessionStoreMemory:
		store = memstore.NewStore(secret)
	case config.SessionStoreCookie:
		store = cookie.NewStore(secret)
	default:
		return nil, fmt.Errorf("unknown session store: %q", cfg.SessionStore)
	}
	store.Options(CookieOptions(cfg))
	return store, nil
}

// GenerateSecret は一時的なセッション署名鍵を生成します。
func GenerateSecret() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func readInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func readUnix(v any) time.Time {
	n, ok := readInt64(v)
	if !ok {
		return time.Time{}
	}
	return time.Unix(n, 0)
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
