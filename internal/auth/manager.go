// Package auth はログイン・ログアウト・セッション検証を提供します。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-contrib/sessions"

	"github.com/yourusername/authgate/internal/users"
)

// ContextUserIDKey は RequireSession が検証済みユーザーIDを格納するキーです。
const ContextUserIDKey = "auth.user_id"

const (
	defaultMaxLifetime = 12 * time.Hour
	defaultIdleTimeout = 30 * time.Minute
)

// dummyPassword はユーザー不在時にも同じ計算量の照合を行うためのハッシュ元です。
const dummyPassword = "auth-timing-equalizer"

// Options は Manager の挙動を調整します。
type Options struct {
	MaxLifetime   time.Duration
	IdleTimeout   time.Duration
	CookieOptions sessions.Options
	Logger        *slog.Logger
	Now           func() time.Time
}

// LoginResult はログイン成功時の結果です。
type LoginResult struct {
	User      users.PublicUser
	CSRFToken string
}

// Manager は認証処理と状態をまとめた構造体です。
type Manager struct {
	store  users.Store
	hasher users.Hasher
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	dummyHash string
}

// NewManager は認証マネージャーを作成します。
func NewManager(store users.Store, hasher users.Hasher, opts Options) (*Manager, error) {
	if store == nil {
		return nil, errors.New("store is nil")
	}
	if hasher == nil {
		return nil, errors.New("hasher is nil")
	}
	if opts.MaxLifetime <= 0 {
		opts.MaxLifetime = defaultMaxLifetime
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = defaultIdleTimeout
	}
	if opts.CookieOptions.Path == "" {
		opts.CookieOptions.Path = "/"
	}

	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		store:     store,
		hasher:    hasher,
		opts:      opts,
		logger:    logger,
		now:       now,
		dummyHash: dummyHash,
	}, nil
}

// Login は資格情報を検証し、成功した場合はセッションにユーザーを記録します。
// ユーザー不在とパスワード不一致は区別せず ErrInvalidCredentials を返します。
func (m *Manager) Login(ctx context.Context, session Session, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, ErrMissingField
	}

	user, err := m.store.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, users.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		m.hasher.Verify(m.dummyHash, password)
		m.logger.InfoContext(ctx, "login failed", "username", username, "reason", "unknown_user")
		return nil, ErrInvalidCredentials
	}

	if !m.hasher.Verify(user.PasswordHash, password) {
		m.logger.InfoContext(ctx, "login failed", "username", username, "reason", "password_mismatch")
		return nil, ErrInvalidCredentials
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}

	// ログイン前のセッションIDは引き継がない
	if err := renewID(session, m.opts.CookieOptions); err != nil {
		m.logger.ErrorContext(ctx, "failed to renew session", "user_id", user.ID, "error", err)
		return nil, ErrSessionSave.wrap(err)
	}
	now := m.now()
	session.Set(sessionKeyUserID, user.ID)
	session.Set(sessionKeyUsername, user.Username)
	session.Set(sessionKeyIssuedAt, now.Unix())
	session.Set(sessionKeyLastActive, now.Unix())
	session.Set(sessionKeyCSRF, token)
	if err := session.Save(); err != nil {
		m.logger.ErrorContext(ctx, "failed to save session", "user_id", user.ID, "error", err)
		return nil, ErrSessionSave.wrap(err)
	}

	m.logger.InfoContext(ctx, "login succeeded", "user_id", user.ID)
	return &LoginResult{User: user.Public(), CSRFToken: token}, nil
}

// Logout はセッションを破棄します。
func (m *Manager) Logout(ctx context.Context, session Session) error {
	session.Clear()
	opts := m.opts.CookieOptions
	opts.MaxAge = -1
	session.Options(opts)
	if err := session.Save(); err != nil {
		m.logger.ErrorContext(ctx, "failed to destroy session", "error", err)
		return ErrSessionFailure.wrap(err)
	}
	return nil
}

// CurrentUser はセッションのユーザーを返します。
// セッションが参照するユーザーが存在しない場合もセッションを破棄して未認証として扱います。
func (m *Manager) CurrentUser(ctx context.Context, session Session) (users.PublicUser, error) {
	userID, err := m.Authenticate(ctx, session)
	if err != nil {
		return users.PublicUser{}, ErrNotAuthenticated
	}

	user, err := m.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			m.logger.WarnContext(ctx, "session references missing user", "user_id", userID)
			m.discard(session)
			return users.PublicUser{}, ErrNotAuthenticated
		}
		return users.PublicUser{}, fmt.Errorf("find user: %w", err)
	}
	return user.Public(), nil
}

// Authenticate はセッションが有効であればユーザーIDを返し、最終操作時刻を更新します。
// 期限切れのセッションは破棄して ErrUnauthorized を返します。
func (m *Manager) Authenticate(ctx context.Context, session Session) (int64, error) {
	userID, ok := readInt64(session.Get(sessionKeyUserID))
	if !ok || userID <= 0 {
		return 0, ErrUnauthorized
	}

	now := m.now()
	issuedAt := readUnix(session.Get(sessionKeyIssuedAt))
	lastActive := readUnix(session.Get(sessionKeyLastActive))

	if issuedAt.IsZero() || now.Sub(issuedAt) > m.opts.MaxLifetime {
		m.logger.InfoContext(ctx, "session expired", "user_id", userID)
		m.discard(session)
		return 0, ErrUnauthorized
	}
	if lastActive.IsZero() || now.Sub(lastActive) > m.opts.IdleTimeout {
		m.logger.InfoContext(ctx, "session idle timeout", "user_id", userID)
		m.discard(session)
		return 0, ErrUnauthorized
	}

	session.Set(sessionKeyLastActive, now.Unix())
	_ = session.Save()
	return userID, nil
}

// CSRFToken はセッションに保存された CSRF トークンを返します。
func CSRFToken(session Session) string {
	token, _ := session.Get(sessionKeyCSRF).(string)
	return token
}

func (m *Manager) discard(session Session) {
	session.Clear()
	opts := m.opts.CookieOptions
	opts.MaxAge = -1
	session.Options(opts)
	_ = session.Save()
}
