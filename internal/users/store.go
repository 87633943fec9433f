package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Store はユーザーレコードの検索と追加を提供します。
type Store interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Insert(ctx context.Context, candidate Candidate) (*User, error)
	List(ctx context.Context) ([]User, error)
	Reset(ctx context.Context) error
}

// MemoryStore は登録順のスライスでユーザーを保持するインメモリ実装です。
// 検索は線形走査、追加は書き込みロック内で重複確認と追記をまとめて行います。
type MemoryStore struct {
	mu     sync.RWMutex
	users  []User
	hasher Hasher
	now    func() time.Time
}

// NewMemoryStore は MemoryStore を作成します。
func NewMemoryStore(hasher Hasher) *MemoryStore {
	if hasher == nil {
		hasher = &BcryptHasher{Cost: DefaultBcryptCost}
	}
	return &MemoryStore{
		hasher: hasher,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// FindByUsername はユーザー名の完全一致で検索します。
func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByUsername(username); i >= 0 {
		u := s.users[i]
		return &u, nil
	}
	return nil, ErrNotFound
}

// FindByID は ID の完全一致で検索します。
func (s *MemoryStore) FindByID(_ context.Context, id int64) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.ID == id {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// FindByEmail は大文字小文字を区別せずにメールアドレスで検索します。
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByEmail(email); i >= 0 {
		u := s.users[i]
		return &u, nil
	}
	return nil, ErrNotFound
}

// Insert はパスワードをハッシュ化してユーザーを追加します。
// ハッシュ計算はロックの外で行います。
func (s *MemoryStore) Insert(ctx context.Context, candidate Candidate) (*User, error) {
	if candidate.Username == "" {
		return nil, errors.New("username is required")
	}
	if candidate.Password == "" {
		return nil, errors.New("password is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(candidate.Password)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexByUsername(candidate.Username) >= 0 {
		return nil, fmt.Errorf("insert user %q: %w", candidate.Username, ErrDuplicateUser)
	}
	if candidate.UniqueEmail && candidate.Email != "" && s.indexByEmail(candidate.Email) >= 0 {
		return nil, fmt.Errorf("insert user %q: %w", candidate.Username, ErrDuplicateEmail)
	}
	return s.appendLocked(candidate.Username, hash, candidate.Email), nil
}

// Seed は事前に計算済みのハッシュでユーザーを追加します。
func (s *MemoryStore) Seed(_ context.Context, username, passwordHash, email string) (*User, error) {
	if username == "" {
		return nil, errors.New("username is required")
	}
	if !IsHash(passwordHash) {
		return nil, fmt.Errorf("seed user %q: password hash is not a bcrypt hash", username)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexByUsername(username) >= 0 {
		return nil, fmt.Errorf("seed user %q: %w", username, ErrDuplicateUser)
	}
	return s.appendLocked(username, passwordHash, email), nil
}

// List は登録順のコピーを返します。
func (s *MemoryStore) List(_ context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, len(s.users))
	copy(out, s.users)
	return out, nil
}

// Reset は全ユーザーを削除します。
func (s *MemoryStore) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = nil
	return nil
}

// Len は登録済みユーザー数を返します。
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *MemoryStore) appendLocked(username, hash, email string) *User {
	u := User{
		ID:           int64(len(s.users)) + 1,
		Username:     username,
		PasswordHash: hash,
		Email:        email,
		CreatedAt:    s.now(),
	}
	s.users = append(s.users, u)
	return &u
}

func (s *MemoryStore) indexByUsername(username string) int {
	for i := range s.users {
		if s.users[i].Username == username {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) indexByEmail(email string) int {
	if email == "" {
		return -1
	}
	for i := range s.users {
		if strings.EqualFold(s.users[i].Email, email) {
			return i
		}
	}
	return -1
}
