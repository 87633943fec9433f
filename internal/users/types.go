// Package users はユーザーレコードの保持と検索を提供します。
package users

import (
	"errors"
	"time"
)

var (
	// ErrNotFound は該当するユーザーが存在しない場合に返されます。
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateUser は同じユーザー名が登録済みの場合に返されます。
	ErrDuplicateUser = errors.New("user already exists")
	// ErrDuplicateEmail は同じメールアドレスが登録済みの場合に返されます。
	ErrDuplicateEmail = errors.New("email already registered")
)

// User は保存されているユーザーレコードです。
// PasswordHash は bcrypt のハッシュ値で、平文は保持しません。
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Email        string
	CreatedAt    time.Time
}

// PublicUser はクライアントへ返してよい項目だけを持つ射影です。
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Profile は作成日時を含む公開情報です（signup と一覧で使用）。
type Profile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public はパスワードハッシュを除いた射影を返します。
func (u User) Public() PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// Profile は作成日時付きの公開情報を返します。
func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Candidate は新規登録の入力です。
type Candidate struct {
	Username string
	Email    string
	Password string

	// UniqueEmail が true の場合、メールアドレスの重複も拒否します。
	UniqueEmail bool
}
