package users

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	minUsernameLength = 3
	maxUsernameLength = 20
	minPasswordLength = 6
)

var validate = validator.New()

// SignupInput は signup フォームの入力です。
type SignupInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Validate は入力を検証し、失敗した規則のメッセージをすべて返します。
func (in SignupInput) Validate() []string {
	errs := make([]string, 0)

	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		errs = append(errs, "Username is required")
	case utf8.RuneCountInString(in.Username) < minUsernameLength:
		errs = append(errs, "Username must be at least 3 characters")
	case utf8.RuneCountInString(in.Username) > maxUsernameLength:
		errs = append(errs, "Username must not exceed 20 characters")
	}

	if in.Email == "" || validate.Var(in.Email, "email") != nil {
		errs = append(errs, "Valid email is required")
	}

	switch {
	case in.Password == "":
		errs = append(errs, "Password is required")
	case utf8.RuneCountInString(in.Password) < minPasswordLength:
		errs = append(errs, "Password must be at least 6 characters")
	}

	if in.Password != in.ConfirmPassword {
		errs = append(errs, "Passwords do not match")
	}

	return errs
}

// Candidate は保存用に正規化した Candidate を返します。
// ユーザー名は前後の空白を除き、メールアドレスは小文字にします。
func (in SignupInput) Candidate() Candidate {
	return Candidate{
		Username:    strings.TrimSpace(in.Username),
		Email:       strings.ToLower(in.Email),
		Password:    in.Password,
		UniqueEmail: true,
	}
}
