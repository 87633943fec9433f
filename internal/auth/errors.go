package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error は HTTP ステータスとクライアント向けメッセージを持つ認証エラーです。
type Error struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Code + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is は Code が一致するエラーを同一とみなします。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) wrap(err error) *Error {
	return &Error{Code: e.Code, Status: e.Status, Message: e.Message, Err: err}
}

var (
	// ErrMissingField はユーザー名またはパスワードが空のときに返します。
	ErrMissingField = &Error{
		Code:    "MISSING_FIELD",
		Status:  http.StatusBadRequest,
		Message: "Username and password required",
	}
	// ErrInvalidCredentials はユーザー不在とパスワード不一致の両方で返します。
	ErrInvalidCredentials = &Error{
		Code:    "INVALID_CREDENTIALS",
		Status:  http.StatusUnauthorized,
		Message: "Invalid credentials",
	}
	// ErrNotAuthenticated は現在のユーザーを取得できないときに返します。
	ErrNotAuthenticated = &Error{
		Code:    "NOT_AUTHENTICATED",
		Status:  http.StatusUnauthorized,
		Message: "Not authenticated",
	}
	// ErrUnauthorized は RequireSession が返すエラーです。
	ErrUnauthorized = &Error{
		Code:    "UNAUTHORIZED",
		Status:  http.StatusUnauthorized,
		Message: "Unauthorized",
	}
	// ErrSessionFailure はログアウト時のセッション破棄に失敗したときに返します。
	ErrSessionFailure = &Error{
		Code:    "SESSION_FAILURE",
		Status:  http.StatusInternalServerError,
		Message: "Logout failed",
	}
	// ErrSessionSave はログイン時のセッション保存に失敗したときに返します。
	ErrSessionSave = &Error{
		Code:    "SESSION_SAVE_FAILED",
		Status:  http.StatusInternalServerError,
		Message: "Login failed",
	}
	// ErrInvalidCSRF は CSRF トークンが欠落または不一致のときに返します。
	ErrInvalidCSRF = &Error{
		Code:    "CSRF_INVALID",
		Status:  http.StatusForbidden,
		Message: "Invalid CSRF token",
	}
)

func respondWithError(c *gin.Context, err error) {
	var authErr *Error
	if errors.As(err, &authErr) {
		c.JSON(authErr.Status, gin.H{"message": authErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
}

func abortWithError(c *gin.Context, err *Error) {
	c.AbortWithStatusJSON(err.Status, gin.H{"message": err.Message})
}
