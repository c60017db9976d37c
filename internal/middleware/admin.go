// Package middleware содержит HTTP middleware маркетплейса виртов.
package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const usernameKey contextKey = "username"

// UsernameHeader заголовок, в котором Mini App передаёт имя пользователя Telegram.
const UsernameHeader = "X-Telegram-Username"

// AdminGuard пропускает к модераторским маршрутам только администратора.
// Имя берётся из заголовка и не подписано, поэтому защита носит соглашательный характер.
type AdminGuard struct {
	isAdmin func(username string) bool
	deny    http.HandlerFunc
	enforce bool
}

// NewAdminGuard создаёт проверку администратора.
// При enforce=false запросы пропускаются без проверки, имя лишь кладётся в контекст.
func NewAdminGuard(isAdmin func(username string) bool, enforce bool, deny http.HandlerFunc) *AdminGuard {
	if deny == nil {
		deny = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		}
	}

	return &AdminGuard{
		isAdmin: isAdmin,
		deny:    deny,
		enforce: enforce,
	}
}

// Middleware проверяет заголовок с именем пользователя и добавляет имя в контекст запроса.
func (g *AdminGuard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username := strings.TrimPrefix(strings.TrimSpace(r.Header.Get(UsernameHeader)), "@")

		if g.enforce && (username == "" || !g.isAdmin(username)) {
			g.deny(w, r)
			return
		}

		ctx := r.Context()
		if username != "" {
			ctx = context.WithValue(ctx, usernameKey, username)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUsernameFromContext извлекает имя пользователя из контекста запроса.
func GetUsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey).(string)
	return username, ok
}
