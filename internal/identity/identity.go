// Package identity resolves the acting user for a request. Authentication
// itself happens upstream; this service only consumes an already-established
// identity.
package identity

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"friendlink/internal/domain"
)

// UserIDHeader carries the authenticated user id set by the fronting
// gateway. The service trusts it; do not expose the port without one.
const UserIDHeader = "X-User-Id"

type UserLoader interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
}

// FromHeader returns a resolver that loads the user record named by the
// gateway header.
func FromHeader(users UserLoader) func(*http.Request) (domain.User, error) {
	return func(r *http.Request) (domain.User, error) {
		raw := strings.TrimSpace(r.Header.Get(UserIDHeader))
		if raw == "" {
			return domain.User{}, domain.ErrUnauthorized
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return domain.User{}, domain.ErrUnauthorized
		}

		u, err := users.GetUserByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.User{}, domain.ErrUnauthorized
			}
			return domain.User{}, err
		}
		if u.Status == domain.UserStatusDisabled {
			return domain.User{}, domain.ErrForbidden
		}
		return u, nil
	}
}
