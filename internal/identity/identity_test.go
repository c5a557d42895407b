package identity

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"friendlink/internal/domain"
)

type stubLoader struct {
	users map[int64]domain.User
}

func (s *stubLoader) GetUserByID(_ context.Context, id int64) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func TestFromHeaderResolvesUser(t *testing.T) {
	resolve := FromHeader(&stubLoader{users: map[int64]domain.User{
		7: {ID: 7, Username: "alice", Status: domain.UserStatusActive},
	}})

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(UserIDHeader, "7")

	u, err := resolve(r)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if u.ID != 7 || u.Username != "alice" {
		t.Fatalf("got %+v", u)
	}
}

func TestFromHeaderRejectsMissingOrBadHeader(t *testing.T) {
	resolve := FromHeader(&stubLoader{users: map[int64]domain.User{}})

	for _, raw := range []string{"", "abc", "-1", "0"} {
		r := httptest.NewRequest("GET", "/", nil)
		if raw != "" {
			r.Header.Set(UserIDHeader, raw)
		}
		if _, err := resolve(r); !errors.Is(err, domain.ErrUnauthorized) {
			t.Fatalf("header %q: expected unauthorized, got %v", raw, err)
		}
	}
}

func TestFromHeaderUnknownUser(t *testing.T) {
	resolve := FromHeader(&stubLoader{users: map[int64]domain.User{}})

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(UserIDHeader, "42")
	if _, err := resolve(r); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestFromHeaderDisabledUser(t *testing.T) {
	resolve := FromHeader(&stubLoader{users: map[int64]domain.User{
		7: {ID: 7, Username: "alice", Status: domain.UserStatusDisabled},
	}})

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(UserIDHeader, "7")
	if _, err := resolve(r); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
