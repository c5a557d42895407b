package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"friendlink/internal/domain"
	"friendlink/internal/identity"
	"friendlink/internal/service"
)

type memRequests struct {
	nextID  int64
	order   []int64
	records map[int64]domain.FriendRequest
}

func (s *memRequests) Create(_ context.Context, fr domain.FriendRequest) (domain.FriendRequest, error) {
	s.nextID++
	fr.ID = s.nextID
	s.records[fr.ID] = fr
	s.order = append(s.order, fr.ID)
	return fr, nil
}

func (s *memRequests) GetByID(_ context.Context, id int64) (domain.FriendRequest, error) {
	fr, ok := s.records[id]
	if !ok {
		return domain.FriendRequest{}, domain.ErrNotFound
	}
	return fr, nil
}

func (s *memRequests) Find(_ context.Context, f domain.FriendRequestFilter) ([]domain.FriendRequest, error) {
	var out []domain.FriendRequest
	for _, id := range s.order {
		fr := s.records[id]
		if f.FromID != 0 && fr.FromID != f.FromID {
			continue
		}
		if f.ReceiveID != 0 && fr.ReceiveID != f.ReceiveID {
			continue
		}
		out = append(out, fr)
	}
	return out, nil
}

func (s *memRequests) Count(ctx context.Context, f domain.FriendRequestFilter) (int64, error) {
	out, _ := s.Find(ctx, f)
	return int64(len(out)), nil
}

func (s *memRequests) Update(_ context.Context, fr domain.FriendRequest) error {
	if _, ok := s.records[fr.ID]; !ok {
		return domain.ErrNotFound
	}
	s.records[fr.ID] = fr
	return nil
}

func (s *memRequests) TransitionStatus(_ context.Context, id int64, from, to domain.FriendRequestStatus, when time.Time) (bool, error) {
	fr, ok := s.records[id]
	if !ok || fr.Status != from {
		return false, nil
	}
	fr.Status = to
	fr.UpdatedAt = when
	s.records[id] = fr
	return true, nil
}

type memUsers struct {
	users map[int64]domain.User
}

func (s *memUsers) GetUserByID(_ context.Context, id int64) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *memUsers) UpdateUser(_ context.Context, u domain.User) error {
	if _, ok := s.users[u.ID]; !ok {
		return domain.ErrNotFound
	}
	s.users[u.ID] = u
	return nil
}

type memTx struct{}

func (memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestRouter(t *testing.T) (http.Handler, *memRequests) {
	t.Helper()

	users := &memUsers{users: map[int64]domain.User{
		1: {ID: 1, Username: "alice", Status: domain.UserStatusActive},
		2: {ID: 2, Username: "bob", Status: domain.UserStatusActive},
	}}
	requests := &memRequests{records: make(map[int64]domain.FriendRequest)}

	svc := &service.FriendsService{
		Users:    users,
		Requests: requests,
		Tx:       memTx{},
		Now:      func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
	}

	return NewRouter(RouterOpts{
		Friends:  svc,
		Identity: identity.FromHeader(users),
	}), requests
}

func doJSON(t *testing.T, h http.Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(identity.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func TestSubmitEndpointCreatesRequest(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/friends/requests", "1", `{"receive_id":2,"remark":"hi"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: got %d, body %s", rec.Code, rec.Body.String())
	}

	var fr domain.FriendRequest
	if err := json.Unmarshal(rec.Body.Bytes(), &fr); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fr.Status != domain.FriendRequestPending || fr.FromID != 1 || fr.ReceiveID != 2 {
		t.Fatalf("unexpected request: %+v", fr)
	}
}

func TestSubmitEndpointRequiresIdentity(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/friends/requests", "", `{"receive_id":2}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "unauthorized" {
		t.Fatalf("code: got %q", code)
	}
}

func TestSubmitEndpointRejectsSelf(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/friends/requests", "1", `{"receive_id":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "validation_error" {
		t.Fatalf("code: got %q", code)
	}
}

func TestAcceptEndpointLifecycle(t *testing.T) {
	h, requests := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/friends/requests", "1", `{"receive_id":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status: got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/friends/requests/from/1/accept", "2", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("accept status: got %d, body %s", rec.Code, rec.Body.String())
	}
	if got := requests.records[1].Status; got != domain.FriendRequestAgreed {
		t.Fatalf("stored status: got %q", got)
	}

	rec = doJSON(t, h, http.MethodPost, "/v1/friends/requests/from/1/accept", "2", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second accept status: got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "request_already_agreed" {
		t.Fatalf("code: got %q", code)
	}
}

func TestAcceptEndpointRejectsBadID(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/friends/requests/from/abc/accept", "2", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestCancelEndpointNonPending(t *testing.T) {
	h, requests := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/friends/requests", "1", `{"receive_id":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status: got %d", rec.Code)
	}
	fr := requests.records[1]
	fr.Status = domain.FriendRequestAgreed
	requests.records[1] = fr

	rec = doJSON(t, h, http.MethodPost, "/v1/friends/requests/1/cancel", "1", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "request_not_pending" {
		t.Fatalf("code: got %q", code)
	}
}

func TestUnreadCountEndpoint(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/friends/requests", "1", `{"receive_id":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status: got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/friends/requests/unread-count", "2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var out unreadCountResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Count != 1 {
		t.Fatalf("count: got %d", out.Count)
	}
}

func TestIncomingEndpointListsViews(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/v1/friends/requests", "1", `{"receive_id":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit status: got %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/v1/friends/requests/incoming", "2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	var views []domain.FriendRequestView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].ApplyUser.Username != "alice" {
		t.Fatalf("views: got %+v", views)
	}
}
