package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"friendlink/internal/domain"
)

type submitFriendRequestRequest struct {
	ReceiveID int64  `json:"receive_id"`
	Remark    string `json:"remark"`
}

func (a *api) handleFriendsSubmit(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	if !a.submitLimiter.allow(clientKey(r)) {
		WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}

	var req submitFriendRequestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	fr, err := a.friendsSvc.SubmitRequest(r.Context(), u, req.ReceiveID, req.Remark)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, fr)
}

func (a *api) handleFriendsIncoming(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	views, err := a.friendsSvc.ListIncoming(r.Context(), u)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, views)
}

func (a *api) handleFriendsOutgoing(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	views, err := a.friendsSvc.ListOutgoing(r.Context(), u)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, views)
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

func (a *api) handleFriendsUnreadCount(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	count, err := a.friendsSvc.CountUnreadPending(r.Context(), u)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, unreadCountResponse{Count: count})
}

type markReadRequest struct {
	IDs []int64 `json:"ids"`
}

type markReadResponse struct {
	Updated bool `json:"updated"`
}

func (a *api) handleFriendsMarkRead(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	var req markReadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	if len(req.IDs) == 0 {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"ids": "required"}))
		return
	}

	updated, err := a.friendsSvc.MarkRead(r.Context(), u, req.IDs)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, markReadResponse{Updated: updated})
}

func (a *api) handleFriendsAccept(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	fromID, err := pathID(r, "fromId")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.friendsSvc.Accept(r.Context(), u, fromID); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleFriendsCancel(w http.ResponseWriter, r *http.Request) {
	u, ok := CurrentUser(r.Context())
	if !ok {
		WriteDomainError(w, domain.ErrUnauthorized)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	if err := a.friendsSvc.Cancel(r.Context(), u, id); err != nil {
		WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	if raw == "" {
		return 0, domain.NewValidationError(map[string]string{name: "required"})
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError(map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}
