package domain

import "time"

type FriendRequestStatus string

const (
	FriendRequestPending FriendRequestStatus = "pending"
	FriendRequestAgreed  FriendRequestStatus = "agreed"
	FriendRequestRevoked FriendRequestStatus = "revoked"
	FriendRequestExpired FriendRequestStatus = "expired"
)

// MaxRemarkLen is the longest remark accepted on a friend request.
const MaxRemarkLen = 120

type FriendRequest struct {
	ID        int64               `json:"id"`
	FromID    int64               `json:"from_id"`
	ReceiveID int64               `json:"receive_id"`
	Remark    string              `json:"remark"`
	Status    FriendRequestStatus `json:"status"`
	IsRead    bool                `json:"is_read"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// FriendRequestView is a FriendRequest enriched with the sender's public
// profile, as returned by the listing endpoints.
type FriendRequestView struct {
	FriendRequest
	ApplyUser UserSummary `json:"apply_user"`
}

// FriendRequestFilter narrows Find/Count to matching records. Zero fields
// are ignored.
type FriendRequestFilter struct {
	FromID    int64
	ReceiveID int64
}
