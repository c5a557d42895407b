package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"friendlink/internal/domain"
)

// DefaultRequestTTL is how long a friend request stays acceptable. The
// source of truth for "expired" is the request's CreatedAt; nothing sweeps
// old rows, the check happens at accept time.
const DefaultRequestTTL = 3 * 24 * time.Hour

type FriendRequestsStore interface {
	Create(ctx context.Context, fr domain.FriendRequest) (domain.FriendRequest, error)
	GetByID(ctx context.Context, id int64) (domain.FriendRequest, error)
	Find(ctx context.Context, f domain.FriendRequestFilter) ([]domain.FriendRequest, error)
	Count(ctx context.Context, f domain.FriendRequestFilter) (int64, error)
	Update(ctx context.Context, fr domain.FriendRequest) error
	// TransitionStatus moves the request from one status to another only if it
	// still has the expected status, reporting whether a row changed.
	TransitionStatus(ctx context.Context, id int64, from, to domain.FriendRequestStatus, when time.Time) (bool, error)
}

type UsersStore interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	UpdateUser(ctx context.Context, u domain.User) error
}

// TxRunner scopes a function to a single storage transaction: commit when it
// returns nil, roll back otherwise.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// FriendsService owns the friend-request lifecycle: submission, listing,
// read tracking, acceptance with the mutual contact-list update, and
// cancellation.
type FriendsService struct {
	Users    UsersStore
	Requests FriendRequestsStore
	Tx       TxRunner

	RequestTTL time.Duration
	Now        func() time.Time
}

func (s *FriendsService) SubmitRequest(ctx context.Context, actingUser domain.User, receiveID int64, remark string) (domain.FriendRequest, error) {
	if strings.TrimSpace(remark) != "" && utf8.RuneCountInString(remark) > domain.MaxRemarkLen {
		return domain.FriendRequest{}, domain.NewValidationError(map[string]string{"remark": "must be at most 120 characters"})
	}
	if actingUser.ID == 0 || receiveID == 0 {
		return domain.FriendRequest{}, domain.NewValidationError(map[string]string{"receive_id": "required"})
	}
	if actingUser.ID == receiveID {
		return domain.FriendRequest{}, domain.NewValidationError(map[string]string{"receive_id": "cannot add yourself"})
	}

	existing, err := s.Requests.Find(ctx, domain.FriendRequestFilter{FromID: actingUser.ID, ReceiveID: receiveID})
	if err != nil {
		return domain.FriendRequest{}, err
	}
	// A single prior record does not block re-application; only more than
	// one with a pending among them does. Kept verbatim from the upstream
	// behavior until product confirms it is a bug.
	if len(existing) > 1 {
		for _, fr := range existing {
			if fr.Status == domain.FriendRequestPending {
				return domain.FriendRequest{}, domain.NewValidationError(map[string]string{"receive_id": "duplicate pending request"})
			}
		}
	}

	remark = strings.TrimSpace(remark)
	if remark == "" {
		fromUser, err := s.Users.GetUserByID(ctx, actingUser.ID)
		if err != nil {
			return domain.FriendRequest{}, err
		}
		remark = "I am " + fromUser.Username
	}

	now := s.now()
	return s.Requests.Create(ctx, domain.FriendRequest{
		FromID:    actingUser.ID,
		ReceiveID: receiveID,
		Remark:    remark,
		Status:    domain.FriendRequestPending,
		IsRead:    false,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// ListIncoming returns the requests addressed to the user, newest first,
// each enriched with the sender's public profile.
func (s *FriendsService) ListIncoming(ctx context.Context, user domain.User) ([]domain.FriendRequestView, error) {
	return s.listViews(ctx, domain.FriendRequestFilter{ReceiveID: user.ID})
}

// ListOutgoing returns the requests the user sent, newest first.
func (s *FriendsService) ListOutgoing(ctx context.Context, user domain.User) ([]domain.FriendRequestView, error) {
	return s.listViews(ctx, domain.FriendRequestFilter{FromID: user.ID})
}

func (s *FriendsService) listViews(ctx context.Context, f domain.FriendRequestFilter) ([]domain.FriendRequestView, error) {
	records, err := s.Requests.Find(ctx, f)
	if err != nil {
		return nil, err
	}

	views := make([]domain.FriendRequestView, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		fr := records[i]
		from, err := s.Users.GetUserByID(ctx, fr.FromID)
		if err != nil {
			return nil, err
		}
		views = append(views, domain.FriendRequestView{FriendRequest: fr, ApplyUser: from.Summary()})
	}
	return views, nil
}

// CountUnreadPending counts the user's incoming requests that are still
// pending and unread.
func (s *FriendsService) CountUnreadPending(ctx context.Context, user domain.User) (int, error) {
	records, err := s.Requests.Find(ctx, domain.FriendRequestFilter{ReceiveID: user.ID})
	if err != nil {
		return 0, err
	}
	count := 0
	for _, fr := range records {
		if fr.Status == domain.FriendRequestPending && !fr.IsRead {
			count++
		}
	}
	return count, nil
}

// MarkRead marks each pending unread request in ids as read, all inside one
// transaction. The returned flag is the outcome of the last id that needed
// an update, not a batch-wide result; callers relying on it for anything
// beyond "something changed" should count instead.
func (s *FriendsService) MarkRead(ctx context.Context, user domain.User, ids []int64) (bool, error) {
	var flag bool
	err := s.inTx(ctx, func(ctx context.Context) error {
		for _, id := range ids {
			fr, err := s.Requests.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if fr.Status != domain.FriendRequestPending || fr.IsRead {
				continue
			}
			fr.IsRead = true
			fr.UpdatedAt = s.now()
			if err := s.Requests.Update(ctx, fr); err != nil {
				return err
			}
			flag = true
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return flag, nil
}

// Accept agrees to the request fromID sent to receivingUser. On success both
// users gain each other's id in their contact sets and the request becomes
// agreed; the three writes commit together or not at all.
func (s *FriendsService) Accept(ctx context.Context, receivingUser domain.User, fromID int64) error {
	filter := domain.FriendRequestFilter{FromID: fromID, ReceiveID: receivingUser.ID}
	n, err := s.Requests.Count(ctx, filter)
	if err != nil {
		return err
	}
	if n < 1 {
		return domain.ErrNotFound
	}

	records, err := s.Requests.Find(ctx, filter)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return domain.ErrNotFound
	}
	fr := records[0]

	if s.now().Sub(fr.CreatedAt) >= s.requestTTL() || fr.Status == domain.FriendRequestExpired {
		return domain.ErrExpired
	}
	if fr.Status == domain.FriendRequestAgreed {
		return domain.ErrAlreadyAgreed
	}
	// A revoked request inside the expiry window is still acceptable;
	// upstream never blocked it and clients depend on re-acceptance.

	receiveUser, err := s.Users.GetUserByID(ctx, receivingUser.ID)
	if err != nil {
		return err
	}
	fromUser, err := s.Users.GetUserByID(ctx, fromID)
	if err != nil {
		return err
	}

	fromUser.AddContact(receiveUser.ID)
	receiveUser.AddContact(fromUser.ID)

	return s.inTx(ctx, func(ctx context.Context) error {
		if err := s.Users.UpdateUser(ctx, fromUser); err != nil {
			return err
		}
		if err := s.Users.UpdateUser(ctx, receiveUser); err != nil {
			return err
		}
		// The status write is conditional on the status we read above, so
		// two racing accepts cannot both succeed: whoever commits second
		// finds zero rows and the transaction rolls back.
		moved, err := s.Requests.TransitionStatus(ctx, fr.ID, fr.Status, domain.FriendRequestAgreed, s.now())
		if err != nil {
			return err
		}
		if !moved {
			return domain.ErrAlreadyAgreed
		}
		return nil
	})
}

// Cancel revokes a pending request by id. Note the caller is not checked to
// be a party to the request; the surrounding API only guarantees an
// authenticated user.
func (s *FriendsService) Cancel(ctx context.Context, actingUser domain.User, requestID int64) error {
	fr, err := s.Requests.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if fr.Status != domain.FriendRequestPending {
		return domain.ErrNotPending
	}
	fr.Status = domain.FriendRequestRevoked
	fr.UpdatedAt = s.now()
	return s.Requests.Update(ctx, fr)
}

func (s *FriendsService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *FriendsService) requestTTL() time.Duration {
	if s.RequestTTL > 0 {
		return s.RequestTTL
	}
	return DefaultRequestTTL
}

func (s *FriendsService) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.Tx == nil {
		return fn(ctx)
	}
	return s.Tx.RunInTx(ctx, fn)
}
