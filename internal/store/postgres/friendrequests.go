package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"friendlink/internal/domain"

	"github.com/jackc/pgx/v5"
)

type FriendRequestsStore struct {
	db *DB
}

func NewFriendRequestsStore(db *DB) *FriendRequestsStore {
	return &FriendRequestsStore{db: db}
}

const friendRequestColumns = "id, from_id, receive_id, remark, status, is_read, created_at, updated_at"

func (s *FriendRequestsStore) Create(ctx context.Context, fr domain.FriendRequest) (domain.FriendRequest, error) {
	const q = `
		INSERT INTO friend_requests (from_id, receive_id, remark, status, is_read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.querier(ctx).QueryRow(ctx, q,
		fr.FromID, fr.ReceiveID, fr.Remark, string(fr.Status), fr.IsRead, fr.CreatedAt, fr.UpdatedAt,
	).Scan(&fr.ID)
	if err != nil {
		return domain.FriendRequest{}, fmt.Errorf("create friend request: %w", err)
	}
	return fr, nil
}

func (s *FriendRequestsStore) GetByID(ctx context.Context, id int64) (domain.FriendRequest, error) {
	q := `SELECT ` + friendRequestColumns + ` FROM friend_requests WHERE id = $1`

	fr, err := scanFriendRequest(s.db.querier(ctx).QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.FriendRequest{}, domain.ErrNotFound
		}
		return domain.FriendRequest{}, fmt.Errorf("get friend request: %w", err)
	}
	return fr, nil
}

// Find returns the matching requests in insertion order (ascending id).
func (s *FriendRequestsStore) Find(ctx context.Context, f domain.FriendRequestFilter) ([]domain.FriendRequest, error) {
	where, args := filterClause(f)
	q := `SELECT ` + friendRequestColumns + ` FROM friend_requests` + where + ` ORDER BY id ASC`

	rows, err := s.db.querier(ctx).Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("find friend requests: %w", err)
	}
	defer rows.Close()

	var out []domain.FriendRequest
	for rows.Next() {
		fr, err := scanFriendRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan friend request: %w", err)
		}
		out = append(out, fr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find friend requests: %w", err)
	}
	return out, nil
}

func (s *FriendRequestsStore) Count(ctx context.Context, f domain.FriendRequestFilter) (int64, error) {
	where, args := filterClause(f)
	q := `SELECT count(*) FROM friend_requests` + where

	var n int64
	if err := s.db.querier(ctx).QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count friend requests: %w", err)
	}
	return n, nil
}

func (s *FriendRequestsStore) Update(ctx context.Context, fr domain.FriendRequest) error {
	const q = `
		UPDATE friend_requests
		SET remark = $2, status = $3, is_read = $4, updated_at = $5
		WHERE id = $1
	`
	ct, err := s.db.querier(ctx).Exec(ctx, q, fr.ID, fr.Remark, string(fr.Status), fr.IsRead, fr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update friend request: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TransitionStatus flips the request's status only when it still holds the
// expected one. Under the default isolation level a concurrent writer blocks
// on the row lock and re-evaluates the predicate after the winner commits,
// so at most one transition out of a given status succeeds.
func (s *FriendRequestsStore) TransitionStatus(ctx context.Context, id int64, from, to domain.FriendRequestStatus, when time.Time) (bool, error) {
	const q = `
		UPDATE friend_requests
		SET status = $3, updated_at = $4
		WHERE id = $1 AND status = $2
	`
	ct, err := s.db.querier(ctx).Exec(ctx, q, id, string(from), string(to), when)
	if err != nil {
		return false, fmt.Errorf("transition friend request: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

func filterClause(f domain.FriendRequestFilter) (string, []any) {
	var conds []string
	var args []any
	if f.FromID != 0 {
		args = append(args, f.FromID)
		conds = append(conds, fmt.Sprintf("from_id = $%d", len(args)))
	}
	if f.ReceiveID != 0 {
		args = append(args, f.ReceiveID)
		conds = append(conds, fmt.Sprintf("receive_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanFriendRequest(row pgx.Row) (domain.FriendRequest, error) {
	var (
		fr     domain.FriendRequest
		status string
	)
	err := row.Scan(
		&fr.ID,
		&fr.FromID,
		&fr.ReceiveID,
		&fr.Remark,
		&status,
		&fr.IsRead,
		&fr.CreatedAt,
		&fr.UpdatedAt,
	)
	if err != nil {
		return domain.FriendRequest{}, err
	}
	fr.Status = domain.FriendRequestStatus(status)
	return fr, nil
}
