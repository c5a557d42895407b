package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"friendlink/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// UsersStore is the user directory. The contact-id set is stored as a JSON
// array of integers in the contact_ids column; callers only ever see the
// decoded slice.
type UsersStore struct {
	db *DB
}

func NewUsersStore(db *DB) *UsersStore {
	return &UsersStore{db: db}
}

func (s *UsersStore) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	const q = `
		SELECT id, username, email, status, avatar_path, contact_ids, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var (
		u          domain.User
		emailText  pgtype.Text
		avatarText pgtype.Text
		contactRaw []byte
	)
	err := s.db.querier(ctx).QueryRow(ctx, q, id).Scan(
		&u.ID,
		&u.Username,
		&emailText,
		&u.Status,
		&avatarText,
		&contactRaw,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}

	u.Email = textOrEmpty(emailText)
	u.AvatarPath = textOrEmpty(avatarText)
	u.ContactIDs, err = decodeContactIDs(contactRaw)
	if err != nil {
		return domain.User{}, fmt.Errorf("decode contact ids for user %d: %w", id, err)
	}
	return u, nil
}

func (s *UsersStore) UpdateUser(ctx context.Context, u domain.User) error {
	const q = `
		UPDATE users
		SET username = $2, email = $3, status = $4, avatar_path = $5, contact_ids = $6, updated_at = now()
		WHERE id = $1
	`

	contacts, err := encodeContactIDs(u.ContactIDs)
	if err != nil {
		return fmt.Errorf("encode contact ids for user %d: %w", u.ID, err)
	}

	ct, err := s.db.querier(ctx).Exec(ctx, q,
		u.ID, u.Username, nullIfEmpty(u.Email), u.Status, nullIfEmpty(u.AvatarPath), contacts,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// encodeContactIDs serializes a contact set as a sorted, deduplicated JSON
// array so equal sets are byte-identical in storage.
func encodeContactIDs(ids []int64) ([]byte, error) {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return json.Marshal(out)
}

func decodeContactIDs(raw []byte) ([]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}
