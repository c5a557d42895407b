package domain

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is the directory record for an account. ContactIDs is the decoded
// mutual-contact set; its storage encoding belongs to the store, never to
// callers.
type User struct {
	ID         int64
	Username   string
	Email      string
	Status     UserStatus
	AvatarPath string
	ContactIDs []int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserSummary is the redacted public view of a User. It carries no email,
// status, or contact list.
type UserSummary struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	AvatarPath string `json:"avatar_path,omitempty"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, AvatarPath: u.AvatarPath}
}

// HasContact reports whether id is already in the user's contact set.
func (u User) HasContact(id int64) bool {
	for _, c := range u.ContactIDs {
		if c == id {
			return true
		}
	}
	return false
}

// AddContact adds id to the contact set if absent and reports whether the
// set changed.
func (u *User) AddContact(id int64) bool {
	if u.HasContact(id) {
		return false
	}
	u.ContactIDs = append(u.ContactIDs, id)
	return true
}
