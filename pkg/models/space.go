package models

import "time"

// SpaceType tags a space as single-user or paired.
type SpaceType string

const (
	SpacePersonal SpaceType = "PERSONAL"
	SpaceShared   SpaceType = "SHARED"
)

// MaxSpaceMembers is the membership ceiling for a shared space.
const MaxSpaceMembers = 2

// Space is a container scoping tasks to a fixed membership
type Space struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	MemberIDs  []string  `json:"memberIds" db:"member_ids"`
	InviteCode string    `json:"inviteCode,omitempty" db:"invite_code"`
	Type       SpaceType `json:"type" db:"type"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// HasMember reports whether userID is in the space's member set.
func (s *Space) HasMember(userID string) bool {
	for _, id := range s.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
