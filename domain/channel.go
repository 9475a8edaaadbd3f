// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChannelID string

type UserID string

// Role is the authorization level a user holds, either globally or
// within a single channel.
type Role string

const (
	RoleMember    Role = "member"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

var roleRank = map[Role]int{
	RoleMember:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

type Channel struct {
	ID        ChannelID
	Name      string
	CreatorID UserID
	Private   bool
	CreatedAt time.Time
}

// Membership is the durable authorization record binding a user to a channel.
// It is distinct from a live Subscription, which only exists while the user
// holds an open connection.
type Membership struct {
	ChannelID ChannelID
	UserID    UserID
	Role      Role
	JoinedAt  time.Time
}

// MembershipInfo is the oracle result consulted at every authorization
// decision. It must reflect the latest committed membership state.
type MembershipInfo struct {
	IsMember bool
	Role     Role
	Private  bool
}

func NewChannelID() ChannelID {
	return ChannelID(uuid.NewString())
}
