package repositories

import (
	"context"
	"time"

	"channel-hub/domain"
	"channel-hub/errors"

	"github.com/dgraph-io/badger/v4"
)

func (s *Store) CreateChannel(_ context.Context, ch domain.Channel) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, channelKey(ch.ID), ch); err != nil {
			return err
		}
		// The creator is an admin member from the start.
		return setJSON(txn, memberKey(ch.ID, ch.CreatorID), domain.Membership{
			ChannelID: ch.ID,
			UserID:    ch.CreatorID,
			Role:      domain.RoleAdmin,
			JoinedAt:  ch.CreatedAt,
		})
	})
}

func (s *Store) FindChannel(_ context.Context, id domain.ChannelID) (domain.Channel, error) {
	var ch domain.Channel
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, channelKey(id), &ch)
	})
	return ch, err
}

func (s *Store) FindMembership(_ context.Context, channelID domain.ChannelID, userID domain.UserID) (domain.Membership, error) {
	var m domain.Membership
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, memberKey(channelID, userID), &m)
	})
	return m, err
}

func (s *Store) AddMember(_ context.Context, channelID domain.ChannelID, userID domain.UserID, role domain.Role) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, memberKey(channelID, userID), domain.Membership{
			ChannelID: channelID,
			UserID:    userID,
			Role:      role,
			JoinedAt:  time.Now().UTC(),
		})
	})
}

func (s *Store) RemoveMember(_ context.Context, channelID domain.ChannelID, userID domain.UserID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(memberKey(channelID, userID))
	})
}

func (s *Store) IsMember(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (bool, error) {
	_, err := s.FindMembership(ctx, channelID, userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) HasRole(ctx context.Context, channelID domain.ChannelID, userID domain.UserID, min domain.Role) (bool, error) {
	m, err := s.FindMembership(ctx, channelID, userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return m.Role.AtLeast(min), nil
}

// Membership implements the oracle contract by reading through to the
// latest committed channel and membership records. No caching: stale reads
// are not tolerated for authorization decisions.
func (s *Store) Membership(ctx context.Context, channelID domain.ChannelID, userID domain.UserID) (domain.MembershipInfo, error) {
	ch, err := s.FindChannel(ctx, channelID)
	if err != nil {
		return domain.MembershipInfo{}, err
	}
	m, err := s.FindMembership(ctx, channelID, userID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return domain.MembershipInfo{Private: ch.Private}, nil
		}
		return domain.MembershipInfo{}, err
	}
	return domain.MembershipInfo{IsMember: true, Role: m.Role, Private: ch.Private}, nil
}

func (s *Store) TouchLastActivity(_ context.Context, userID domain.UserID, at time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(activityKey(userID), []byte(at.Format(time.RFC3339Nano)))
	})
}
