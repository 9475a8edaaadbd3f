package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"channel-hub/contract"
	"channel-hub/domain"
	"channel-hub/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// messageKey is formatted as "msg:{channel}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order matches time order).
//  2. Prevent data loss by using the UUID as a collision disconnector if
//     two messages arrive at the same nanosecond.
func messageKey(channelID domain.ChannelID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", messagePrefix, channelID, at.UnixNano(), id))
}

func messageIDKey(id uuid.UUID) []byte {
	return []byte(messageIDIndex + id.String())
}

func recentKey(authorID domain.UserID, channelID domain.ChannelID, at time.Time) []byte {
	return []byte(fmt.Sprintf("%s%s:%s:%019d", recentPrefix, authorID, channelID, at.UnixNano()))
}

// InsertMessage persists a new message plus two auxiliary records: the
// by-ID index used for point lookups, and a TTL-bound history entry for the
// rate filter.
func (s *Store) InsertMessage(_ context.Context, msg domain.Message) error {
	primary := messageKey(msg.ChannelID, msg.CreatedAt, msg.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, primary, msg); err != nil {
			return err
		}
		if err := txn.Set(messageIDKey(msg.ID), primary); err != nil {
			return err
		}
		recent, err := json.Marshal(contract.RecentEntry{Content: msg.Content, At: msg.CreatedAt})
		if err != nil {
			return err
		}
		entry := badger.NewEntry(recentKey(msg.AuthorID, msg.ChannelID, msg.CreatedAt), recent).
			WithTTL(recentTTL)
		return txn.SetEntry(entry)
	})
}

func (s *Store) FindMessage(_ context.Context, id uuid.UUID) (domain.Message, error) {
	var msg domain.Message
	err := s.db.View(func(txn *badger.Txn) error {
		primary, err := resolveMessageKey(txn, id)
		if err != nil {
			return err
		}
		return getJSON(txn, primary, &msg)
	})
	return msg, err
}

// UpdateMessage writes msg only if the stored version still matches
// msg.Version. Read, compare, and write happen in one transaction, so a
// concurrent writer loses with ErrConflict instead of silently clobbering.
func (s *Store) UpdateMessage(_ context.Context, msg domain.Message) (domain.Message, error) {
	updated := msg
	updated.Version = uuid.New()
	err := s.db.Update(func(txn *badger.Txn) error {
		primary, err := resolveMessageKey(txn, msg.ID)
		if err != nil {
			return err
		}
		var stored domain.Message
		if err := getJSON(txn, primary, &stored); err != nil {
			return err
		}
		if stored.Version != msg.Version {
			return errors.ErrConflict
		}
		return setJSON(txn, primary, updated)
	})
	if err != nil {
		return domain.Message{}, err
	}
	return updated, nil
}

func resolveMessageKey(txn *badger.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(messageIDKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, errors.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", errors.ErrStore, err)
	}
	return item.ValueCopy(nil)
}

// ListMessages retrieves a channel's messages newest first using a reverse
// prefix scan. Thanks to the padded timestamp in the key, no sort step is
// needed. The returned cursor resumes the scan on the next page.
func (s *Store) ListMessages(_ context.Context, channelID domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string

	err := s.db.View(func(txn *badger.Txn) error {
		prefixStr := fmt.Sprintf("%s%s:", messagePrefix, channelID)
		prefix := []byte(prefixStr)

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		if cursor == nil {
			// Seek past the newest possible key, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999")...)
		} else {
			seekKey = append(prefix, []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(messages) == limit {
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefixStr):])
			err := item.Value(func(v []byte) error {
				var msg domain.Message
				if err := json.Unmarshal(v, &msg); err != nil {
					return err
				}
				messages = append(messages, msg)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

// RecentMessages returns the author's history entries in the channel inside
// the window, newest first. Entries expire via TTL so the scan stays small.
func (s *Store) RecentMessages(_ context.Context, authorID domain.UserID, channelID domain.ChannelID, since time.Duration) ([]contract.RecentEntry, error) {
	var entries []contract.RecentEntry
	cutoff := time.Now().UTC().Add(-since)

	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("%s%s:%s:", recentPrefix, authorID, channelID))

		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(v []byte) error {
				var entry contract.RecentEntry
				if err := json.Unmarshal(v, &entry); err != nil {
					return err
				}
				if entry.At.After(cutoff) {
					entries = append(entries, entry)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStore, err)
	}
	return entries, nil
}
