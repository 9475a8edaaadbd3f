// Package repositories persists channels, memberships, and messages in
// BadgerDB. Values are JSON-encoded; keys are designed so prefix scans
// return records in a useful order without secondary indexing.
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"channel-hub/domain"
	"channel-hub/errors"

	"github.com/dgraph-io/badger/v4"
)

const (
	channelPrefix  = "channel:"
	memberPrefix   = "member:"
	messagePrefix  = "msg:"
	messageIDIndex = "msgid:"
	recentPrefix   = "recent:"
	activityPrefix = "activity:"

	// recentTTL bounds how long the rate filter's history entries live.
	recentTTL = 60 * time.Minute
)

// Store implements the persistence contract on a single BadgerDB instance.
type Store struct {
	db  *badger.DB
	log *slog.Logger
}

func NewStore(db *badger.DB, log *slog.Logger) *Store {
	return &Store{db: db, log: log}
}

func channelKey(id domain.ChannelID) []byte {
	return []byte(channelPrefix + string(id))
}

func memberKey(channelID domain.ChannelID, userID domain.UserID) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", memberPrefix, channelID, userID))
}

func activityKey(userID domain.UserID) []byte {
	return []byte(activityPrefix + string(userID))
}

// getJSON reads and decodes one key inside a view transaction.
// Missing keys surface as errors.ErrNotFound.
func getJSON(txn *badger.Txn, key []byte, out any) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrNotFound
		}
		return fmt.Errorf("%w: %v", errors.ErrStore, err)
	}
	return item.Value(func(v []byte) error {
		return json.Unmarshal(v, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, in any) error {
	bytes, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return txn.Set(key, bytes)
}
