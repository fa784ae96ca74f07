package store

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docchat/internal/domain"
)

var (
	bucketSessions = []byte("sessions")
	bucketTurns    = []byte("turns")
	bucketUsage    = []byte("usage")
)

// BoltSessionStore persists chat transcripts and token usage in BoltDB.
// Sessions are keyed by user and session ID; turns keep insertion order via
// a per-session sequence number.
type BoltSessionStore struct {
	db *bbolt.DB
}

// NewBoltSessionStore opens (or creates) the database file and its buckets.
func NewBoltSessionStore(path string) (*BoltSessionStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open sessions db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketSessions, bucketTurns, bucketUsage} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltSessionStore{db: db}, nil
}

func sessionKey(userID, sessionID string) []byte {
	return []byte(userID + "/" + sessionID)
}

func turnKey(userID, sessionID string, seq uint64) []byte {
	key := sessionKey(userID, sessionID)
	key = append(key, '/')
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}

// AppendTurn stores one exchange and folds its token usage into the session
// total. The first turn of a session also records the session summary.
func (s *BoltSessionStore) AppendTurn(userID, sessionID string, turn domain.ChatTurn, usage domain.TokenUsage) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		skey := sessionKey(userID, sessionID)

		if sessions.Get(skey) == nil {
			summary := domain.SessionSummary{
				SessionID:    sessionID,
				FirstMessage: turn.UserPrompt,
			}
			data, err := json.Marshal(summary)
			if err != nil {
				return err
			}
			if err := sessions.Put(skey, data); err != nil {
				return err
			}
		}

		turns := tx.Bucket(bucketTurns)
		seq, err := turns.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(turn)
		if err != nil {
			return err
		}
		if err := turns.Put(turnKey(userID, sessionID, seq), data); err != nil {
			return err
		}

		usageBucket := tx.Bucket(bucketUsage)
		total := domain.TokenUsage{}
		if prev := usageBucket.Get(skey); prev != nil {
			if err := json.Unmarshal(prev, &total); err != nil {
				return err
			}
		}
		total = total.Add(usage)
		data, err = json.Marshal(total)
		if err != nil {
			return err
		}
		return usageBucket.Put(skey, data)
	})
}

// TurnsBySession returns the session's turns in insertion order.
func (s *BoltSessionStore) TurnsBySession(userID, sessionID string) ([]domain.ChatTurn, error) {
	var turns []domain.ChatTurn
	prefix := append(sessionKey(userID, sessionID), '/')

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketTurns).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var turn domain.ChatTurn
			if err := json.Unmarshal(v, &turn); err != nil {
				return err
			}
			turns = append(turns, turn)
		}
		return nil
	})
	return turns, err
}

// SessionsByUser lists all sessions started by the user.
func (s *BoltSessionStore) SessionsByUser(userID string) ([]domain.SessionSummary, error) {
	var summaries []domain.SessionSummary
	prefix := []byte(userID + "/")

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketSessions).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var summary domain.SessionSummary
			if err := json.Unmarshal(v, &summary); err != nil {
				return err
			}
			summaries = append(summaries, summary)
		}
		return nil
	})
	return summaries, err
}

// DeleteSession removes the session, its turns and its usage counters.
// Returns false when the session did not exist.
func (s *BoltSessionStore) DeleteSession(userID, sessionID string) (bool, error) {
	existed := false
	skey := sessionKey(userID, sessionID)
	prefix := append(sessionKey(userID, sessionID), '/')

	err := s.db.Update(func(tx *bbolt.Tx) error {
		sessions := tx.Bucket(bucketSessions)
		if sessions.Get(skey) != nil {
			existed = true
			if err := sessions.Delete(skey); err != nil {
				return err
			}
		}

		turns := tx.Bucket(bucketTurns)
		c := turns.Cursor()
		var stale [][]byte
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := turns.Delete(k); err != nil {
				return err
			}
		}

		return tx.Bucket(bucketUsage).Delete(skey)
	})
	return existed, err
}

// TokenUsage returns the accumulated usage for a session. An unknown session
// reports zero usage.
func (s *BoltSessionStore) TokenUsage(userID, sessionID string) (domain.TokenUsage, error) {
	var usage domain.TokenUsage
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketUsage).Get(sessionKey(userID, sessionID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &usage)
	})
	return usage, err
}

// Close closes the underlying database.
func (s *BoltSessionStore) Close() error {
	return s.db.Close()
}

