package storage

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type ExpiryStatus int

const (
	// ExpNotFound means that the key does not exist
	ExpNotFound ExpiryStatus = -2
	// ExpNoTimeout means that the key exists, but it does not have a TTL
	ExpNoTimeout ExpiryStatus = -1
	// ExpActive means that the key has an active lifetime
	ExpActive ExpiryStatus = 1
)

// Stats is a point-in-time snapshot of engine state
type Stats struct {
	Keys         int           `json:"keys"`
	Expiring     int           `json:"expiring"`
	NextExpiryMS int64         `json:"next_expiry_ms"`
	Uptime       time.Duration `json:"-"`
}

// Store is the engine facade: the primary hash table, the TTL index and the
// background expiry reaper behind one API. It serializes the two-structure
// updates so a key's deadline is mirrored in the TTL index exactly when the
// table entry carries it. Update order on every TTL-affecting path: table
// first, TTL index second, reaper signal last.
type Store struct {
	table  *HashTable
	ttl    *TTLIndex
	logger *zap.Logger

	notify   chan struct{} // capacity 1; a pending signal is never lost
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	startTime time.Time
}

// NewStore creates the engine and starts its expiry reaper
func NewStore(logger *zap.Logger) *Store {
	s := &Store{
		table:     NewHashTable(),
		ttl:       NewTTLIndex(),
		logger:    logger,
		notify:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	go s.reapLoop()
	return s
}

// Close stops the reaper and waits for it to exit
func (s *Store) Close() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	<-s.done
}

// Set stores a persistent string value, clearing any prior deadline
func (s *Store) Set(key, value string) {
	s.table.Set(key, StringValue(value))
	s.dropTTLRecord(key)
}

// SetIfAbsent stores value only when no live entry exists
func (s *Store) SetIfAbsent(key, value string) bool {
	if !s.table.SetIfAbsent(key, StringValue(value)) {
		return false
	}
	// the slot may have been recycled from an expired entry
	s.dropTTLRecord(key)
	return true
}

// SetWithTTL stores value and schedules it to expire after ttl
func (s *Store) SetWithTTL(key, value string, ttl time.Duration) {
	deadline := time.Now().Add(ttl)
	s.table.SetWithDeadline(key, StringValue(value), deadline)
	s.installTTLRecord(key, deadline)
}

// Get returns the string value for key. A key holding another kind yields
// ErrWrongType; absence is not an error.
func (s *Store) Get(key string) (string, bool, error) {
	v, ok := s.table.Get(key)
	if !ok {
		return "", false, nil
	}
	if v.Kind() != KindString {
		return "", false, ErrWrongType
	}
	return v.Str(), true, nil
}

// Exists reports whether a live entry for key is present
func (s *Store) Exists(key string) bool {
	return s.table.Exists(key)
}

// Delete removes the key from both structures
func (s *Store) Delete(key string) bool {
	deleted := s.table.Delete(key)
	s.dropTTLRecord(key)
	return deleted
}

// Expire installs a deadline ttl from now on an existing key. A ttl of zero
// (or less) deletes the key immediately.
func (s *Store) Expire(key string, ttl time.Duration) bool {
	if ttl <= 0 {
		return s.Delete(key)
	}

	deadline := time.Now().Add(ttl)
	if !s.table.SetDeadline(key, deadline) {
		return false
	}
	s.installTTLRecord(key, deadline)
	return true
}

// TTL returns the remaining lifetime and a status following the Redis
// conventions: ExpNotFound for a missing key, ExpNoTimeout for a key
// without a deadline.
func (s *Store) TTL(key string) (time.Duration, ExpiryStatus) {
	deadline, hasDeadline, exists := s.table.Deadline(key)
	if !exists {
		return 0, ExpNotFound
	}
	if !hasDeadline {
		return 0, ExpNoTimeout
	}

	remaining := time.Until(deadline)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, ExpActive
}

// Persist drops the deadline on key, making it permanent. Returns false
// when the key is missing or had no deadline.
func (s *Store) Persist(key string) bool {
	if !s.table.ClearDeadline(key) {
		return false
	}
	s.dropTTLRecord(key)
	return true
}

// ZAdd inserts or updates member in the sorted set at key, creating the set
// when the key is absent. True means the member was new or its score changed.
func (s *Store) ZAdd(key, member string, score float64) (bool, error) {
	zset, err := s.table.SortedSetRef(key, true)
	if err != nil {
		return false, err
	}
	return zset.Add(member, score), nil
}

// ZRem removes member from the sorted set at key
func (s *Store) ZRem(key, member string) (bool, error) {
	zset, err := s.table.SortedSetRef(key, false)
	if err != nil || zset == nil {
		return false, err
	}
	return zset.Remove(member), nil
}

// ZScore returns the member's score
func (s *Store) ZScore(key, member string) (float64, bool, error) {
	zset, err := s.table.SortedSetRef(key, false)
	if err != nil || zset == nil {
		return 0, false, err
	}
	score, ok := zset.Score(member)
	return score, ok, nil
}

// ZRank returns the member's 0-based ascending rank
func (s *Store) ZRank(key, member string) (int, bool, error) {
	zset, err := s.table.SortedSetRef(key, false)
	if err != nil || zset == nil {
		return 0, false, err
	}
	rank, ok := zset.Rank(member)
	return rank, ok, nil
}

// ZCard returns the sorted set's cardinality, 0 for a missing key
func (s *Store) ZCard(key string) (int, error) {
	zset, err := s.table.SortedSetRef(key, false)
	if err != nil || zset == nil {
		return 0, err
	}
	return zset.Card(), nil
}

// ZRange returns members at ranks [start, stop]; negatives are resolved by
// the caller.
func (s *Store) ZRange(key string, start, stop int) ([]ScoredMember, error) {
	zset, err := s.table.SortedSetRef(key, false)
	if err != nil || zset == nil {
		return nil, err
	}
	return zset.RangeByRank(start, stop), nil
}

// ZRangeByScore returns members with scores in [minScore, maxScore]
func (s *Store) ZRangeByScore(key string, minScore, maxScore float64) ([]ScoredMember, error) {
	zset, err := s.table.SortedSetRef(key, false)
	if err != nil || zset == nil {
		return nil, err
	}
	return zset.RangeByScore(minScore, maxScore), nil
}

// DBSize counts live keys of every kind
func (s *Store) DBSize() int {
	return s.table.Size()
}

// Flush empties the database and wakes the reaper off its stale deadline
func (s *Store) Flush() {
	s.table.Clear()
	s.ttl.Clear()
	s.signalReaper()
}

// NextDeadline returns the time until the earliest scheduled expiry, floored
// at zero. Event loops use it to bound their poll timeout.
func (s *Store) NextDeadline() (time.Duration, bool) {
	deadline, ok := s.ttl.PeekEarliest()
	if !ok {
		return 0, false
	}
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	return d, true
}

// Stats reports engine counters for the admin endpoint
func (s *Store) Stats() Stats {
	st := Stats{
		Keys:         s.table.Size(),
		Expiring:     s.ttl.Size(),
		NextExpiryMS: -1,
		Uptime:       time.Since(s.startTime),
	}
	if d, ok := s.NextDeadline(); ok {
		st.NextExpiryMS = d.Milliseconds()
	}
	return st
}

// installTTLRecord mirrors a new deadline into the TTL index and signals the
// reaper when the earliest deadline moved forward in time.
func (s *Store) installTTLRecord(key string, deadline time.Time) {
	prev, prevOk := s.ttl.PeekEarliest()
	s.ttl.Upsert(key, deadline)
	if !prevOk || deadline.Before(prev) {
		s.signalReaper()
	}
}

// dropTTLRecord removes a key's TTL record and signals the reaper when that
// record was the current head.
func (s *Store) dropTTLRecord(key string) {
	prev, prevOk := s.ttl.PeekEarliest()
	if !s.ttl.Remove(key) {
		return
	}
	cur, curOk := s.ttl.PeekEarliest()
	if prevOk && (!curOk || cur.After(prev)) {
		s.signalReaper()
	}
}

// signalReaper never blocks: with a buffered slot, a signal sent while the
// reaper is draining is picked up on its next loop iteration.
func (s *Store) signalReaper() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// reapLoop sleeps until the earliest scheduled deadline, or until signalled
// that the schedule changed, then drains everything expired. The TTL index
// drain and each table delete take one lock at a time, so the loop can never
// deadlock against foreground commands.
func (s *Store) reapLoop() {
	defer close(s.done)

	for {
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		if deadline, ok := s.ttl.PeekEarliest(); ok {
			wait := time.Until(deadline)
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-s.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-s.notify:
			// schedule changed; recompute the wait
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}

		now := time.Now()
		expired := s.ttl.DrainExpired(now)
		reaped := 0
		for _, key := range expired {
			// skip keys that were re-set between the drain and this delete
			if s.table.DeleteIfExpired(key, now) {
				reaped++
			}
		}

		if reaped > 0 && s.logger.Core().Enabled(zap.DebugLevel) {
			s.logger.Debug("reaped expired keys", zap.Int("count", reaped))
		}
	}
}
