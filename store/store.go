package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/railradar/locotrack/model"
)

// ErrNotFound is returned by lookups that match no stored observation.
var ErrNotFound = errors.New("observation not found")

const (
	obsKeyPrefix   = "obs:"
	trainKeyPrefix = "trn:"

	// Fixed-width, lexicographically sortable timestamp form used in
	// keys so prefix iteration walks observations in time order.
	keyTimeLayout = "20060102150405"

	gcInterval     = 10 * time.Minute
	gcDiscardRatio = 0.5
)

// Store is the observation store. It is safe for concurrent use.
type Store struct {
	db        *badger.DB
	retention time.Duration
	stopGC    chan struct{}
	doneGC    chan struct{}
}

// WriteResult reports the outcome of a bulk upsert.
type WriteResult struct {
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
}

// Open opens (or creates) the store at path. Observations expire once
// they are retention past their observed_at.
func Open(path string, retention time.Duration) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	s := &Store{
		db:        db,
		retention: retention,
		stopGC:    make(chan struct{}),
		doneGC:    make(chan struct{}),
	}
	go s.runGC()
	return s, nil
}

// Ready reports whether the store can accept reads and writes. The DB
// is embedded, so this only fails once the store has been closed.
func (s *Store) Ready() bool {
	return !s.db.IsClosed()
}

// Close stops the value-log GC loop and closes the database.
func (s *Store) Close() error {
	close(s.stopGC)
	<-s.doneGC
	return s.db.Close()
}

// runGC reclaims value-log space freed by expired observations.
func (s *Store) runGC() {
	defer close(s.doneGC)
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			// One round per tick; ErrNoRewrite just means there was
			// nothing worth collecting.
			if err := s.db.RunValueLogGC(gcDiscardRatio); err != nil &&
				!errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				log.Warn().Err(err).Msg("store value log GC failed")
			}
		}
	}
}

// BulkUpsert writes a batch of observations with unordered semantics:
// one record's failure never prevents its siblings from applying.
// Observations already past the retention window are skipped. An empty
// batch performs no store operation.
func (s *Store) BulkUpsert(observations []model.Observation) (WriteResult, error) {
	var res WriteResult
	if len(observations) == 0 {
		return res, nil
	}

	txn := s.db.NewTransaction(true)
	defer func() { txn.Discard() }()

	for _, obs := range observations {
		ttl := time.Until(obs.ObservedAt.Add(s.retention))
		if ttl <= 0 {
			res.Skipped++
			continue
		}

		existed, err := s.writeObservation(txn, obs, ttl)
		if errors.Is(err, badger.ErrTxnTooBig) {
			if err := txn.Commit(); err != nil {
				return res, fmt.Errorf("commit upsert batch: %w", err)
			}
			txn = s.db.NewTransaction(true)
			existed, err = s.writeObservation(txn, obs, ttl)
		}
		if err != nil {
			res.Failed++
			log.Warn().Err(err).Int("loco", obs.LocoNo).Msg("observation upsert failed")
			continue
		}
		if existed {
			res.Updated++
		} else {
			res.Inserted++
		}
	}

	if err := txn.Commit(); err != nil {
		return res, fmt.Errorf("commit upsert batch: %w", err)
	}
	return res, nil
}

// UpsertOne writes a single observation, for the on-demand path.
func (s *Store) UpsertOne(obs model.Observation) error {
	res, err := s.BulkUpsert([]model.Observation{obs})
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("upsert failed for loco %d", obs.LocoNo)
	}
	return nil
}

func (s *Store) writeObservation(txn *badger.Txn, obs model.Observation, ttl time.Duration) (existed bool, err error) {
	key := obsKey(obs.LocoNo, obs.ObservedAt.Time)
	switch _, getErr := txn.Get(key); {
	case getErr == nil:
		existed = true
	case errors.Is(getErr, badger.ErrKeyNotFound):
	default:
		return false, getErr
	}

	data, err := json.Marshal(obs)
	if err != nil {
		return existed, err
	}
	if err := txn.SetEntry(badger.NewEntry(key, data).WithTTL(ttl)); err != nil {
		return existed, err
	}
	if obs.TrainNo != nil {
		tk := trainKey(*obs.TrainNo, obs.ObservedAt.Time, obs.LocoNo)
		if err := txn.SetEntry(badger.NewEntry(tk, data).WithTTL(ttl)); err != nil {
			return existed, err
		}
	}
	return existed, nil
}

// LatestByLoco returns the most recent stored observation for a
// locomotive, or ErrNotFound.
func (s *Store) LatestByLoco(locoNo int) (*model.Observation, error) {
	prefix := []byte(fmt.Sprintf("%s%08d:", obsKeyPrefix, locoNo))
	return s.latestForPrefix(prefix)
}

// LatestByTrain returns the most recent observation recorded for a
// train number, or ErrNotFound.
func (s *Store) LatestByTrain(trainNo int) (*model.Observation, error) {
	prefix := []byte(fmt.Sprintf("%s%08d:", trainKeyPrefix, trainNo))
	return s.latestForPrefix(prefix)
}

func (s *Store) latestForPrefix(prefix []byte) (*model.Observation, error) {
	var obs *model.Observation
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration must seek past the whole prefix range.
		it.Seek(append(append([]byte{}, prefix...), 0xFF))
		if !it.ValidForPrefix(prefix) {
			return ErrNotFound
		}
		return it.Item().Value(func(val []byte) error {
			var o model.Observation
			if err := json.Unmarshal(val, &o); err != nil {
				return err
			}
			obs = &o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return obs, nil
}

// History returns up to limit observations for a locomotive, newest
// first. A locomotive with no stored observations yields an empty
// slice, not an error.
func (s *Store) History(locoNo int, limit int) ([]model.Observation, error) {
	prefix := []byte(fmt.Sprintf("%s%08d:", obsKeyPrefix, locoNo))
	out := make([]model.Observation, 0, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(append(append([]byte{}, prefix...), 0xFF)); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var o model.Observation
				if err := json.Unmarshal(val, &o); err != nil {
					return err
				}
				out = append(out, o)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func obsKey(locoNo int, ts time.Time) []byte {
	return []byte(fmt.Sprintf("%s%08d:%s", obsKeyPrefix, locoNo, ts.UTC().Format(keyTimeLayout)))
}

func trainKey(trainNo int, ts time.Time, locoNo int) []byte {
	return []byte(fmt.Sprintf("%s%08d:%s:%08d", trainKeyPrefix, trainNo, ts.UTC().Format(keyTimeLayout), locoNo))
}
