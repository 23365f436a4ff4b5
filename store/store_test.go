package store

import (
	"errors"
	"testing"
	"time"

	"github.com/railradar/locotrack/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 6*time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func intPtr(v int) *int { return &v }

func observation(locoNo, speed int, observedAt time.Time) model.Observation {
	return model.Observation{
		LocoNo:     locoNo,
		Latitude:   28.6448,
		Longitude:  77.2167,
		Station:    "DELHI",
		Event:      "DEPARTURE",
		Speed:      speed,
		ObservedAt: model.NewRFC3339Time(observedAt),
	}
}

func TestBulkUpsertIdempotent(t *testing.T) {
	s := openTestStore(t)
	obs := observation(30331, 45, time.Now())

	res, err := s.BulkUpsert([]model.Observation{obs})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if res.Inserted != 1 || res.Updated != 0 {
		t.Fatalf("first upsert = %+v, want 1 inserted", res)
	}

	res, err = s.BulkUpsert([]model.Observation{obs})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if res.Inserted != 0 || res.Updated != 1 {
		t.Fatalf("second upsert = %+v, want 1 updated", res)
	}

	history, err := s.History(30331, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d rows, want exactly 1 for the same (loco, observed_at)", len(history))
	}
}

func TestUpsertSameKeyTakesLatestValue(t *testing.T) {
	s := openTestStore(t)
	at := time.Now()

	if _, err := s.BulkUpsert([]model.Observation{observation(30331, 45, at)}); err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	// A later cycle re-reports the same upstream timestamp with a
	// changed speed.
	if _, err := s.BulkUpsert([]model.Observation{observation(30331, 52, at)}); err != nil {
		t.Fatalf("second cycle: %v", err)
	}

	latest, err := s.LatestByLoco(30331)
	if err != nil {
		t.Fatalf("LatestByLoco: %v", err)
	}
	if latest.Speed != 52 {
		t.Errorf("speed = %d, want the second cycle's 52", latest.Speed)
	}
	history, _ := s.History(30331, 10)
	if len(history) != 1 {
		t.Fatalf("got %d rows, want 1", len(history))
	}
}

func TestEmptyBatchIsNoop(t *testing.T) {
	s := openTestStore(t)
	res, err := s.BulkUpsert(nil)
	if err != nil {
		t.Fatalf("BulkUpsert(nil): %v", err)
	}
	if res != (WriteResult{}) {
		t.Fatalf("res = %+v, want zero result", res)
	}
}

func TestExpiredObservationSkipped(t *testing.T) {
	s := openTestStore(t)
	stale := observation(30331, 45, time.Now().Add(-7*time.Hour))

	res, err := s.BulkUpsert([]model.Observation{stale})
	if err != nil {
		t.Fatalf("BulkUpsert: %v", err)
	}
	if res.Skipped != 1 || res.Inserted != 0 {
		t.Fatalf("res = %+v, want the stale observation skipped", res)
	}
	if _, err := s.LatestByLoco(30331); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().Add(-30 * time.Minute)
	var batch []model.Observation
	for i := 0; i < 5; i++ {
		batch = append(batch, observation(30331, 10*i, base.Add(time.Duration(i)*time.Minute)))
	}
	if _, err := s.BulkUpsert(batch); err != nil {
		t.Fatalf("BulkUpsert: %v", err)
	}

	history, err := s.History(30331, 3)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("got %d rows, want limit 3", len(history))
	}
	for i := 1; i < len(history); i++ {
		if history[i].ObservedAt.After(history[i-1].ObservedAt.Time) {
			t.Fatalf("history not newest-first: %v before %v",
				history[i-1].ObservedAt.Time, history[i].ObservedAt.Time)
		}
	}
	if history[0].Speed != 40 {
		t.Errorf("newest speed = %d, want 40", history[0].Speed)
	}
}

func TestHistoryUnknownLocoEmpty(t *testing.T) {
	s := openTestStore(t)
	history, err := s.History(99999, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("got %d rows, want none", len(history))
	}
}

func TestLatestByTrain(t *testing.T) {
	s := openTestStore(t)
	old := observation(30331, 45, time.Now().Add(-10*time.Minute))
	old.TrainNo = intPtr(12951)
	recent := observation(30250, 60, time.Now())
	recent.TrainNo = intPtr(12951)

	if _, err := s.BulkUpsert([]model.Observation{old, recent}); err != nil {
		t.Fatalf("BulkUpsert: %v", err)
	}

	latest, err := s.LatestByTrain(12951)
	if err != nil {
		t.Fatalf("LatestByTrain: %v", err)
	}
	if latest.LocoNo != 30250 {
		t.Errorf("loco_no = %d, want the most recent reporter 30250", latest.LocoNo)
	}

	if _, err := s.LatestByTrain(11111); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound for unknown train", err)
	}
}

func TestLocoIsolation(t *testing.T) {
	s := openTestStore(t)
	at := time.Now()
	if _, err := s.BulkUpsert([]model.Observation{
		observation(30331, 45, at),
		observation(30250, 60, at),
	}); err != nil {
		t.Fatalf("BulkUpsert: %v", err)
	}

	a, err := s.LatestByLoco(30331)
	if err != nil {
		t.Fatalf("LatestByLoco(30331): %v", err)
	}
	if a.Speed != 45 {
		t.Errorf("loco 30331 speed = %d, want 45", a.Speed)
	}
	b, err := s.LatestByLoco(30250)
	if err != nil {
		t.Fatalf("LatestByLoco(30250): %v", err)
	}
	if b.Speed != 60 {
		t.Errorf("loco 30250 speed = %d, want 60", b.Speed)
	}
}

func TestUpsertOne(t *testing.T) {
	s := openTestStore(t)
	if err := s.UpsertOne(observation(30331, 45, time.Now())); err != nil {
		t.Fatalf("UpsertOne: %v", err)
	}
	if _, err := s.LatestByLoco(30331); err != nil {
		t.Fatalf("LatestByLoco after UpsertOne: %v", err)
	}
}

func TestReady(t *testing.T) {
	s, err := Open(t.TempDir(), time.Hour)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !s.Ready() {
		t.Error("open store must report ready")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Ready() {
		t.Error("closed store must not report ready")
	}
}
