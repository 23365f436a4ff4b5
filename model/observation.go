package model

import "time"

// Observation is one reported position for a locomotive. The pair
// (LocoNo, ObservedAt) identifies it uniquely; writing the same pair
// twice updates the stored record in place.
type Observation struct {
	LocoNo     int         `json:"loco_no"`
	TrainNo    *int        `json:"train_no"`
	Latitude   float64     `json:"latitude"`
	Longitude  float64     `json:"longitude"`
	Station    string      `json:"station"`
	Event      string      `json:"event"`
	Speed      int         `json:"speed"`
	ObservedAt RFC3339Time `json:"timestamp"`
}

// RFC3339Time serializes as RFC3339 in UTC, the textual form the
// frontend consumes.
type RFC3339Time struct {
	time.Time
}

// NewRFC3339Time wraps t, normalized to UTC.
func NewRFC3339Time(t time.Time) RFC3339Time {
	return RFC3339Time{t.UTC()}
}

func (t RFC3339Time) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(time.RFC3339) + `"`), nil
}

func (t *RFC3339Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	if len(s) >= 2 && s[0] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}
