package models

import (
	"encoding/json"
	"strings"
	"time"
)

// OptionalTime is a timestamp that the upstream may leave out. It decodes
// null, "" and "infinity" (open-ended stateful incidents) as unset, and
// RFC3339/RFC3339Nano strings otherwise.
type OptionalTime struct {
	time.Time
	Valid bool
}

// SomeTime returns a set OptionalTime.
func SomeTime(t time.Time) OptionalTime { return OptionalTime{Time: t, Valid: true} }

func (ot *OptionalTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*ot = OptionalTime{}
		return nil
	}
	var val string
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}
	switch strings.ToLower(val) {
	case "", "infinity":
		*ot = OptionalTime{}
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return err
	}
	*ot = OptionalTime{Time: t, Valid: true}
	return nil
}

func (ot OptionalTime) MarshalJSON() ([]byte, error) {
	if !ot.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(ot.Time.Format(time.RFC3339Nano))
}

// Ptr returns nil when unset.
func (ot OptionalTime) Ptr() *time.Time {
	if !ot.Valid {
		return nil
	}
	t := ot.Time
	return &t
}
