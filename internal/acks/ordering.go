// Package acks orders acknowledgements for display.
package acks

import (
	"slices"
	"time"

	"github.com/platformbuilds/alertdesk/internal/models"
)

// Compare orders acknowledgements newest first: event timestamp descending,
// then expiration descending. On equal timestamps an acknowledgement with an
// expiration comes before one without; two without compare equal.
func Compare(a, b models.Acknowledgement) int {
	if c := compareDesc(a.Event.Timestamp, b.Event.Timestamp); c != 0 {
		return c
	}
	switch {
	case a.Expiration.Valid && b.Expiration.Valid:
		return compareDesc(a.Expiration.Time, b.Expiration.Time)
	case a.Expiration.Valid:
		return -1
	case b.Expiration.Valid:
		return 1
	default:
		return 0
	}
}

func compareDesc(a, b time.Time) int {
	return b.Compare(a)
}

// Sort returns a sorted copy. Exact ties keep their input order.
func Sort(in []models.Acknowledgement) []models.Acknowledgement {
	out := slices.Clone(in)
	slices.SortStableFunc(out, Compare)
	return out
}

// Insert places ack into an already sorted list.
func Insert(sorted []models.Acknowledgement, ack models.Acknowledgement) []models.Acknowledgement {
	i := len(sorted)
	for j, existing := range sorted {
		if Compare(ack, existing) < 0 {
			i = j
			break
		}
	}
	return slices.Insert(slices.Clone(sorted), i, ack)
}
