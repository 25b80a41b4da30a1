// Package metadata indexes the alert metadata the upstream returns so filters
// can be translated between raw ids and display names.
package metadata

import "github.com/platformbuilds/alertdesk/internal/models"

// Keyed is any entity indexed by its own primary key.
type Keyed interface {
	Key() models.PK
}

// Named entities can be offered as selectable options.
type Named interface {
	Keyed
	DisplayName() string
}

// Build indexes items by primary key. A repeated key keeps the last item.
func Build[T Keyed](items []T) map[models.PK]T {
	out := make(map[models.PK]T, len(items))
	for _, item := range items {
		out[item.Key()] = item
	}
	return out
}

// Dictionary holds the four metadata lookups. It is built once per fetch and
// only read afterwards.
type Dictionary struct {
	Sources       map[models.PK]models.AlertSource
	ObjectTypes   map[models.PK]models.ObjectType
	ParentObjects map[models.PK]models.ParentObject
	ProblemTypes  map[models.PK]models.ProblemType

	raw models.AlertMetadata
}

func FromAlertMetadata(m models.AlertMetadata) *Dictionary {
	return &Dictionary{
		Sources:       Build(m.AlertSources),
		ObjectTypes:   Build(m.ObjectTypes),
		ParentObjects: Build(m.ParentObjects),
		ProblemTypes:  Build(m.ProblemTypes),
		raw:           m,
	}
}

// Options lists the selectable values of the filter builder per dimension,
// in upstream order.
func (d *Dictionary) Options() models.FilterOptions {
	if d == nil {
		return models.FilterOptions{}
	}
	return models.FilterOptions{
		Sources:       toOptions(d.raw.AlertSources),
		ObjectTypes:   toOptions(d.raw.ObjectTypes),
		ParentObjects: toOptions(d.raw.ParentObjects),
		ProblemTypes:  toOptions(d.raw.ProblemTypes),
	}
}

func toOptions[T Named](items []T) []models.Option {
	out := make([]models.Option, 0, len(items))
	for _, item := range items {
		out = append(out, models.Option{Label: item.DisplayName(), Value: item.Key().String()})
	}
	return out
}
