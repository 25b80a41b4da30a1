// Package filters converts alert filters between their stored form (raw ids
// in a JSON string) and their display form (id and name pairs).
package filters

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/platformbuilds/alertdesk/internal/metadata"
	"github.com/platformbuilds/alertdesk/internal/models"
)

// Dimension names, as used in the stored JSON and in LookupError.
const (
	DimSources       = "sourceIds"
	DimObjectTypes   = "objectTypeIds"
	DimParentObjects = "parentObjectIds"
	DimProblemTypes  = "problemTypeIds"
)

var dimensions = []string{DimSources, DimObjectTypes, DimParentObjects, DimProblemTypes}

// Dims is the name-resolved content of a filter definition.
type Dims struct {
	Sources       []models.IDName
	ObjectTypes   []models.IDName
	ParentObjects []models.IDName
	ProblemTypes  []models.IDName
}

// Encode strips the names and keeps the ids in their original order.
func Encode(f models.FilterWithNames) models.FilterDefinition {
	return models.FilterDefinition{
		SourceIDs:       ids(f.Sources),
		ObjectTypeIDs:   ids(f.ObjectTypes),
		ParentObjectIDs: ids(f.ParentObjects),
		ProblemTypeIDs:  ids(f.ProblemTypes),
	}
}

func ids(pairs []models.IDName) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.ID
	}
	return out
}

// Decode resolves every id against dict. The first id missing from its
// lookup fails the whole decode with a *models.LookupError.
func Decode(def models.FilterDefinition, dict *metadata.Dictionary) (Dims, error) {
	if dict == nil {
		dict = metadata.FromAlertMetadata(models.AlertMetadata{})
	}
	var (
		d   Dims
		err error
	)
	if d.Sources, err = resolve(DimSources, def.SourceIDs, dict.Sources); err != nil {
		return Dims{}, err
	}
	if d.ObjectTypes, err = resolve(DimObjectTypes, def.ObjectTypeIDs, dict.ObjectTypes); err != nil {
		return Dims{}, err
	}
	if d.ParentObjects, err = resolve(DimParentObjects, def.ParentObjectIDs, dict.ParentObjects); err != nil {
		return Dims{}, err
	}
	if d.ProblemTypes, err = resolve(DimProblemTypes, def.ProblemTypeIDs, dict.ProblemTypes); err != nil {
		return Dims{}, err
	}
	return d, nil
}

func resolve[T metadata.Named](dimension string, in []string, lookup map[models.PK]T) ([]models.IDName, error) {
	out := make([]models.IDName, 0, len(in))
	for _, id := range in {
		entity, ok := lookup[models.PK(id)]
		if !ok {
			return nil, &models.LookupError{Dimension: dimension, ID: id}
		}
		out = append(out, models.IDName{ID: id, Name: entity.DisplayName()})
	}
	return out, nil
}

// Serialize produces the stored filter string. Nil dimensions are written as
// empty arrays.
func Serialize(def models.FilterDefinition) (string, error) {
	b, err := json.Marshal(models.FilterDefinition{
		SourceIDs:       orEmpty(def.SourceIDs),
		ObjectTypeIDs:   orEmpty(def.ObjectTypeIDs),
		ParentObjectIDs: orEmpty(def.ParentObjectIDs),
		ProblemTypeIDs:  orEmpty(def.ProblemTypeIDs),
	})
	if err != nil {
		return "", fmt.Errorf("serialize filter definition: %w", err)
	}
	return string(b), nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var errMissingDimension = errors.New("missing dimension")

// Parse reads a stored filter string. Malformed JSON and missing dimensions
// fail with a *models.DeserializationError; a null dimension reads as empty.
func Parse(s string) (models.FilterDefinition, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return models.FilterDefinition{}, &models.DeserializationError{Input: s, Err: err}
	}
	if raw == nil {
		return models.FilterDefinition{}, &models.DeserializationError{Input: s, Err: errors.New("not an object")}
	}
	parsed := make(map[string][]string, len(dimensions))
	for _, dim := range dimensions {
		msg, ok := raw[dim]
		if !ok {
			return models.FilterDefinition{}, &models.DeserializationError{Input: s, Err: fmt.Errorf("%w %s", errMissingDimension, dim)}
		}
		var vals []string
		if err := json.Unmarshal(msg, &vals); err != nil {
			return models.FilterDefinition{}, &models.DeserializationError{Input: s, Err: fmt.Errorf("%s: %w", dim, err)}
		}
		parsed[dim] = orEmpty(vals)
	}
	return models.FilterDefinition{
		SourceIDs:       parsed[DimSources],
		ObjectTypeIDs:   parsed[DimObjectTypes],
		ParentObjectIDs: parsed[DimParentObjects],
		ProblemTypeIDs:  parsed[DimProblemTypes],
	}, nil
}

// FromFilter parses and decodes a stored filter.
func FromFilter(f models.Filter, dict *metadata.Dictionary) (models.FilterWithNames, error) {
	def, err := Parse(f.FilterString)
	if err != nil {
		return models.FilterWithNames{}, err
	}
	d, err := Decode(def, dict)
	if err != nil {
		return models.FilterWithNames{}, err
	}
	return WithNames(f.PK, f.Name, d), nil
}

func WithNames(pk models.PK, name string, d Dims) models.FilterWithNames {
	return models.FilterWithNames{
		PK:            pk,
		Name:          name,
		Sources:       d.Sources,
		ObjectTypes:   d.ObjectTypes,
		ParentObjects: d.ParentObjects,
		ProblemTypes:  d.ProblemTypes,
	}
}
