package models

import "time"

// Filter is the stored filter as returned by the upstream. FilterString holds
// a JSON-serialized FilterDefinition.
type Filter struct {
	PK           PK     `json:"pk"`
	Name         string `json:"name"`
	FilterString string `json:"filter_string"`
}

// FilterDefinition selects alerts by raw metadata identifiers.
type FilterDefinition struct {
	SourceIDs       []string `json:"sourceIds"`
	ObjectTypeIDs   []string `json:"objectTypeIds"`
	ParentObjectIDs []string `json:"parentObjectIds"`
	ProblemTypeIDs  []string `json:"problemTypeIds"`
}

// IDName pairs a metadata identifier with its display name.
type IDName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// FilterWithNames is the human-readable form of a stored filter.
type FilterWithNames struct {
	PK            PK       `json:"pk"`
	Name          string   `json:"name"`
	Sources       []IDName `json:"sources"`
	ObjectTypes   []IDName `json:"object_types"`
	ParentObjects []IDName `json:"parent_objects"`
	ProblemTypes  []IDName `json:"problem_types"`
}

type PostFilterBody struct {
	Name         string `json:"name"`
	FilterString string `json:"filter_string"`
}

// Alert is a single row of a filter preview.
type Alert struct {
	PK           PK        `json:"pk"`
	Timestamp    time.Time `json:"timestamp"`
	Source       NamedRef  `json:"source"`
	Object       NamedRef  `json:"object"`
	ParentObject NamedRef  `json:"parent_object"`
	ProblemType  NamedRef  `json:"problem_type"`
	Description  string    `json:"description"`
	DetailsURL   string    `json:"details_url"`
}
