package models

// AlertSource, ObjectType, ParentObject and ProblemType are the four metadata
// dimensions a filter selects on. Each exposes its primary key through Key so
// the dictionary builder can index them uniformly.
type AlertSource struct {
	PK   PK     `json:"pk"`
	Name string `json:"name"`
}

func (s AlertSource) Key() PK { return s.PK }
func (s AlertSource) DisplayName() string { return s.Name }

type ObjectType struct {
	PK   PK     `json:"pk"`
	Name string `json:"name"`
}

func (o ObjectType) Key() PK { return o.PK }
func (o ObjectType) DisplayName() string { return o.Name }

type ParentObject struct {
	PK       PK     `json:"pk"`
	Name     string `json:"name"`
	ObjectID string `json:"object_id"`
	URL      string `json:"url"`
}

func (p ParentObject) Key() PK { return p.PK }
func (p ParentObject) DisplayName() string { return p.Name }

type ProblemType struct {
	PK          PK     `json:"pk"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p ProblemType) Key() PK { return p.PK }
func (p ProblemType) DisplayName() string { return p.Name }

// AlertMetadata is the bulk metadata response.
type AlertMetadata struct {
	AlertSources  []AlertSource  `json:"alertSources"`
	ObjectTypes   []ObjectType   `json:"objectTypes"`
	ParentObjects []ParentObject `json:"parentObjects"`
	ProblemTypes  []ProblemType  `json:"problemTypes"`
}

// Option is a selectable value in the filter builder.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FilterOptions are the builder's selectable values, one list per dimension.
type FilterOptions struct {
	Sources       []Option `json:"sources"`
	ObjectTypes   []Option `json:"object_types"`
	ParentObjects []Option `json:"parent_objects"`
	ProblemTypes  []Option `json:"problem_types"`
}
