package models

// View kinds.
const (
	ViewKindIncident = "incident"
	ViewKindFilters  = "filters"
)

type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Notification is the transient message shown after an operation. Seq grows
// with every new notification so clients can tell repeats apart.
type Notification struct {
	Seq      int64    `json:"seq"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// Link is a piece of text that may be a hyperlink.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href,omitempty"`
}

type TagView struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Label string `json:"label"`
	Href  string `json:"href,omitempty"`
}

type IncidentStatus struct {
	Open      bool   `json:"open"`
	Acked     bool   `json:"acked"`
	TicketURL string `json:"ticket_url,omitempty"`
}

type PrimaryDetails struct {
	Description string `json:"description"`
	StartTime   string `json:"start_time"`
	Duration    string `json:"duration,omitempty"`
	Source      string `json:"source"`
	DetailsURL  Link   `json:"details_url"`
}

// TicketEditor is the ticket URL field. Draft and Error only matter while
// Editing.
type TicketEditor struct {
	URL     string `json:"url"`
	Editing bool   `json:"editing"`
	Draft   string `json:"draft"`
	Error   string `json:"error,omitempty"`
}

type AckRow struct {
	PK             PK     `json:"pk"`
	Username       string `json:"username"`
	Timestamp      string `json:"timestamp"`
	Message        string `json:"message"`
	ExpiresMessage string `json:"expires_message,omitempty"`
	Expired        bool   `json:"expired"`
	Placeholder    bool   `json:"placeholder,omitempty"`
}

type EventRow struct {
	PK          PK     `json:"pk"`
	Username    string `json:"username"`
	Timestamp   string `json:"timestamp"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

type IncidentActions struct {
	CanClose  bool `json:"can_close"`
	CanReopen bool `json:"can_reopen"`
}

// IncidentView is one rendered snapshot of the incident details presenter.
type IncidentView struct {
	ViewID        string          `json:"view_id"`
	Kind          string          `json:"kind"`
	Version       int64           `json:"version"`
	IncidentPK    PK              `json:"incident_pk"`
	Status        IncidentStatus  `json:"status"`
	Tags          []TagView       `json:"tags"`
	Details       PrimaryDetails  `json:"details"`
	Ticket        TicketEditor    `json:"ticket"`
	Actions       IncidentActions `json:"actions"`
	AcksLoading   bool            `json:"acks_loading"`
	Acks          []AckRow        `json:"acks"`
	EventsLoading bool            `json:"events_loading"`
	Events        []EventRow      `json:"events"`
	Notification  *Notification   `json:"notification,omitempty"`
}

type Dialog struct {
	Open    bool   `json:"open"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type RowAction struct {
	Name string `json:"name"`
	PK   PK     `json:"pk"`
}

// FilterRow is one row of the filter table. Error is set instead of the
// dimension cells when the stored filter could not be decoded.
type FilterRow struct {
	PK            PK          `json:"pk"`
	Name          string      `json:"name"`
	Sources       string      `json:"sources"`
	ObjectTypes   string      `json:"object_types"`
	ParentObjects string      `json:"parent_objects"`
	ProblemTypes  string      `json:"problem_types"`
	Error         string      `json:"error,omitempty"`
	Actions       []RowAction `json:"actions"`
}

type Preview struct {
	Definition *FilterDefinition `json:"definition"`
	Counter    int64             `json:"counter"`
}

// FilterTableView is one rendered snapshot of the filter view presenter.
type FilterTableView struct {
	ViewID       string        `json:"view_id"`
	Kind         string        `json:"kind"`
	Version      int64         `json:"version"`
	Loading      bool          `json:"loading"`
	LoadError    string        `json:"load_error,omitempty"`
	Columns      []string      `json:"columns"`
	Rows         []FilterRow   `json:"rows"`
	Options      FilterOptions `json:"options"`
	Preview      Preview       `json:"preview"`
	Dialog       Dialog        `json:"dialog"`
	Notification *Notification `json:"notification,omitempty"`
}

// PreviewResult tags fetched alerts with the preview counter they belong to.
type PreviewResult struct {
	Counter int64   `json:"counter"`
	Alerts  []Alert `json:"alerts"`
}
