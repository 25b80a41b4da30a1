package services

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/platformbuilds/alertdesk/internal/filters"
	"github.com/platformbuilds/alertdesk/internal/metadata"
	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/tracing"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

// ErrUnknownFilter is returned for a filter pk the view does not hold.
var ErrUnknownFilter = errors.New("unknown filter")

// FilterTableColumns are the headers of the filter table, in order.
var FilterTableColumns = []string{"Filter name", "Sources", "Object Types", "Parent objects", "Problem Types", "Actions"}

const (
	ActionDelete  = "delete"
	ActionPreview = "preview"
)

type filterEntry struct {
	raw   models.Filter
	named models.FilterWithNames
	err   error
}

// FilterViewService presents the saved alert filters with their metadata
// names resolved, plus the builder options and the alert preview.
type FilterViewService struct {
	viewBase

	api    IncidentAPI
	logger logger.Logger
	tracer tracing.UpstreamTracer

	mu           sync.Mutex
	dict         *metadata.Dictionary
	filters      map[models.PK]filterEntry
	loading      bool
	loadError    string
	preview      models.Preview
	dialog       models.Dialog
	notification *models.Notification
}

func NewFilterViewService(parent context.Context, id string, api IncidentAPI, logger logger.Logger) *FilterViewService {
	return &FilterViewService{
		viewBase: newViewBase(parent, id, models.ViewKindFilters),
		api:      api,
		logger:   logger.With("view_id", id),
		filters:  make(map[models.PK]filterEntry),
		loading:  true,
	}
}

// LoadMetadataAndFilters fetches the metadata, then the filters, and decodes
// every filter against the fresh dictionary. Loading ends only once both
// calls are done.
func (s *FilterViewService) LoadMetadataAndFilters(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	ctx, span := s.tracer.StartViewSpan(ctx, s.kind, "load")
	defer span.End()

	if err := s.apply(func() { s.loading = true }, nil); err != nil {
		s.record("load", err)
		return err
	}

	err := s.load(ctx)
	if err != nil {
		tracing.RecordError(span, err)
		err = s.apply(func() {
			s.loading = false
			s.loadError = err.Error()
			s.notifyError(fmt.Sprintf("Failed to load filters - %v", err))
		}, err)
		s.logger.Error("Failed to load filters", "error", err)
	}
	s.record("load", err)
	return err
}

func (s *FilterViewService) load(ctx context.Context) error {
	meta, err := s.api.GetAllAlertsMetadata(ctx)
	if err != nil {
		return err
	}
	dict := metadata.FromAlertMetadata(meta)

	stored, err := s.api.GetAllFilters(ctx)
	if err != nil {
		return err
	}

	entries := make(map[models.PK]filterEntry, len(stored))
	for _, f := range stored {
		entries[f.PK] = decodeEntry(f, dict)
		if e := entries[f.PK]; e.err != nil {
			s.logger.Warn("Stored filter could not be decoded", "filter", f.PK.String(), "error", e.err)
		}
	}

	return s.apply(func() {
		s.dict = dict
		s.filters = entries
		s.loading = false
		s.loadError = ""
	}, nil)
}

func decodeEntry(f models.Filter, dict *metadata.Dictionary) filterEntry {
	named, err := filters.FromFilter(f, dict)
	if err != nil {
		named = models.FilterWithNames{PK: f.PK, Name: f.Name}
	}
	return filterEntry{raw: f, named: named, err: err}
}

// CreateFilter saves a new filter under name. It needs loaded metadata to
// decode the new row, so it is rejected while the view is loading or after a
// failed load.
func (s *FilterViewService) CreateFilter(ctx context.Context, name string, def models.FilterDefinition) error {
	if strings.TrimSpace(name) == "" {
		err := &models.ValidationError{Field: "name", Message: "a filter name is required"}
		s.record("create_filter", err)
		return err
	}
	s.mu.Lock()
	ready := !s.loading && s.dict != nil
	s.mu.Unlock()
	if !ready {
		err := &models.ValidationError{Field: "filters", Message: "filters are not loaded yet"}
		s.record("create_filter", err)
		return err
	}
	filterString, err := filters.Serialize(def)
	if err != nil {
		s.record("create_filter", err)
		return err
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	created, err := s.api.PostFilter(ctx, name, filterString)
	err = s.apply(func() {
		if err != nil {
			s.dialog = models.Dialog{Open: true, Message: fmt.Sprintf("Unable to create filter: %s. Try using a different name", name)}
			return
		}
		s.filters[created.PK] = decodeEntry(created, s.dict)
		s.dialog = models.Dialog{Open: true, Message: "Successfully saved filter", Success: true}
	}, err)
	if err != nil {
		s.logger.Error("Failed to create filter", "name", name, "error", err)
	} else {
		s.logger.Info("Filter created", "name", name, "filter", created.PK.String())
	}
	s.record("create_filter", err)
	return err
}

// DeleteFilter removes a filter. Unknown keys fail without an upstream call
// and leave the table as it is.
func (s *FilterViewService) DeleteFilter(ctx context.Context, pk models.PK) error {
	s.mu.Lock()
	entry, ok := s.filters[pk]
	if !ok {
		s.dialog = models.Dialog{Open: true, Message: fmt.Sprintf("Unable to delete filter: %s!", pk)}
		s.publishLocked()
		s.mu.Unlock()
		err := fmt.Errorf("%w: %s", ErrUnknownFilter, pk)
		s.record("delete_filter", err)
		return err
	}
	s.mu.Unlock()
	name := entry.raw.Name

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	err := s.api.DeleteFilter(ctx, pk)
	err = s.apply(func() {
		if err != nil {
			s.dialog = models.Dialog{Open: true, Message: fmt.Sprintf("Unable to delete filter: %s!", name)}
			return
		}
		delete(s.filters, pk)
		s.dialog = models.Dialog{Open: true, Message: "Successfully deleted filter", Success: true}
	}, err)
	if err != nil {
		s.logger.Error("Failed to delete filter", "filter", pk.String(), "error", err)
	}
	s.record("delete_filter", err)
	return err
}

// PreviewFilter previews a stored filter by its raw ids.
func (s *FilterViewService) PreviewFilter(pk models.PK) error {
	s.mu.Lock()
	entry, ok := s.filters[pk]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFilter, pk)
	}
	def, err := filters.Parse(entry.raw.FilterString)
	if err != nil {
		return err
	}
	return s.PreviewDefinition(&def)
}

// PreviewDefinition sets the previewed definition. The counter moves on
// every call so an identical definition still refreshes.
func (s *FilterViewService) PreviewDefinition(def *models.FilterDefinition) error {
	return s.apply(func() {
		if def == nil {
			s.preview.Definition = nil
		} else {
			d := *def
			s.preview.Definition = &d
		}
		s.preview.Counter++
	}, nil)
}

func (s *FilterViewService) ClearPreview() error {
	return s.PreviewDefinition(nil)
}

// FetchPreview loads the alerts matching the current preview. Without a
// definition the result is empty and no call is made.
func (s *FilterViewService) FetchPreview(ctx context.Context) (models.PreviewResult, error) {
	s.mu.Lock()
	counter := s.preview.Counter
	var def *models.FilterDefinition
	if s.preview.Definition != nil {
		d := *s.preview.Definition
		def = &d
	}
	s.mu.Unlock()

	result := models.PreviewResult{Counter: counter, Alerts: []models.Alert{}}
	if def == nil {
		return result, nil
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()
	alerts, err := s.api.PostFilterPreview(ctx, *def)
	s.record("fetch_preview", err)
	if err != nil {
		s.logger.Warn("Filter preview failed", "error", err)
		return result, err
	}
	if alerts != nil {
		result.Alerts = alerts
	}
	return result, nil
}

func (s *FilterViewService) CloseDialog() error {
	return s.apply(func() {
		s.dialog = models.Dialog{}
	}, nil)
}

func (s *FilterViewService) Snapshot() models.FilterTableView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *FilterViewService) Render() any { return s.Snapshot() }

func (s *FilterViewService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.hub.close()
}

func (s *FilterViewService) apply(patch func(), opErr error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrViewClosed
	}
	patch()
	s.publishLocked()
	return opErr
}

func (s *FilterViewService) publishLocked() {
	s.version++
	s.hub.publish(s.snapshotLocked())
}

func (s *FilterViewService) notifyError(msg string) {
	s.notification = s.newNotification(msg, models.SeverityError)
}

func (s *FilterViewService) sortedLocked() []filterEntry {
	entries := make([]filterEntry, 0, len(s.filters))
	for _, e := range s.filters {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b filterEntry) int {
		return cmp.Or(
			cmp.Compare(a.raw.Name, b.raw.Name),
			cmp.Compare(a.raw.PK, b.raw.PK),
		)
	})
	return entries
}

func (s *FilterViewService) snapshotLocked() models.FilterTableView {
	v := models.FilterTableView{
		ViewID:       s.id,
		Kind:         s.kind,
		Version:      s.version,
		Loading:      s.loading,
		LoadError:    s.loadError,
		Columns:      FilterTableColumns,
		Rows:         []models.FilterRow{},
		Options:      s.dict.Options(),
		Preview:      s.preview,
		Dialog:       s.dialog,
		Notification: s.notification,
	}
	if s.preview.Definition != nil {
		d := *s.preview.Definition
		v.Preview.Definition = &d
	}
	for _, e := range s.sortedLocked() {
		v.Rows = append(v.Rows, filterRow(e))
	}
	return v
}

func filterRow(e filterEntry) models.FilterRow {
	row := models.FilterRow{
		PK:   e.raw.PK,
		Name: e.raw.Name,
		Actions: []models.RowAction{
			{Name: ActionDelete, PK: e.raw.PK},
			{Name: ActionPreview, PK: e.raw.PK},
		},
	}
	if e.err != nil {
		row.Error = e.err.Error()
		return row
	}
	row.Sources = joinNames(e.named.Sources)
	row.ObjectTypes = joinNames(e.named.ObjectTypes)
	row.ParentObjects = joinNames(e.named.ParentObjects)
	row.ProblemTypes = joinNames(e.named.ProblemTypes)
	return row
}

func joinNames(pairs []models.IDName) string {
	names := make([]string, len(pairs))
	for i, p := range pairs {
		names[i] = p.Name
	}
	return strings.Join(names, ", ")
}
