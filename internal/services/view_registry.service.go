package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/monitoring"
	"github.com/platformbuilds/alertdesk/internal/utils"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

var (
	ErrViewNotFound  = errors.New("view not found")
	ErrWrongViewKind = errors.New("wrong view kind")
	ErrTooManyViews  = errors.New("too many mounted views")
)

// View is a mounted presenter.
type View interface {
	ID() string
	Kind() string
	Render() any
	Subscribe() (<-chan any, func())
	Subscribers() int
	Close()
}

type mountedView struct {
	view     View
	lastSeen time.Time
}

// ViewRegistry owns every mounted presenter. Presenters live until they are
// unmounted, idle out or the registry shuts down.
type ViewRegistry struct {
	api         IncidentAPI
	logger      logger.Logger
	maxMounted  int
	idleTimeout time.Duration
	now         func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	views map[string]*mountedView
}

func NewViewRegistry(api IncidentAPI, maxMounted int, idleTimeout time.Duration, logger logger.Logger) *ViewRegistry {
	ctx, cancel := context.WithCancel(context.Background())
	return &ViewRegistry{
		api:         api,
		logger:      logger,
		maxMounted:  maxMounted,
		idleTimeout: idleTimeout,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		views:       make(map[string]*mountedView),
	}
}

// MountIncident fetches the incident and mounts a details view for it. The
// ack and event lists load in the background.
func (r *ViewRegistry) MountIncident(ctx context.Context, pk models.PK) (*IncidentDetailsService, error) {
	if err := r.checkCapacity(); err != nil {
		return nil, err
	}
	incident, err := r.api.GetIncident(ctx, pk)
	if err != nil {
		monitoring.RecordViewOperation(models.ViewKindIncident, "mount", models.ErrorKind(err))
		return nil, err
	}

	view := NewIncidentDetailsService(r.ctx, utils.GenerateViewID(), r.api, incident, r.logger)
	if err := r.add(view); err != nil {
		view.Close()
		return nil, err
	}
	go func() {
		_ = view.Load(context.Background())
	}()
	monitoring.RecordViewOperation(models.ViewKindIncident, "mount", "success")
	return view, nil
}

// MountFilters mounts a filter view. Metadata and filters load in the
// background.
func (r *ViewRegistry) MountFilters(ctx context.Context) (*FilterViewService, error) {
	if err := r.checkCapacity(); err != nil {
		return nil, err
	}
	view := NewFilterViewService(r.ctx, utils.GenerateViewID(), r.api, r.logger)
	if err := r.add(view); err != nil {
		view.Close()
		return nil, err
	}
	go func() {
		_ = view.LoadMetadataAndFilters(context.Background())
	}()
	monitoring.RecordViewOperation(models.ViewKindFilters, "mount", "success")
	return view, nil
}

func (r *ViewRegistry) checkCapacity() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxMounted > 0 && len(r.views) >= r.maxMounted {
		return fmt.Errorf("%w: limit is %d", ErrTooManyViews, r.maxMounted)
	}
	return nil
}

func (r *ViewRegistry) add(v View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx.Err() != nil {
		return ErrViewClosed
	}
	if r.maxMounted > 0 && len(r.views) >= r.maxMounted {
		return fmt.Errorf("%w: limit is %d", ErrTooManyViews, r.maxMounted)
	}
	r.views[v.ID()] = &mountedView{view: v, lastSeen: r.now()}
	monitoring.ViewMounted(v.Kind())
	r.logger.Info("View mounted", "view_id", v.ID(), "kind", v.Kind())
	return nil
}

// Get returns a mounted view and marks it as used.
func (r *ViewRegistry) Get(id string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.views[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	m.lastSeen = r.now()
	return m.view, nil
}

func (r *ViewRegistry) Incident(id string) (*IncidentDetailsService, error) {
	return lookup[*IncidentDetailsService](r, id)
}

func (r *ViewRegistry) Filters(id string) (*FilterViewService, error) {
	return lookup[*FilterViewService](r, id)
}

func lookup[T View](r *ViewRegistry, id string) (T, error) {
	var zero T
	v, err := r.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: view %s is a %s view", ErrWrongViewKind, id, v.Kind())
	}
	return typed, nil
}

// Unmount closes the view and forgets it.
func (r *ViewRegistry) Unmount(id string) error {
	r.mu.Lock()
	m, ok := r.views[id]
	if ok {
		delete(r.views, id)
	}
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrViewNotFound, id)
	}
	r.closeView(m.view, "unmounted")
	return nil
}

func (r *ViewRegistry) closeView(v View, reason string) {
	v.Close()
	monitoring.ViewUnmounted(v.Kind())
	r.logger.Info("View closed", "view_id", v.ID(), "kind", v.Kind(), "reason", reason)
}

func (r *ViewRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

// StartJanitor unmounts views that nobody streamed or touched for longer
// than the idle timeout. It returns when ctx is done.
func (r *ViewRegistry) StartJanitor(ctx context.Context, interval time.Duration) {
	if r.idleTimeout <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *ViewRegistry) evictIdle() int {
	cutoff := r.now().Add(-r.idleTimeout)
	var idle []View

	r.mu.Lock()
	for id, m := range r.views {
		if m.view.Subscribers() > 0 {
			m.lastSeen = r.now()
			continue
		}
		if m.lastSeen.Before(cutoff) {
			idle = append(idle, m.view)
			delete(r.views, id)
		}
	}
	r.mu.Unlock()

	for _, v := range idle {
		r.closeView(v, "idle")
	}
	return len(idle)
}

// CloseAll unmounts everything and refuses further mounts.
func (r *ViewRegistry) CloseAll() {
	r.mu.Lock()
	r.cancel()
	views := make([]View, 0, len(r.views))
	for id, m := range r.views {
		views = append(views, m.view)
		delete(r.views, id)
	}
	r.mu.Unlock()

	for _, v := range views {
		r.closeView(v, "shutdown")
	}
}
