package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/platformbuilds/alertdesk/internal/config"
	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/render"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/internal/utils"
	"github.com/platformbuilds/alertdesk/internal/version"
	"github.com/platformbuilds/alertdesk/pkg/cache"
	"github.com/platformbuilds/alertdesk/pkg/logger"
)

type rootOptions struct {
	configPath string
	upstream   string
	token      string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "alertdeskctl",
		Short:        "Work with incidents and notification filters from the terminal",
		Version:      version.Version,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (defaults to the server search path)")
	flags.StringVar(&opts.upstream, "upstream", "", "incident backend base URL")
	flags.StringVar(&opts.token, "token", "", "incident backend API token")
	flags.StringVarP(&opts.output, "output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(newIncidentCmd(opts), newFiltersCmd(opts))
	return root
}

// session is what every subcommand needs: an upstream client and a printer.
type session struct {
	api     *services.IncidentAPIService
	printer *render.Printer
	log     logger.Logger
}

func (o *rootOptions) session(cmd *cobra.Command) (*session, error) {
	format, err := render.ParseFormat(o.output)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFrom(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.upstream != "" {
		if !utils.IsAbsoluteURL(o.upstream) {
			return nil, fmt.Errorf("--upstream must be an absolute http(s) URL, got %q", o.upstream)
		}
		cfg.Upstream.URL = strings.TrimRight(o.upstream, "/")
	}
	if o.token != "" {
		cfg.Upstream.Token = o.token
	}

	log := logger.NewNop()
	metadataCache := cache.NewNoopValkeyCache(cfg.Cache.TTLDuration(), log)

	out := cmd.OutOrStdout()
	profile := termenv.NewOutput(out).EnvColorProfile()

	return &session{
		api:     services.NewIncidentAPIService(cfg.Upstream, metadataCache, cfg.Cache.TTLDuration(), log),
		printer: render.NewPrinter(out, format, profile),
		log:     log,
	}, nil
}

// incident mounts and loads the incident details view, runs op against it and
// prints the resulting snapshot. The snapshot is printed even when op fails so
// the notification reaches the user.
func (s *session) incident(ctx context.Context, pk string, op func(context.Context, *services.IncidentDetailsService) error) error {
	inc, err := s.api.GetIncident(ctx, models.PK(pk))
	if err != nil {
		return fmt.Errorf("get incident %s: %w", pk, err)
	}

	view := services.NewIncidentDetailsService(ctx, utils.GenerateViewID(), s.api, inc, s.log)
	defer view.Close()

	loadErr := view.Load(ctx)
	var opErr error
	if op != nil {
		opErr = op(ctx, view)
	}
	if err := s.printer.Incident(view.Snapshot()); err != nil {
		return err
	}
	return errors.Join(opErr, loadErr)
}

func (s *session) filters(ctx context.Context, op func(context.Context, *services.FilterViewService) error) error {
	view := services.NewFilterViewService(ctx, utils.GenerateViewID(), s.api, s.log)
	defer view.Close()

	if err := view.LoadMetadataAndFilters(ctx); err != nil {
		_ = s.printer.Filters(view.Snapshot())
		return err
	}
	var opErr error
	if op != nil {
		opErr = op(ctx, view)
	}
	if err := s.printer.Filters(view.Snapshot()); err != nil {
		return err
	}
	return opErr
}
