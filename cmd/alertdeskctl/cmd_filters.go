package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/platformbuilds/alertdesk/internal/models"
	"github.com/platformbuilds/alertdesk/internal/services"
	"github.com/platformbuilds/alertdesk/internal/utils"
)

func newFiltersCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filters",
		Aliases: []string{"filter"},
		Short:   "Manage notification filters",
	}
	cmd.AddCommand(
		newFiltersListCmd(opts),
		newFiltersCreateCmd(opts),
		newFiltersDeleteCmd(opts),
		newFiltersPreviewCmd(opts),
	)
	return cmd
}

func newFiltersListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored filters with readable names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			return s.filters(cmd.Context(), nil)
		},
	}
}

func newFiltersCreateCmd(opts *rootOptions) *cobra.Command {
	var (
		name string
		def  models.FilterDefinition
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a filter from metadata identifiers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			return s.filters(cmd.Context(), func(ctx context.Context, v *services.FilterViewService) error {
				return v.CreateFilter(ctx, name, def)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "filter name")
	f.StringSliceVar(&def.SourceIDs, "source", nil, "alert source id (repeatable)")
	f.StringSliceVar(&def.ObjectTypeIDs, "object-type", nil, "object type id (repeatable)")
	f.StringSliceVar(&def.ParentObjectIDs, "parent-object", nil, "parent object id (repeatable)")
	f.StringSliceVar(&def.ProblemTypeIDs, "problem-type", nil, "problem type id (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newFiltersDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <pk>",
		Short: "Delete a stored filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			return s.filters(cmd.Context(), func(ctx context.Context, v *services.FilterViewService) error {
				return v.DeleteFilter(ctx, models.PK(args[0]))
			})
		},
	}
}

func newFiltersPreviewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <pk>",
		Short: "List the alerts a stored filter currently matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			view := services.NewFilterViewService(cmd.Context(), utils.GenerateViewID(), s.api, s.log)
			defer view.Close()

			ctx := cmd.Context()
			if err := view.LoadMetadataAndFilters(ctx); err != nil {
				return err
			}
			if err := view.PreviewFilter(models.PK(args[0])); err != nil {
				return err
			}
			res, err := view.FetchPreview(ctx)
			if err != nil {
				return err
			}
			return s.printer.Alerts(res)
		},
	}
}
