package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/platformbuilds/alertdesk/internal/services"
)

func newIncidentCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incident",
		Short: "Inspect and act on a single incident",
	}
	cmd.AddCommand(
		newIncidentShowCmd(opts),
		newIncidentCloseCmd(opts),
		newIncidentReopenCmd(opts),
		newIncidentAckCmd(opts),
		newIncidentTicketCmd(opts),
	)
	return cmd
}

func newIncidentShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <pk>",
		Short: "Show incident details, acknowledgements and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			return s.incident(cmd.Context(), args[0], nil)
		},
	}
}

func newIncidentCloseCmd(opts *rootOptions) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "close <pk>",
		Short: "Close an open incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			return s.incident(cmd.Context(), args[0], func(ctx context.Context, v *services.IncidentDetailsService) error {
				return v.ManualClose(ctx, reason)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "why the incident is being closed")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newIncidentReopenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <pk>",
		Short: "Reopen a closed incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			return s.incident(cmd.Context(), args[0], func(ctx context.Context, v *services.IncidentDetailsService) error {
				return v.ManualOpen(ctx)
			})
		},
	}
}

func newIncidentAckCmd(opts *rootOptions) *cobra.Command {
	var (
		message string
		expires string
	)
	cmd := &cobra.Command{
		Use:   "ack <pk>",
		Short: "Acknowledge an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expiration, err := parseExpiration(expires)
			if err != nil {
				return err
			}
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			return s.incident(cmd.Context(), args[0], func(ctx context.Context, v *services.IncidentDetailsService) error {
				return v.SubmitAcknowledgement(ctx, message, expiration)
			})
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "acknowledgement message")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry as 2006-01-02 (local time) or RFC 3339")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

// parseExpiration accepts a local calendar date or a full RFC 3339 timestamp.
// An empty value means the acknowledgement never expires.
func parseExpiration(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid --expires %q: want 2006-01-02 or RFC 3339", s)
	}
	return &t, nil
}

func newIncidentTicketCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ticket <pk> [url]",
		Short: "Set the ticket URL of an incident; omit the URL to clear it",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.session(cmd)
			if err != nil {
				return err
			}
			var url string
			if len(args) == 2 {
				url = args[1]
			}
			return s.incident(cmd.Context(), args[0], func(ctx context.Context, v *services.IncidentDetailsService) error {
				if err := v.BeginTicketEdit(); err != nil {
					return err
				}
				if err := v.SetTicketDraft(url); err != nil {
					return err
				}
				return v.SaveTicket(ctx)
			})
		},
	}
}
