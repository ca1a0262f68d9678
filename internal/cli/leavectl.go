// Package cli holds the leavectl operator commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"leave-expiry/internal/clock"
	"leave-expiry/internal/config"
	"leave-expiry/internal/domain"
	"leave-expiry/internal/expiration"
	"leave-expiry/internal/leavestore"
	"leave-expiry/internal/presenter"
	"leave-expiry/internal/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ClientFactory builds the store client for a base URL.
type ClientFactory func(baseURL string) leavestore.Client

type options struct {
	storeURL string
	owner    string
	role     string
	scope    string
	at       string
	timeout  time.Duration
}

// New returns the leavectl root command. Settings missing from flags fall
// back to cfg.
func New(cfg config.Config, newClient ClientFactory) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "leavectl",
		Short:         "Inspect and reconcile expired leave requests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.storeURL, "store", cfg.LeaveStoreURL, "leave store base URL")
	root.PersistentFlags().StringVar(&opts.owner, "owner", cfg.SessionOwnerID, "owner id whose records are checked")
	root.PersistentFlags().StringVar(&opts.role, "role", cfg.SessionRole, "session role; admin, superadmin and hr see every pending record in summary scope")
	root.PersistentFlags().StringVar(&opts.scope, "scope", string(reconcile.ScopeList), "list or summary")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "overall command timeout")

	root.AddCommand(newClassifyCmd(cfg, newClient, opts))
	root.AddCommand(newReconcileCmd(cfg, newClient, opts))
	return root
}

func (o *options) session(now clock.Clock) reconcile.Session {
	return reconcile.Session{OwnerID: o.owner, Role: o.role, Clock: now}
}

func (o *options) parseScope() (reconcile.Scope, error) {
	switch s := reconcile.Scope(strings.ToLower(o.scope)); s {
	case reconcile.ScopeList, reconcile.ScopeSummary:
		return s, nil
	default:
		return "", fmt.Errorf("unknown scope %q, want list or summary", o.scope)
	}
}

func (o *options) clock() (clock.Clock, error) {
	if o.at == "" {
		return clock.System(), nil
	}
	t, err := time.Parse(time.RFC3339, o.at)
	if err != nil {
		return nil, fmt.Errorf("--at: %w", err)
	}
	return clock.NewFake(t), nil
}

func newClassifyCmd(cfg config.Config, newClient ClientFactory, opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Show the expiration state of each record without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := opts.parseScope()
			if err != nil {
				return err
			}
			clk, err := opts.clock()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			client := newClient(opts.storeURL)
			session := opts.session(clk)

			var recs []domain.LeaveRecord
			if scope == reconcile.ScopeSummary && session.IsAdmin() {
				recs, err = client.FetchPending(ctx)
			} else {
				if opts.owner == "" {
					return reconcile.ErrOwnerRequired
				}
				recs, err = client.FetchByOwner(ctx, opts.owner)
			}
			if err != nil {
				return err
			}

			policy := cfg.Policy(ruleFor(cfg, scope))
			views := presenter.DescribeAll(policy, recs, clk.Now())
			return writeViews(cmd.OutOrStdout(), recs, views)
		},
	}
	cmd.Flags().StringVar(&opts.at, "at", "", "evaluate as of this RFC 3339 instant instead of now")
	return cmd
}

func newReconcileCmd(cfg config.Config, newClient ClientFactory, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one refresh pass and reject every expired pending record",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := opts.parseScope()
			if err != nil {
				return err
			}

			rc := reconcile.Config{
				Name:    "leavectl",
				Session: opts.session(clock.System()),
				Client:  newClient(opts.storeURL),
				Policy:  cfg.Policy(ruleFor(cfg, scope)),
				Logger:  zap.L(),
			}
			var r *reconcile.Reconciler
			if scope == reconcile.ScopeSummary {
				r, err = reconcile.NewSummaryReconciler(rc)
			} else {
				r, err = reconcile.NewListReconciler(rc)
			}
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			res, err := r.Refresh(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"evaluated=%d expired=%d rejected=%d skipped=%d failed=%d\n",
				res.Evaluated, res.Expired, res.Submitted, res.Skipped, res.Failed,
			)
			if err == nil && res.Failed > 0 {
				err = fmt.Errorf("%d rejections failed", res.Failed)
			}
			return err
		},
	}
}

func ruleFor(cfg config.Config, scope reconcile.Scope) expiration.FullDayRule {
	if scope == reconcile.ScopeSummary {
		return cfg.FullDayRuleSummary
	}
	return cfg.FullDayRuleList
}

func writeViews(out io.Writer, recs []domain.LeaveRecord, views []presenter.View) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOWNER\tTYPE\tFROM\tSTATE")
	for i, v := range views {
		rec := recs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			v.ID, rec.OwnerID, rec.LeaveType, rec.FromDate.Format(domain.DateLayout), v.Text)
	}
	return tw.Flush()
}
