package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/upb/agency-backoffice/app"
	"github.com/upb/agency-backoffice/services/jobs"
)

func jobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Run background jobs",
		Long: `Run background jobs once, or loop them on their configured intervals.

Examples:
  # Rescore every tenant now
  backoffice jobs churn-rescore

  # Rescore a single tenant
  backoffice jobs churn-rescore --org=6f1c2a9e-8d4b-4f7a-9a57-2b1de0c3f4a1

  # Loop all jobs until interrupted
  backoffice jobs run
`,
	}

	churnCmd := &cobra.Command{
		Use:   jobs.ChurnRescore,
		Short: "Recompute churn scores for every active client",
		Args:  cobra.NoArgs,
		RunE:  runChurnRescore,
	}
	churnCmd.Flags().String("org", "", "Only rescore this organization ID")
	cmd.AddCommand(churnCmd)

	for _, name := range []string{jobs.PublishDuePosts, jobs.MarkOverdueInvoices} {
		cmd.AddCommand(&cobra.Command{
			Use:   name,
			Short: "Run " + name + " once",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDependencies(cmd.Context(), func(deps *app.Dependencies) error {
					return newJobRunner(deps).RunOnce(cmd.Context(), name)
				})
			},
		})
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Loop every job on its interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withDependencies(ctx, func(deps *app.Dependencies) error {
				return newJobRunner(deps).Run(ctx)
			})
		},
	})

	return cmd
}

func runChurnRescore(cmd *cobra.Command, args []string) error {
	orgFlag, _ := cmd.Flags().GetString("org")

	var orgID uuid.UUID
	if orgFlag != "" {
		id, err := uuid.Parse(orgFlag)
		if err != nil {
			return invalidFlag("org", err)
		}
		orgID = id
	}

	return withDependencies(cmd.Context(), func(deps *app.Dependencies) error {
		if orgID == uuid.Nil {
			return newJobRunner(deps).RunOnce(cmd.Context(), jobs.ChurnRescore)
		}
		runner := jobs.NewRunner(deps.Metrics, deps.Logger,
			jobs.NewOrgChurnRescore(orgID, deps.Churn, deps.Logger))
		return runner.RunOnce(cmd.Context(), jobs.ChurnRescore)
	})
}
