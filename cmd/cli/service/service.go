package service

import (
	"fmt"
	"time"

	"github.com/devplane-io/devplane/cmd/cli/config"
	"github.com/devplane-io/devplane/cmd/cli/output"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/spf13/cobra"
)

// InitService registers service registry commands on the root command.
func InitService(rootCmd *cobra.Command) {
	serviceCmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the service registry",
	}

	serviceCmd.AddCommand(
		listCmd(),
		createCmd(),
		deployCmd(),
	)

	rootCmd.AddCommand(serviceCmd)
}

func listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered services",
		RunE: func(cmd *cobra.Command, args []string) error {
			var services []models.Service
			if err := config.Do("GET", "/services", nil, &services); err != nil {
				return err
			}

			if asJSON {
				output.RenderJSON(services)
				return nil
			}

			rows := make([][]interface{}, 0, len(services))
			for _, s := range services {
				rows = append(rows, []interface{}{s.ID, s.Name, s.Owner, s.Tier, s.Lifecycle})
			}
			output.RenderTable([]string{"ID", "Name", "Owner", "Tier", "Lifecycle"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Raw JSON output")
	return cmd
}

func createCmd() *cobra.Command {
	var name, owner, repoURL, lifecycle string
	var tier int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"name":      name,
				"owner":     owner,
				"repo_url":  repoURL,
				"tier":      tier,
				"lifecycle": lifecycle,
			}

			var svc models.Service
			if err := config.Do("POST", "/services", payload, &svc); err != nil {
				return err
			}
			fmt.Printf("Created service %d (%s)\n", svc.ID, svc.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Service name")
	cmd.Flags().StringVar(&owner, "owner", "", "Owning team")
	cmd.Flags().StringVar(&repoURL, "repo", "", "Source repository URL")
	cmd.Flags().IntVar(&tier, "tier", 3, "Service tier, 1 (customer facing) to 3 (internal)")
	cmd.Flags().StringVar(&lifecycle, "lifecycle", "", "experimental, production, or deprecated")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("owner")

	return cmd
}

// deployCmd records a finished deployment. CI pipelines call this as their
// last step so lead time can be computed from the commit timestamp.
func deployCmd() *cobra.Command {
	var serviceID int
	var environment, version, commitSHA, status string
	var commitAt, startedAt, finishedAt string

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Record a deployment",
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			parse := func(name, v string, def time.Time) (time.Time, error) {
				if v == "" {
					return def, nil
				}
				t, err := time.Parse(time.RFC3339, v)
				if err != nil {
					return time.Time{}, fmt.Errorf("%s must be RFC 3339: %w", name, err)
				}
				return t, nil
			}

			commit, err := parse("--commit-at", commitAt, now)
			if err != nil {
				return err
			}
			started, err := parse("--started-at", startedAt, now)
			if err != nil {
				return err
			}
			finished, err := parse("--finished-at", finishedAt, now)
			if err != nil {
				return err
			}

			payload := map[string]any{
				"service_id":  serviceID,
				"environment": environment,
				"version":     version,
				"commit_sha":  commitSHA,
				"commit_at":   commit.Format(time.RFC3339),
				"started_at":  started.Format(time.RFC3339),
				"finished_at": finished.Format(time.RFC3339),
				"status":      status,
			}

			var d models.Deployment
			if err := config.Do("POST", "/deployments", payload, &d); err != nil {
				return err
			}
			fmt.Printf("Recorded deployment %d (%s to %s, lead time %s)\n",
				d.ID, d.Version, d.Environment, d.LeadTime().Round(time.Second))
			return nil
		},
	}

	cmd.Flags().IntVar(&serviceID, "service-id", 0, "Service ID")
	cmd.Flags().StringVar(&environment, "environment", "prod", "Target environment")
	cmd.Flags().StringVar(&version, "version", "", "Deployed version")
	cmd.Flags().StringVar(&commitSHA, "commit", "", "Deployed commit SHA")
	cmd.Flags().StringVar(&commitAt, "commit-at", "", "Commit timestamp (RFC 3339, default now)")
	cmd.Flags().StringVar(&startedAt, "started-at", "", "Deploy start (RFC 3339, default now)")
	cmd.Flags().StringVar(&finishedAt, "finished-at", "", "Deploy finish (RFC 3339, default now)")
	cmd.Flags().StringVar(&status, "status", "succeeded", "succeeded, failed, or rolled_back")
	cmd.MarkFlagRequired("service-id")
	cmd.MarkFlagRequired("version")

	return cmd
}
