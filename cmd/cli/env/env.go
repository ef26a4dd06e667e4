package env

import (
	"fmt"

	"github.com/devplane-io/devplane/cmd/cli/config"
	"github.com/devplane-io/devplane/cmd/cli/output"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/spf13/cobra"
)

// InitEnv registers environment provisioning commands on the root command.
func InitEnv(rootCmd *cobra.Command) {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Self-service environment provisioning",
	}

	envCmd.AddCommand(
		createCmd(),
		listCmd(),
		statusCmd(),
		logsCmd(),
		cancelCmd(),
	)

	rootCmd.AddCommand(envCmd)
}

func createCmd() *cobra.Command {
	var name, team, cpu, mem string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Request a new namespace with resource quotas",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{
				"name":      name,
				"team":      team,
				"cpu_limit": cpu,
				"mem_limit": mem,
			}

			var e models.Environment
			if err := config.Do("POST", "/environments", payload, &e); err != nil {
				return err
			}
			fmt.Printf("Provisioning started for %s (id %d). Check progress with 'devplane env status %d'.\n",
				e.Name, e.ID, e.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Namespace name (RFC 1123 label)")
	cmd.Flags().StringVar(&team, "team", "", "Owning team, applied as a namespace label")
	cmd.Flags().StringVar(&cpu, "cpu", "2", "CPU limit, e.g. 500m or 4")
	cmd.Flags().StringVar(&mem, "memory", "4Gi", "Memory limit, e.g. 512Mi or 8Gi")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("team")

	return cmd
}

func listCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			var envs []models.Environment
			if err := config.Do("GET", "/environments", nil, &envs); err != nil {
				return err
			}

			if asJSON {
				output.RenderJSON(envs)
				return nil
			}

			rows := make([][]interface{}, 0, len(envs))
			for _, e := range envs {
				rows = append(rows, []interface{}{e.ID, e.Name, e.Team, e.CPULimit, e.MemLimit, e.Status})
			}
			output.RenderTable([]string{"ID", "Namespace", "Team", "CPU", "Memory", "Status"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Raw JSON output")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [id]",
		Short: "Show provisioning status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var e models.Environment
			if err := config.Do("GET", "/environments/"+args[0], nil, &e); err != nil {
				return err
			}
			fmt.Printf("%s: %s\n", e.Name, e.Status)
			if e.Error != "" {
				fmt.Printf("error: %s\n", e.Error)
			}
			return nil
		},
	}
}

func logsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs [id]",
		Short: "Show the provisioning step log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var e models.Environment
			if err := config.Do("GET", "/environments/"+args[0], nil, &e); err != nil {
				return err
			}
			if e.StepLog == "" {
				fmt.Println("no steps applied yet")
				return nil
			}
			fmt.Print(e.StepLog)
			return nil
		},
	}
}

func cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [id]",
		Short: "Cancel an in-flight provisioning job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Do("POST", "/environments/"+args[0]+"/cancel", nil, nil); err != nil {
				return err
			}
			fmt.Println("Cancel requested. Applied steps are not rolled back.")
			return nil
		},
	}
}
