package incident

import (
	"fmt"
	"net/url"

	"github.com/devplane-io/devplane/cmd/cli/config"
	"github.com/devplane-io/devplane/cmd/cli/output"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/spf13/cobra"
)

// InitIncident registers incident lifecycle commands on the root command.
func InitIncident(rootCmd *cobra.Command) {
	incidentCmd := &cobra.Command{
		Use:   "incident",
		Short: "Open, update, and review incidents",
	}

	incidentCmd.AddCommand(
		openCmd(),
		updateCmd(),
		resolveCmd(),
		listCmd(),
		postmortemCmd(),
	)

	rootCmd.AddCommand(incidentCmd)
}

func openCmd() *cobra.Command {
	var serviceID int
	var title, severity, summary string

	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new incident",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"service_id": serviceID,
				"title":      title,
				"severity":   severity,
				"summary":    summary,
			}

			var in models.Incident
			if err := config.Do("POST", "/incidents", payload, &in); err != nil {
				return err
			}
			fmt.Printf("Opened INC-%d (%s, %s)\n", in.ID, in.Title, in.Severity)
			return nil
		},
	}

	cmd.Flags().IntVar(&serviceID, "service-id", 0, "Affected service ID")
	cmd.Flags().StringVar(&title, "title", "", "Short incident title")
	cmd.Flags().StringVar(&severity, "severity", "sev3", "sev1 (worst) to sev4")
	cmd.Flags().StringVar(&summary, "summary", "", "What is happening")
	cmd.MarkFlagRequired("service-id")
	cmd.MarkFlagRequired("title")

	return cmd
}

func updateCmd() *cobra.Command {
	var status, message string

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Append a timeline update and advance the status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{
				"status":  status,
				"message": message,
			}

			var in models.Incident
			if err := config.Do("POST", "/incidents/"+args[0]+"/updates", payload, &in); err != nil {
				return err
			}
			fmt.Printf("INC-%d is now %s\n", in.ID, in.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "open, acknowledged, mitigated, or resolved")
	cmd.Flags().StringVar(&message, "message", "", "What changed")
	cmd.MarkFlagRequired("status")
	cmd.MarkFlagRequired("message")

	return cmd
}

func resolveCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "resolve [id]",
		Short: "Resolve an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{
				"status":  "resolved",
				"message": message,
			}

			var in models.Incident
			if err := config.Do("POST", "/incidents/"+args[0]+"/updates", payload, &in); err != nil {
				return err
			}
			fmt.Printf("INC-%d resolved\n", in.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "What fixed it")
	cmd.MarkFlagRequired("message")

	return cmd
}

func listCmd() *cobra.Command {
	var status, severity string
	var serviceID int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			if status != "" {
				params.Set("status", status)
			}
			if severity != "" {
				params.Set("severity", severity)
			}
			if serviceID > 0 {
				params.Set("service_id", fmt.Sprint(serviceID))
			}
			path := "/incidents"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var incidents []models.Incident
			if err := config.Do("GET", path, nil, &incidents); err != nil {
				return err
			}

			if asJSON {
				output.RenderJSON(incidents)
				return nil
			}

			rows := make([][]interface{}, 0, len(incidents))
			for _, in := range incidents {
				rows = append(rows, []interface{}{
					in.ID, in.Severity, in.Status, in.Title,
					in.DetectedAt.Format("2006-01-02 15:04"),
				})
			}
			output.RenderTable([]string{"ID", "Sev", "Status", "Title", "Detected"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&severity, "severity", "", "Filter by severity")
	cmd.Flags().IntVar(&serviceID, "service-id", 0, "Filter by service")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Raw JSON output")

	return cmd
}

func postmortemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "postmortem [id]",
		Short: "Print the markdown postmortem for a resolved incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Raw("GET", "/incidents/"+args[0]+"/postmortem")
			if err != nil {
				return err
			}
			fmt.Print(string(doc))
			return nil
		},
	}
}
