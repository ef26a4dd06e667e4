package report

import (
	"fmt"
	"net/url"
	"time"

	"github.com/devplane-io/devplane/cmd/cli/config"
	"github.com/devplane-io/devplane/cmd/cli/output"
	"github.com/devplane-io/devplane/internal/dora"
	"github.com/devplane-io/devplane/internal/oncall"
	"github.com/spf13/cobra"
)

// InitReport registers delivery metrics and on-call commands on the root
// command.
func InitReport(rootCmd *cobra.Command) {
	rootCmd.AddCommand(doraCmd(), oncallCmd())
}

func doraCmd() *cobra.Command {
	var serviceID, days int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dora",
		Short: "Show delivery metrics for a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("service_id", fmt.Sprint(serviceID))
			params.Set("days", fmt.Sprint(days))

			var m dora.Metrics
			if err := config.Do("GET", "/dora?"+params.Encode(), nil, &m); err != nil {
				return err
			}

			if asJSON {
				output.RenderJSON(m)
				return nil
			}

			fmt.Printf("Delivery metrics, service %d, last %d days\n\n", serviceID, days)
			output.RenderTable(
				[]string{"Metric", "Value", "Band"},
				[][]interface{}{
					{"Deployments", m.Deployments, ""},
					{"Deploys/day", fmt.Sprintf("%.2f", m.DeploysPerDay), m.DeployFreqBand},
					{"Lead time (mean)", time.Duration(m.LeadTimeMeanSecs * float64(time.Second)).Round(time.Minute), m.LeadTimeBand},
					{"Lead time (median)", time.Duration(m.LeadTimeMedianSecs * float64(time.Second)).Round(time.Minute), ""},
					{"Change failure rate", fmt.Sprintf("%.0f%%", m.ChangeFailureRate*100), m.FailureRateBand},
					{"MTTR", time.Duration(m.MTTRSecs * float64(time.Second)).Round(time.Minute), m.MTTRBand},
				})
			return nil
		},
	}

	cmd.Flags().IntVar(&serviceID, "service-id", 0, "Service ID")
	cmd.Flags().IntVar(&days, "days", 30, "Window in days")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Raw JSON output")
	cmd.MarkFlagRequired("service-id")

	return cmd
}

func oncallCmd() *cobra.Command {
	var service, at string

	cmd := &cobra.Command{
		Use:   "oncall",
		Short: "Show who is on call for a service",
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("service", service)
			if at != "" {
				params.Set("at", at)
			}

			var shift oncall.Shift
			if err := config.Do("GET", "/oncall?"+params.Encode(), nil, &shift); err != nil {
				return err
			}
			fmt.Printf("%s is on call for %s until %s (next: %s)\n",
				shift.OnCall, service, shift.ShiftEnds.Format(time.RFC1123), shift.Next)
			return nil
		},
	}

	cmd.Flags().StringVar(&service, "service", "", "Service name from the on-call policy")
	cmd.Flags().StringVar(&at, "at", "", "Resolve for this time (RFC 3339, default now)")
	cmd.MarkFlagRequired("service")

	return cmd
}
