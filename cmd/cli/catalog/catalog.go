package catalog

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/devplane-io/devplane/cmd/cli/config"
	"github.com/devplane-io/devplane/cmd/cli/output"
	"github.com/devplane-io/devplane/internal/models"
	"github.com/spf13/cobra"
)

// InitCatalog registers data catalog commands on the root command.
func InitCatalog(rootCmd *cobra.Command) {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the data catalog",
	}

	catalogCmd.AddCommand(
		listCmd(),
		searchCmd(),
		registerCmd(),
		heartbeatCmd(),
		deleteCmd(),
	)

	rootCmd.AddCommand(catalogCmd)
}

func listCmd() *cobra.Command {
	var stale, asJSON bool
	var query string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/assets"
			params := url.Values{}
			if stale {
				params.Set("stale", "true")
			}
			if query != "" {
				params.Set("q", query)
			}
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var assets []models.Asset
			if err := config.Do("GET", path, nil, &assets); err != nil {
				return err
			}

			renderAssets(assets, asJSON)
			return nil
		},
	}

	cmd.Flags().BoolVar(&stale, "stale", false, "Only assets past their freshness SLA")
	cmd.Flags().StringVar(&query, "q", "", "Search name, description, and tags")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Raw JSON output")

	return cmd
}

func searchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search assets by name, description, or tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := url.Values{}
			params.Set("q", args[0])

			var assets []models.Asset
			if err := config.Do("GET", "/assets?"+params.Encode(), nil, &assets); err != nil {
				return err
			}

			renderAssets(assets, asJSON)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Raw JSON output")

	return cmd
}

func renderAssets(assets []models.Asset, asJSON bool) {
	if asJSON {
		output.RenderJSON(assets)
		return
	}

	rows := make([][]interface{}, 0, len(assets))
	for _, a := range assets {
		validated := "never"
		if a.LastValidated != nil {
			validated = a.LastValidated.Format("2006-01-02 15:04")
		}
		rows = append(rows, []interface{}{
			a.ID, a.Name, a.Type, a.Owner, strings.Join(a.Tags, ","),
			a.FreshnessSLAHours, validated,
		})
	}
	output.RenderTable(
		[]string{"ID", "Name", "Type", "Owner", "Tags", "SLA (h)", "Last Validated"},
		rows)
}

func registerCmd() *cobra.Command {
	var name, assetType, location, owner, description string
	var tags []string
	var slaHours int

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a catalog asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]any{
				"name":                name,
				"type":                assetType,
				"location":            location,
				"owner":               owner,
				"description":         description,
				"tags":                tags,
				"freshness_sla_hours": slaHours,
			}

			var asset models.Asset
			if err := config.Do("POST", "/assets", payload, &asset); err != nil {
				return err
			}
			fmt.Printf("Registered asset %d (%s)\n", asset.ID, asset.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Asset name")
	cmd.Flags().StringVar(&assetType, "type", "", "dataset, table, stream, dashboard, or model")
	cmd.Flags().StringVar(&location, "location", "", "Physical location, e.g. warehouse.sales.orders")
	cmd.Flags().StringVar(&owner, "owner", "", "Owning team")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma-separated tags")
	cmd.Flags().IntVar(&slaHours, "sla-hours", 0, "Freshness SLA in hours (0 = none)")
	cmd.MarkFlagRequired("name")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("location")
	cmd.MarkFlagRequired("owner")

	return cmd
}

func heartbeatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat [id]",
		Short: "Mark an asset as freshly validated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var asset models.Asset
			if err := config.Do("POST", "/assets/"+args[0]+"/heartbeat", nil, &asset); err != nil {
				return err
			}
			fmt.Printf("Asset %d validated at %s\n", asset.ID, asset.LastValidated.Format("2006-01-02 15:04:05"))
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a catalog asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Do("DELETE", "/assets/"+args[0], nil, nil); err != nil {
				return err
			}
			fmt.Println("Asset deleted")
			return nil
		},
	}
}
