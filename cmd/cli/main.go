package main

import (
	"fmt"
	"os"

	"github.com/devplane-io/devplane/cmd/cli/auth"
	"github.com/devplane-io/devplane/cmd/cli/catalog"
	"github.com/devplane-io/devplane/cmd/cli/env"
	"github.com/devplane-io/devplane/cmd/cli/incident"
	"github.com/devplane-io/devplane/cmd/cli/report"
	"github.com/devplane-io/devplane/cmd/cli/root"
	"github.com/devplane-io/devplane/cmd/cli/service"
)

func main() {
	rootCmd := root.GetRoot()

	auth.InitAuth(rootCmd)
	catalog.InitCatalog(rootCmd)
	service.InitService(rootCmd)
	env.InitEnv(rootCmd)
	incident.InitIncident(rootCmd)
	report.InitReport(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
