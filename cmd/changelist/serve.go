package main

import (
	"github.com/spf13/cobra"

	"github.com/arthur-debert/changelist/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the catalog's change lists over HTTP",
	Long: `Start an HTTP server exposing the registered models under /admin:
JSON change list pages, the filter sidebar fragment, the date
drilldown, and file exports, all driven by the admin query string
parameters.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8240", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	site, db, err := openSite()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	server := web.NewServer(site, requestsLogger)
	return server.Run(serveAddr)
}
