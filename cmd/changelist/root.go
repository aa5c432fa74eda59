package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arthur-debert/changelist/changelist"
	"github.com/arthur-debert/changelist/internal/bookstore"
)

var rootCmd = &cobra.Command{
	Use:   "changelist",
	Short: "Changelist CLI - admin-style views over the demo catalog",
	Long: `Changelist turns query string parameters into filtered, ordered,
paginated views over registered models, the way a web admin lists
records. This CLI drives the demo book catalog.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (CHANGELIST_*)
3. Configuration files (custom path or default locations)

Configuration File Discovery:
  CHANGELIST_CONFIG=/path/to/config.yaml  # Custom config file path
  ./changelist.yaml                       # Current directory
  ~/.changelist/changelist.yaml           # User directory

Examples:
  # Seed a demo catalog and list everything
  changelist --db catalog.db seed
  changelist --db catalog.db list books

  # Filter, search, and order like the admin query string does
  changelist --db catalog.db list books --filter year=2005 --filter binding=p
  changelist --db catalog.db list books --search harbor --order 1,0

  # Export the filtered set as CSV
  changelist --db catalog.db export books --filter in_print__exact=1 -f csv`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = viperInst.BindPFlags(cmd.Flags())
		return initLogging(viperInst.GetString("log-level"), viperInst.GetBool("verbose"))
	},
}

// viperInst layers flags over CHANGELIST_* environment variables and
// the optional config file.
var viperInst = viper.New()

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("db", "d", "catalog.db", "Catalog database file path")
	flags.StringP("format", "f", "table", "Output format (table|markdown|csv|json|yaml)")
	flags.BoolP("quiet", "q", false, "Suppress extra output")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.Bool("verbose", false, "Also log to stderr")
	flags.Bool("dry-run", false, "Show what would happen without executing")

	setupViperConfig()

	// List the registered models, like the admin index page does.
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List registered models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			site, db, err := openSite()
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			for _, admin := range site.Admins() {
				m := admin.Model()
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", m.Table, m.VerbosePlural)
			}
			return nil
		},
	}
	rootCmd.AddCommand(modelsCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(fieldsCmd)
	rootCmd.AddCommand(filtersCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
}

// setupViperConfig configures environment variables and config file
// discovery.
func setupViperConfig() {
	if configFile := os.Getenv("CHANGELIST_CONFIG"); configFile != "" {
		viperInst.SetConfigFile(configFile)
	} else {
		viperInst.SetConfigName("changelist")
		viperInst.SetConfigType("yaml")
		viperInst.AddConfigPath(".")
		viperInst.AddConfigPath("$HOME/.changelist")
	}

	viperInst.AutomaticEnv()
	viperInst.SetEnvPrefix("CHANGELIST")

	// Replace dash with underscore in env vars (e.g. --dry-run ->
	// CHANGELIST_DRY_RUN)
	viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Read config file if it exists (ignore errors)
	_ = viperInst.ReadInConfig()
}

// openSite opens the catalog database and registers the demo admins.
func openSite() (*changelist.Site, *sql.DB, error) {
	path := viperInst.GetString("db")
	if path == "" {
		return nil, nil, fmt.Errorf("database path is required")
	}

	db, err := bookstore.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	site, _, err := bookstore.NewSite(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to build site: %w", err)
	}
	return site, db, nil
}

// adminFor resolves a model argument against the site's registrations.
func adminFor(site *changelist.Site, name string) (*changelist.ModelAdmin, error) {
	admin, ok := site.Admin(name)
	if ok {
		return admin, nil
	}
	names := make([]string, 0, len(site.Admins()))
	for _, a := range site.Admins() {
		names = append(names, a.Model().Table)
	}
	return nil, fmt.Errorf("unknown model %q (registered: %s)", name, strings.Join(names, ", "))
}
