// Command s3ctl is a minimal administrative CLI over pkg/s3 and
// pkg/s3tables, exercising the request engine, upload/multipart pipeline,
// and Tables catalog end to end, the way the teacher's own admin_cli
// wraps its client library (original_source/src/admin_cli).
package main

import (
	"fmt"
	"os"

	"github.com/minio/s3tables-go/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagProfile    string
)

func main() {
	root := &cobra.Command{
		Use:           "s3ctl",
		Short:         "S3 and Iceberg Tables command-line client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfigPath, "config", defaultConfigPath(), "path to s3ctl config file")
	root.PersistentFlags().StringVar(&flagProfile, "profile", "", "config profile to use (defaults to the config's default profile)")

	logging.SetText()

	root.AddCommand(newObjectCmd())
	root.AddCommand(newTablesCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "s3ctl:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.s3ctl.yaml"
	}
	return ".s3ctl.yaml"
}

func activeProfile() (profile, error) {
	cfg, err := loadConfig(flagConfigPath)
	if err != nil {
		return profile{}, err
	}
	return cfg.resolve(flagProfile)
}
