package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/felixgeelhaar/klarity/adapter/cli.Version=..." at build time.
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// VersionInfo is the build identity printed by "klarity version" and
// returned by the cli.version MCP tool.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
}

// BuildInfo returns the linked-in build identity.
func BuildInfo() VersionInfo {
	return VersionInfo{Version: Version, Commit: Commit, BuildDate: BuildDate}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	RunE: func(cmd *cobra.Command, args []string) error {
		info := BuildInfo()
		out := cmd.OutOrStdout()
		if JSONOutput() {
			return json.NewEncoder(out).Encode(info)
		}
		_, err := fmt.Fprintf(out, "klarity %s (commit %s, built %s)\n", info.Version, info.Commit, info.BuildDate)
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
