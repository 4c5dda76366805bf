package cli

import (
	"runtime"

	"github.com/spf13/cobra"
)

var versionJSON bool

// buildInfo is the machine-readable version report.
type buildInfo struct {
	Version string `json:"version"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number",
	Annotations: map[string]string{scopeAnnotation: scopeNone},
	RunE: func(cmd *cobra.Command, _ []string) error {
		info := buildInfo{
			Version: version,
			Go:      runtime.Version(),
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
		}
		if versionJSON {
			return printJSON(cmd, info)
		}
		cmd.Printf("fundlink version %s (%s %s/%s)\n", info.Version, info.Go, info.OS, info.Arch)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output as JSON")
	rootCmd.AddCommand(versionCmd)
}
