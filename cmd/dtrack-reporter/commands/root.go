// Copyright (C) 2026 l3montree GmbH
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/l3montree-dev/dtrack-reporter/utils"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var cfgFile string

// Version information - set via ldflags during build
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	defaultConfigFilename = ".dtrack-reporter"
	envPrefix             = "DTRACK"
	// github actions passes the inputs of an action as INPUT_<NAME>
	actionInputPrefix = "INPUT"
)

var RootCmd = &cobra.Command{
	SilenceUsage:      true,
	Use:               "dtrack-reporter",
	Short:             "Report Dependency-Track findings on pull requests",
	Version:           version,
	DisableAutoGenTag: true,
	Long: `Report Dependency-Track findings on pull requests

dtrack-reporter uploads a CycloneDX SBOM to a Dependency-Track server, waits for
the analysis to complete and posts the findings as a comment on the pull request
(GitHub) or merge request (GitLab). Configuration can be provided via flags, a
./.dtrack-reporter config file, environment variables (prefix DTRACK_) or GitHub
Actions inputs.`,
	Example: `  # Analyze a bom and comment on pull request 42
  dtrack-reporter analyze --serverHostBaseUrl https://dtrack.example.com --apiKey $KEY \
    --bomFilePath bom.json --repository acme/shop --prNumber 42 --token $GITHUB_TOKEN

  # Fail the run if there is at least one high or critical finding
  dtrack-reporter analyze --bomFilePath bom.json --failOnSeverityLevel HIGH`,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init the logger - get the level
		level, err := cmd.Flags().GetString("logLevel")
		if err != nil {
			return err
		}

		switch level {
		case "debug":
			initLogger(slog.LevelDebug)
		case "info":
			initLogger(slog.LevelInfo)
		case "warn":
			initLogger(slog.LevelWarn)
		case "error":
			initLogger(slog.LevelError)
		default:
			initLogger(slog.LevelInfo)
		}

		if utils.RunsInCI() {
			slog.Debug("Running in CI")
		}

		return initializeConfig(cmd)
	},
}

func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dtrack-reporter\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Built:      %s\n", date)
		},
	}

	RootCmd.AddCommand(
		versionCmd,
		NewAnalyzeCommand(),
	)

	RootCmd.PersistentFlags().StringP("logLevel", "l", "info", "Set the log level. Options: debug, info, warn, error")
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to a config file. Defaults to ./.dtrack-reporter")
}

// initLogger initializes the logger with a tint handler.
// tint adds colors to the log output which makes it easier to read in ci logs.
func initLogger(level slog.Leveler) {
	w := os.Stderr

	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
			AddSource:  level == slog.LevelDebug,
		}),
	))
}

func initializeConfig(cmd *cobra.Command) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(defaultConfigFilename)
	}

	// only looking in the current working directory
	viper.AddConfigPath(".")

	// Attempt to read the config file, gracefully ignoring errors
	// caused by a config file not being found. Return an error
	// if we cannot parse the config file.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		slog.Debug("no config file found")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	bindFlags(cmd)
	return nil
}

// Bind each cobra flag to its associated viper configuration (config file,
// DTRACK_ environment variable and github actions input)
func bindFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		configName := f.Name
		envName := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		if err := viper.BindEnv(configName, envPrefix+"_"+envName, actionInputPrefix+"_"+envName); err != nil {
			slog.Error("could not bind env to viper", "err", err)
		}

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && viper.IsSet(configName) {
			val := viper.Get(configName)
			cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)) // nolint: errcheck
		}

		if err := viper.BindPFlag(configName, f); err != nil {
			slog.Error("could not bind flag to viper", "err", err)
		}
	})
}
