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
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/l3montree-dev/dtrack-reporter/cmd/dtrack-reporter/config"
	"github.com/l3montree-dev/dtrack-reporter/internal/analysis"
	"github.com/l3montree-dev/dtrack-reporter/internal/bom"
	"github.com/l3montree-dev/dtrack-reporter/internal/report"
	"github.com/l3montree-dev/dtrack-reporter/internal/reporter"
	"github.com/l3montree-dev/dtrack-reporter/internal/review"
	"github.com/l3montree-dev/dtrack-reporter/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewAnalyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Upload a bom, wait for the analysis and report the findings",
		Long: `Uploads the CycloneDX bom to Dependency-Track, waits until the server has analyzed it
and renders the findings as markdown. If a pull or merge request number is known, the report
is posted as a comment. A previous report comment is replaced instead of adding a new one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ParseConfig(); err != nil {
				return reportFailure(err)
			}
			return reportFailure(runAnalyze(cmd.Context(), config.RuntimeConfig))
		},
	}

	addAnalyzeFlags(cmd)
	return cmd
}

func addAnalyzeFlags(cmd *cobra.Command) {
	cmd.Flags().String("serverHostBaseUrl", "", "The base url of the Dependency-Track server, e.g. https://dtrack.example.com")
	cmd.Flags().String("apiKey", "", "The Dependency-Track api key. Needs the BOM_UPLOAD, VIEW_PORTFOLIO and VIEW_VULNERABILITY permissions.")
	cmd.Flags().String("projectName", "", "The name of the project. Defaults to the name of the metadata component of the bom.")
	cmd.Flags().String("projectVersion", "", "The version of the project. Defaults to the version of the metadata component of the bom.")
	cmd.Flags().Bool("autoCreate", true, "Create the project on the server if it does not exist yet")
	cmd.Flags().String("bomFilePath", "", "The path to the CycloneDX bom (json or xml)")
	cmd.Flags().Int("timeoutInSecs", 300, "How long to wait for the analysis to complete")
	cmd.Flags().String("failOnSeverityLevel", "", "Fail if there is at least one finding with this severity or higher. Can be 'LOW', 'MEDIUM', 'HIGH' or 'CRITICAL'. Empty disables the check.")
	cmd.Flags().String("output", "", "Write the markdown report to this file")

	cmd.Flags().String("provider", "", "The review system to comment on. Can be 'github' or 'gitlab'. Detected from the ci environment if empty.")
	cmd.Flags().String("token", "", "The token used to comment on the pull or merge request. Defaults to GITHUB_TOKEN.")
	cmd.Flags().String("repository", "", "The repository (owner/repo) on github or the project id or path on gitlab. Defaults to GITHUB_REPOSITORY or CI_PROJECT_ID.")
	cmd.Flags().Int("prNumber", 0, "The pull or merge request number. If it is not set and cannot be detected, no comment is posted.")
	cmd.Flags().String("commentAuthor", "", "Only comments of this user are replaced. Defaults to github-actions[bot] on github.")
	cmd.Flags().String("searchDirection", "first", "Which report comment to replace if there are multiple. Can be 'first' or 'last'.")

	cmd.Flags().String("githubApiUrl", "", "The github api url. Defaults to GITHUB_API_URL or https://api.github.com.")
	cmd.Flags().Int64("githubAppId", 0, "Comment as a github app instead of using a token")
	cmd.Flags().Int64("githubInstallationId", 0, "The installation id of the github app")
	cmd.Flags().String("githubPrivateKeyPath", "", "The path to the private key of the github app")
	cmd.Flags().String("gitlabUrl", "", "The gitlab instance url. Defaults to CI_SERVER_URL or https://gitlab.com.")
}

func runAnalyze(ctx context.Context, cfg config.Config) error {
	payload, err := bom.ReadFile(cfg.BOMFilePath)
	if err != nil {
		return err
	}

	// the server decides whether it can process the bom, decoding is only
	// needed for the project identity fallback
	decoded, decodeErr := bom.Decode(payload)
	if decodeErr != nil {
		slog.Warn("could not decode bom, uploading it unchanged", "path", cfg.BOMFilePath, "err", decodeErr)
	} else {
		slog.Info("read bom", "path", cfg.BOMFilePath, "components", bom.ComponentCount(decoded))
	}

	projectName, projectVersion := cfg.ProjectName, cfg.ProjectVersion
	if projectName == "" || projectVersion == "" {
		if decodeErr != nil {
			return errors.Wrap(decodeErr, "projectName and projectVersion are required, could not read them from the bom")
		}
		name, version := bom.ProjectIdentity(decoded)
		if projectName == "" {
			projectName = name
		}
		if projectVersion == "" {
			projectVersion = version
		}
	}
	if projectName == "" || projectVersion == "" {
		return errors.New("projectName and projectVersion are required, neither the config nor the bom metadata provides them")
	}

	req := analysis.Request{
		ServerBaseURL:     cfg.ServerHostBaseURL,
		APIKey:            cfg.APIKey,
		ProjectName:       projectName,
		ProjectVersion:    projectVersion,
		AutoCreateProject: cfg.AutoCreate,
		BOMPayload:        payload,
	}

	poller, err := analysis.NewPollerForRequest(req)
	if err != nil {
		return err
	}

	var commenter reporter.Commenter
	if cfg.PRNumber > 0 {
		client, err := newCommentClient(ctx, cfg)
		if err != nil {
			return err
		}
		commenter = review.NewCommenter(client)
	}

	var progress reporter.Progress
	if !utils.RunsInCI() {
		s := spinner.New(spinner.CharSets[11], 100*time.Millisecond)
		s.Suffix = " Dependency-Track: waiting for the bom analysis"
		s.Writer = os.Stderr
		progress = s
	}

	result, err := reporter.NewOrchestrator(poller, commenter, progress).Run(ctx, reporter.Options{
		Request:        req,
		Timeout:        time.Duration(cfg.TimeoutInSecs) * time.Second,
		Number:         cfg.PRNumber,
		CommentAuthor:  cfg.CommentAuthor,
		Direction:      review.Direction(cfg.SearchDirection),
		FailOnSeverity: cfg.FailOnSeverityLevel,
		OutputPath:     cfg.Output,
	})
	if result.Report != "" {
		if len(result.Findings) > 0 {
			fmt.Println(report.Table(result.Findings))
		}
		slog.Info("dependency track analysis completed", "project", projectName, "version", projectVersion, "findings", report.Summary(result.Findings))
	}
	if result.CommentID != 0 {
		slog.Info("posted report", "number", cfg.PRNumber, "commentId", result.CommentID)
	}
	return err
}

func newCommentClient(ctx context.Context, cfg config.Config) (review.CommentClient, error) {
	switch cfg.Provider {
	case config.ProviderGitlab:
		return review.NewGitlabClient(cfg.Token, cfg.Repository, cfg.GitlabURL)
	case config.ProviderGithub:
		if cfg.GithubAppID != 0 {
			return review.NewGithubAppClient(cfg.GithubAppID, cfg.GithubInstallationID, cfg.GithubPrivateKeyPath, cfg.Repository, cfg.GithubAPIURL)
		}
		return review.NewGithubClient(ctx, cfg.Token, cfg.Repository, cfg.GithubAPIURL)
	}
	return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
}

// reportFailure logs the error and, inside github actions, emits an error
// annotation for the workflow run.
func reportFailure(err error) error {
	if err == nil {
		return nil
	}
	slog.Error("dependency track analysis failed", "err", err)
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		fmt.Printf("::error::%s\n", escapeWorkflowCommandData(err.Error()))
	}
	return err
}

// workflow command data ends at the first newline
var workflowCommandDataEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")

func escapeWorkflowCommandData(data string) string {
	return workflowCommandDataEscaper.Replace(data)
}
