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

package config

import (
	"log/slog"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	ProviderGithub = "github"
	ProviderGitlab = "gitlab"

	defaultTimeoutInSecs = 300
	defaultCommentAuthor = "github-actions[bot]"
)

type Config struct {
	ServerHostBaseURL string `json:"serverHostBaseUrl" mapstructure:"serverHostBaseUrl" validate:"required,url"`
	APIKey            string `json:"apiKey" mapstructure:"apiKey" validate:"required"`
	ProjectName       string `json:"projectName" mapstructure:"projectName"`
	ProjectVersion    string `json:"projectVersion" mapstructure:"projectVersion"`
	AutoCreate        bool   `json:"autoCreate" mapstructure:"autoCreate"`
	BOMFilePath       string `json:"bomFilePath" mapstructure:"bomFilePath" validate:"required"`
	TimeoutInSecs     int    `json:"timeoutInSecs" mapstructure:"timeoutInSecs" validate:"gte=0"`

	FailOnSeverityLevel string `json:"failOnSeverityLevel" mapstructure:"failOnSeverityLevel"`
	Output              string `json:"output" mapstructure:"output"`

	Provider        string `json:"provider" mapstructure:"provider" validate:"oneof=github gitlab"`
	Token           string `json:"token" mapstructure:"token"`
	Repository      string `json:"repository" mapstructure:"repository"`
	PRNumber        int    `json:"prNumber" mapstructure:"prNumber" validate:"gte=0"`
	CommentAuthor   string `json:"commentAuthor" mapstructure:"commentAuthor"`
	SearchDirection string `json:"searchDirection" mapstructure:"searchDirection" validate:"oneof=first last"`

	GithubAPIURL         string `json:"githubApiUrl" mapstructure:"githubApiUrl" validate:"omitempty,url"`
	GithubAppID          int64  `json:"githubAppId" mapstructure:"githubAppId"`
	GithubInstallationID int64  `json:"githubInstallationId" mapstructure:"githubInstallationId" validate:"required_with=GithubAppID"`
	GithubPrivateKeyPath string `json:"githubPrivateKeyPath" mapstructure:"githubPrivateKeyPath" validate:"required_with=GithubAppID"`

	GitlabURL string `json:"gitlabUrl" mapstructure:"gitlabUrl" validate:"omitempty,url"`
}

var RuntimeConfig Config

var v = validator.New()

func init() {
	v.RegisterStructValidation(validateCommentTarget, Config{})
}

// ParseConfig reads the values collected by viper into RuntimeConfig, fills
// the defaults the ci environment provides and validates the result.
func ParseConfig() error {
	RuntimeConfig = Config{}
	if err := viper.Unmarshal(&RuntimeConfig, viper.DecodeHook(mapstructure.DecodeHookFuncKind(trimSpaceHook))); err != nil {
		return errors.Wrap(err, "could not parse config")
	}

	applyDefaults(&RuntimeConfig)

	if err := v.Struct(RuntimeConfig); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	return errors.Wrap(isValidFile(RuntimeConfig.BOMFilePath), "invalid bomFilePath")
}

// action inputs written as yaml block scalars end with a newline
func trimSpaceHook(from reflect.Kind, to reflect.Kind, data any) (any, error) {
	if from != reflect.String {
		return data, nil
	}
	return strings.TrimSpace(data.(string)), nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerHostBaseURL != "" {
		cfg.ServerHostBaseURL = sanitizeURL(cfg.ServerHostBaseURL)
	}
	if cfg.GitlabURL != "" {
		cfg.GitlabURL = sanitizeURL(cfg.GitlabURL)
	}

	// negative values are left for the validation to reject
	if cfg.TimeoutInSecs == 0 {
		cfg.TimeoutInSecs = defaultTimeoutInSecs
	}

	if cfg.Provider == "" {
		cfg.Provider = detectProvider()
	}
	cfg.Provider = strings.ToLower(cfg.Provider)

	if cfg.SearchDirection == "" {
		cfg.SearchDirection = "first"
	}

	// review request number taken from the ci environment
	inferred := 0

	switch cfg.Provider {
	case ProviderGithub:
		if cfg.CommentAuthor == "" {
			cfg.CommentAuthor = defaultCommentAuthor
		}
		if cfg.Repository == "" {
			cfg.Repository = os.Getenv("GITHUB_REPOSITORY")
		}
		if cfg.Token == "" {
			cfg.Token = os.Getenv("GITHUB_TOKEN")
		}
		if cfg.GithubAPIURL == "" {
			cfg.GithubAPIURL = os.Getenv("GITHUB_API_URL")
		}
		if cfg.PRNumber == 0 {
			inferred = pullRequestNumberFromRef(os.Getenv("GITHUB_REF"))
		}
	case ProviderGitlab:
		if cfg.Repository == "" {
			cfg.Repository = os.Getenv("CI_PROJECT_ID")
		}
		if cfg.GitlabURL == "" {
			cfg.GitlabURL = os.Getenv("CI_SERVER_URL")
		}
		if cfg.PRNumber == 0 {
			if iid, err := strconv.Atoi(os.Getenv("CI_MERGE_REQUEST_IID")); err == nil {
				inferred = iid
			}
		}
	}

	if inferred > 0 {
		// a detected number is only used if the comment can actually be posted
		if cfg.Repository == "" || (cfg.Token == "" && cfg.GithubAppID == 0) {
			slog.Warn("detected a review request but no repository or credentials are configured, skipping the comment", "number", inferred)
		} else {
			cfg.PRNumber = inferred
		}
	}
}

func detectProvider() string {
	if os.Getenv("GITLAB_CI") == "true" {
		slog.Debug("detected gitlab ci")
		return ProviderGitlab
	}
	return ProviderGithub
}

// pull request workflows run on refs/pull/<number>/merge
func pullRequestNumberFromRef(ref string) int {
	rest, ok := strings.CutPrefix(ref, "refs/pull/")
	if !ok {
		return 0
	}
	number, _, _ := strings.Cut(rest, "/")
	n, err := strconv.Atoi(number)
	if err != nil {
		return 0
	}
	return n
}

// posting a comment needs a repository and some kind of credentials
func validateCommentTarget(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if cfg.PRNumber == 0 {
		return
	}
	if cfg.Repository == "" {
		sl.ReportError(cfg.Repository, "Repository", "repository", "required_with_pr", "")
	}
	if cfg.Token == "" && cfg.GithubAppID == 0 {
		sl.ReportError(cfg.Token, "Token", "token", "required_with_pr", "")
	}
}
