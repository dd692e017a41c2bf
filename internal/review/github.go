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

package review

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v62/github"
	"github.com/l3montree-dev/dtrack-reporter/utils"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const commentsPerPage = 100

type githubClient struct {
	*github.Client
	owner string
	repo  string
}

var _ CommentClient = &githubClient{}

// SplitRepository splits an "owner/repo" identifier
func SplitRepository(repository string) (owner string, repo string, err error) {
	owner, repo, found := strings.Cut(repository, "/")
	if !found || owner == "" || repo == "" {
		return "", "", fmt.Errorf("repository value is undefined or invalid: %s", repository)
	}
	return owner, repo, nil
}

// NewGithubClient creates a client authenticated with a personal access token
// or the GITHUB_TOKEN of a workflow run. An empty apiURL targets github.com.
func NewGithubClient(ctx context.Context, token, repository, apiURL string) (*githubClient, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return newGithubClient(github.NewClient(httpClient), repository, apiURL)
}

// NewGithubAppClient creates a client authenticated as a github app installation
func NewGithubAppClient(appID, installationID int64, privateKeyPath, repository, apiURL string) (*githubClient, error) {
	itr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, appID, installationID, privateKeyPath)
	if err != nil {
		return nil, errors.Wrap(err, "could not create github app transport")
	}
	if apiURL != "" {
		itr.BaseURL = strings.TrimSuffix(apiURL, "/")
	}

	return newGithubClient(github.NewClient(&http.Client{Transport: itr}), repository, apiURL)
}

func newGithubClient(client *github.Client, repository, apiURL string) (*githubClient, error) {
	owner, repo, err := SplitRepository(repository)
	if err != nil {
		return nil, err
	}

	if apiURL != "" {
		u, err := url.Parse(strings.TrimSuffix(apiURL, "/") + "/")
		if err != nil {
			return nil, errors.Wrap(err, "could not parse github api url")
		}
		client.BaseURL = u
	}

	return &githubClient{Client: client, owner: owner, repo: repo}, nil
}

func githubCommentToComment(c *github.IssueComment) Comment {
	return Comment{
		ID:          c.GetID(),
		AuthorLogin: c.GetUser().GetLogin(),
		Body:        c.GetBody(),
	}
}

// pull requests are issues - their conversation comments are issue comments
func (client *githubClient) ListCommentsPage(ctx context.Context, number int, page int) ([]Comment, int, error) {
	comments, resp, err := client.Issues.ListComments(ctx, client.owner, client.repo, number, &github.IssueListCommentsOptions{
		Sort:        github.String("created"),
		Direction:   github.String("asc"),
		ListOptions: github.ListOptions{Page: page, PerPage: commentsPerPage},
	})
	if err != nil {
		return nil, 0, err
	}

	return utils.Map(comments, githubCommentToComment), resp.NextPage, nil
}

func (client *githubClient) GetComment(ctx context.Context, _ int, commentID int64) (Comment, error) {
	c, _, err := client.Issues.GetComment(ctx, client.owner, client.repo, commentID)
	if err != nil {
		return Comment{}, err
	}
	return githubCommentToComment(c), nil
}

func (client *githubClient) CreateComment(ctx context.Context, number int, body string) (Comment, error) {
	c, _, err := client.Issues.CreateComment(ctx, client.owner, client.repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return Comment{}, err
	}
	return githubCommentToComment(c), nil
}

func (client *githubClient) UpdateComment(ctx context.Context, _ int, commentID int64, body string) (Comment, error) {
	c, _, err := client.Issues.EditComment(ctx, client.owner, client.repo, commentID, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		return Comment{}, err
	}
	return githubCommentToComment(c), nil
}
