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

	"github.com/l3montree-dev/dtrack-reporter/utils"
	"github.com/pkg/errors"
	gitlab "gitlab.com/gitlab-org/api/client-go"
)

type gitlabClient struct {
	*gitlab.Client
	// numeric id or the url-encoded path of the project (group/project)
	projectID string
}

var _ CommentClient = &gitlabClient{}

// NewGitlabClient creates a client for the merge requests of the project.
// An empty baseURL targets gitlab.com.
func NewGitlabClient(token, projectID, baseURL string) (*gitlabClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("repository value is undefined or invalid: %s", projectID)
	}

	options := []gitlab.ClientOptionFunc{}
	if baseURL != "" {
		options = append(options, gitlab.WithBaseURL(baseURL))
	}

	client, err := gitlab.NewClient(token, options...)
	if err != nil {
		return nil, errors.Wrap(err, "could not create gitlab client")
	}
	return &gitlabClient{Client: client, projectID: projectID}, nil
}

func noteToComment(n *gitlab.Note) Comment {
	return Comment{
		ID:          n.ID,
		AuthorLogin: n.Author.Username,
		Body:        n.Body,
	}
}

func (client *gitlabClient) ListCommentsPage(ctx context.Context, number int, page int) ([]Comment, int, error) {
	notes, resp, err := client.Notes.ListMergeRequestNotes(client.projectID, int64(number), &gitlab.ListMergeRequestNotesOptions{
		ListOptions: gitlab.ListOptions{Page: int64(page), PerPage: commentsPerPage},
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("asc"),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return nil, 0, err
	}

	// skip notes generated by gitlab itself (pushes, label changes...)
	userNotes := utils.Filter(notes, func(n *gitlab.Note) bool {
		return !n.System
	})
	return utils.Map(userNotes, noteToComment), int(resp.NextPage), nil
}

func (client *gitlabClient) GetComment(ctx context.Context, number int, commentID int64) (Comment, error) {
	n, _, err := client.Notes.GetMergeRequestNote(client.projectID, int64(number), commentID, gitlab.WithContext(ctx))
	if err != nil {
		return Comment{}, err
	}
	return noteToComment(n), nil
}

func (client *gitlabClient) CreateComment(ctx context.Context, number int, body string) (Comment, error) {
	n, _, err := client.Notes.CreateMergeRequestNote(client.projectID, int64(number), &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return Comment{}, err
	}
	return noteToComment(n), nil
}

func (client *gitlabClient) UpdateComment(ctx context.Context, number int, commentID int64, body string) (Comment, error) {
	n, _, err := client.Notes.UpdateMergeRequestNote(client.projectID, int64(number), commentID, &gitlab.UpdateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	if err != nil {
		return Comment{}, err
	}
	return noteToComment(n), nil
}
