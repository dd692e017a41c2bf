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
	"log/slog"
	"slices"
	"strings"

	"github.com/l3montree-dev/dtrack-reporter/utils"
	"github.com/pkg/errors"
)

type Comment struct {
	ID          int64
	AuthorLogin string
	Body        string
}

// CommentClient is a wrapper around the review system api - which provides
// only the methods we need. number is the pull or merge request number.
type CommentClient interface {
	// ListCommentsPage returns the comments of one page, oldest first.
	// nextPage is 0 if there are no more pages.
	ListCommentsPage(ctx context.Context, number int, page int) (comments []Comment, nextPage int, err error)
	GetComment(ctx context.Context, number int, commentID int64) (Comment, error)
	CreateComment(ctx context.Context, number int, body string) (Comment, error)
	UpdateComment(ctx context.Context, number int, commentID int64, body string) (Comment, error)
}

type Direction string

const (
	DirectionFirst Direction = "first"
	DirectionLast  Direction = "last"
)

type EditMode string

const (
	EditModeAppend  EditMode = "append"
	EditModeReplace EditMode = "replace"
)

var (
	ErrMissingBody   = errors.New("missing comment 'body'")
	ErrMissingTarget = errors.New("missing either 'issueNumber' or 'commentId'")
)

type InvalidEditModeError struct {
	EditMode EditMode
}

func (e *InvalidEditModeError) Error() string {
	return fmt.Sprintf("invalid edit-mode '%s'", e.EditMode)
}

type InvalidDirectionError struct {
	Direction Direction
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("invalid search direction '%s'. Please use one of first or last", e.Direction)
}

type Commenter struct {
	client CommentClient
}

func NewCommenter(client CommentClient) *Commenter {
	return &Commenter{client: client}
}

func matches(author, marker string, comment Comment) bool {
	if author != "" && comment.AuthorLogin != author {
		return false
	}
	if marker != "" && !strings.Contains(comment.Body, marker) {
		return false
	}
	return true
}

// FindExisting looks for a comment written by author which contains marker.
// An empty author or marker matches every comment. With DirectionFirst the
// oldest match is returned and no page after the one containing it is
// requested. With DirectionLast all comments are fetched and the newest match
// is returned. nil is returned if no comment matches.
func (c *Commenter) FindExisting(ctx context.Context, number int, author, marker string, direction Direction) (*Comment, error) {
	predicate := func(comment Comment) bool {
		return matches(author, marker, comment)
	}

	switch direction {
	case DirectionFirst:
		for page := 1; page != 0; {
			comments, nextPage, err := c.client.ListCommentsPage(ctx, number, page)
			if err != nil {
				return nil, errors.Wrap(err, "could not list comments")
			}
			if comment, ok := utils.Find(comments, predicate); ok {
				return &comment, nil
			}
			page = nextPage
		}
		return nil, nil

	case DirectionLast:
		comments, err := c.listAllComments(ctx, number)
		if err != nil {
			return nil, err
		}
		slices.Reverse(comments)
		if comment, ok := utils.Find(comments, predicate); ok {
			return &comment, nil
		}
		return nil, nil
	}

	return nil, &InvalidDirectionError{Direction: direction}
}

func (c *Commenter) listAllComments(ctx context.Context, number int) ([]Comment, error) {
	all := make([]Comment, 0)
	for page := 1; page != 0; {
		comments, nextPage, err := c.client.ListCommentsPage(ctx, number, page)
		if err != nil {
			return nil, errors.Wrap(err, "could not list comments")
		}
		all = append(all, comments...)
		page = nextPage
	}
	return all, nil
}

type UpsertOptions struct {
	// CommentID selects the comment to update. If it is 0 a new comment is
	// created on the review request identified by Number.
	CommentID int64
	Number    int
	Body      string
	// defaults to EditModeAppend
	EditMode EditMode
}

// Upsert updates the comment if a comment id is given, otherwise it creates a
// new comment on the review request.
func (c *Commenter) Upsert(ctx context.Context, opts UpsertOptions) (Comment, error) {
	editMode := opts.EditMode
	if editMode == "" {
		editMode = EditModeAppend
	}
	if editMode != EditModeAppend && editMode != EditModeReplace {
		return Comment{}, &InvalidEditModeError{EditMode: editMode}
	}

	if opts.CommentID == 0 && opts.Number == 0 {
		return Comment{}, ErrMissingTarget
	}
	if opts.Body == "" {
		return Comment{}, ErrMissingBody
	}

	switch {
	case opts.CommentID != 0:
		body := opts.Body
		if editMode == EditModeAppend {
			current, err := c.client.GetComment(ctx, opts.Number, opts.CommentID)
			if err != nil {
				return Comment{}, errors.Wrap(err, "could not get comment")
			}
			body = current.Body + "\n" + opts.Body
		}

		comment, err := c.client.UpdateComment(ctx, opts.Number, opts.CommentID, body)
		if err != nil {
			return Comment{}, errors.Wrap(err, "could not update comment")
		}
		slog.Info("updated comment", "commentId", opts.CommentID, "editMode", editMode)
		return comment, nil

	default:
		comment, err := c.client.CreateComment(ctx, opts.Number, opts.Body)
		if err != nil {
			return Comment{}, errors.Wrap(err, "could not create comment")
		}
		slog.Info("created comment", "commentId", comment.ID, "number", opts.Number)
		return comment, nil
	}
}

// ReplaceOrCreate keeps exactly one marker comment on the review request: an
// existing comment matching author and marker gets its body replaced,
// otherwise a new comment is created.
func (c *Commenter) ReplaceOrCreate(ctx context.Context, number int, author, marker string, direction Direction, body string) (Comment, error) {
	existing, err := c.FindExisting(ctx, number, author, marker, direction)
	if err != nil {
		return Comment{}, err
	}

	opts := UpsertOptions{Number: number, Body: body, EditMode: EditModeReplace}
	if existing != nil {
		slog.Debug("found existing comment", "commentId", existing.ID)
		opts.CommentID = existing.ID
	}
	return c.Upsert(ctx, opts)
}
