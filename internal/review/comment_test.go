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
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCommentClient struct {
	mock.Mock
}

func (m *mockCommentClient) ListCommentsPage(ctx context.Context, number int, page int) ([]Comment, int, error) {
	args := m.Called(ctx, number, page)
	return args.Get(0).([]Comment), args.Int(1), args.Error(2)
}

func (m *mockCommentClient) GetComment(ctx context.Context, number int, commentID int64) (Comment, error) {
	args := m.Called(ctx, number, commentID)
	return args.Get(0).(Comment), args.Error(1)
}

func (m *mockCommentClient) CreateComment(ctx context.Context, number int, body string) (Comment, error) {
	args := m.Called(ctx, number, body)
	return args.Get(0).(Comment), args.Error(1)
}

func (m *mockCommentClient) UpdateComment(ctx context.Context, number int, commentID int64, body string) (Comment, error) {
	args := m.Called(ctx, number, commentID, body)
	return args.Get(0).(Comment), args.Error(1)
}

const (
	bot    = "github-actions[bot]"
	marker = "Dependency track analysis"
)

func TestFindExisting(t *testing.T) {
	t.Run("first should return the oldest match without fetching the following pages", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment{
			{ID: 1, AuthorLogin: "alice", Body: "LGTM"},
			{ID: 2, AuthorLogin: bot, Body: "##Dependency track analysis has completed."},
		}, 2, nil).Once()
		client.On("ListCommentsPage", mock.Anything, 42, 2).Return([]Comment{
			{ID: 3, AuthorLogin: bot, Body: "##Dependency track analysis has completed."},
		}, 0, nil).Maybe()

		comment, err := NewCommenter(client).FindExisting(context.Background(), 42, bot, marker, DirectionFirst)
		require.NoError(t, err)
		require.NotNil(t, comment)
		assert.Equal(t, int64(2), comment.ID)
		client.AssertNotCalled(t, "ListCommentsPage", mock.Anything, 42, 2)
	})

	t.Run("first should continue with the next page if there is no match", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment{
			{ID: 1, AuthorLogin: "alice", Body: "Dependency track analysis looks great"},
		}, 2, nil).Once()
		client.On("ListCommentsPage", mock.Anything, 42, 2).Return([]Comment{
			{ID: 3, AuthorLogin: bot, Body: "##Dependency track analysis has completed."},
			{ID: 4, AuthorLogin: bot, Body: "##Dependency track analysis has completed."},
		}, 0, nil).Once()

		comment, err := NewCommenter(client).FindExisting(context.Background(), 42, bot, marker, DirectionFirst)
		require.NoError(t, err)
		require.NotNil(t, comment)
		assert.Equal(t, int64(3), comment.ID)
		client.AssertExpectations(t)
	})

	t.Run("last should return the newest match", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment{
			{ID: 1, AuthorLogin: bot, Body: "##Dependency track analysis has completed."},
			{ID: 2, AuthorLogin: bot, Body: "Some other bot message"},
		}, 2, nil).Once()
		client.On("ListCommentsPage", mock.Anything, 42, 2).Return([]Comment{
			{ID: 3, AuthorLogin: bot, Body: "##Dependency track analysis has completed."},
		}, 0, nil).Once()

		comment, err := NewCommenter(client).FindExisting(context.Background(), 42, bot, marker, DirectionLast)
		require.NoError(t, err)
		require.NotNil(t, comment)
		assert.Equal(t, int64(3), comment.ID)
		client.AssertExpectations(t)
	})

	t.Run("should return nil if no comment matches", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment{
			{ID: 1, AuthorLogin: "alice", Body: "##Dependency track analysis has completed."},
			{ID: 2, AuthorLogin: bot, Body: "build passed"},
		}, 0, nil)

		for _, direction := range []Direction{DirectionFirst, DirectionLast} {
			comment, err := NewCommenter(client).FindExisting(context.Background(), 42, bot, marker, direction)
			require.NoError(t, err)
			assert.Nil(t, comment)
		}
	})

	t.Run("should skip the author filter if no author is given", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment{
			{ID: 1, AuthorLogin: "alice", Body: "hello"},
			{ID: 2, AuthorLogin: "bob", Body: "##Dependency track analysis has completed."},
		}, 0, nil)

		comment, err := NewCommenter(client).FindExisting(context.Background(), 42, "", marker, DirectionFirst)
		require.NoError(t, err)
		require.NotNil(t, comment)
		assert.Equal(t, int64(2), comment.ID)
	})

	t.Run("should skip the body filter if no marker is given", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment{
			{ID: 1, AuthorLogin: "alice", Body: "hello"},
			{ID: 2, AuthorLogin: bot, Body: "anything"},
		}, 0, nil)

		comment, err := NewCommenter(client).FindExisting(context.Background(), 42, bot, "", DirectionFirst)
		require.NoError(t, err)
		require.NotNil(t, comment)
		assert.Equal(t, int64(2), comment.ID)
	})

	t.Run("should reject an unknown direction", func(t *testing.T) {
		_, err := NewCommenter(&mockCommentClient{}).FindExisting(context.Background(), 42, bot, marker, "middle")

		var directionErr *InvalidDirectionError
		assert.True(t, errors.As(err, &directionErr))
	})

	t.Run("should return list errors", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment(nil), 0, errors.New("rate limited"))

		_, err := NewCommenter(client).FindExisting(context.Background(), 42, bot, marker, DirectionLast)
		assert.ErrorContains(t, err, "rate limited")
	})
}

func TestUpsert(t *testing.T) {
	t.Run("should create a comment if there is no existing one", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("CreateComment", mock.Anything, 42, "report").Return(Comment{ID: 7, Body: "report"}, nil).Once()

		comment, err := NewCommenter(client).Upsert(context.Background(), UpsertOptions{Number: 42, Body: "report", EditMode: EditModeReplace})
		require.NoError(t, err)
		assert.Equal(t, int64(7), comment.ID)
		client.AssertExpectations(t)
	})

	t.Run("should append to the current body of the existing comment", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("GetComment", mock.Anything, 42, int64(7)).Return(Comment{ID: 7, Body: "old report"}, nil).Once()
		client.On("UpdateComment", mock.Anything, 42, int64(7), "old report\nnew report").Return(Comment{ID: 7, Body: "old report\nnew report"}, nil).Once()

		comment, err := NewCommenter(client).Upsert(context.Background(), UpsertOptions{CommentID: 7, Number: 42, Body: "new report", EditMode: EditModeAppend})
		require.NoError(t, err)
		assert.Equal(t, "old report\nnew report", comment.Body)
		client.AssertExpectations(t)
	})

	t.Run("should append by default", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("GetComment", mock.Anything, 0, int64(7)).Return(Comment{ID: 7, Body: "a"}, nil).Once()
		client.On("UpdateComment", mock.Anything, 0, int64(7), "a\nb").Return(Comment{ID: 7}, nil).Once()

		_, err := NewCommenter(client).Upsert(context.Background(), UpsertOptions{CommentID: 7, Body: "b"})
		require.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("should replace the body without reading it", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("UpdateComment", mock.Anything, 42, int64(7), "new report").Return(Comment{ID: 7}, nil).Once()

		_, err := NewCommenter(client).Upsert(context.Background(), UpsertOptions{CommentID: 7, Number: 42, Body: "new report", EditMode: EditModeReplace})
		require.NoError(t, err)
		client.AssertNotCalled(t, "GetComment", mock.Anything, mock.Anything, mock.Anything)
		client.AssertExpectations(t)
	})

	t.Run("should fail without a body", func(t *testing.T) {
		_, err := NewCommenter(&mockCommentClient{}).Upsert(context.Background(), UpsertOptions{Number: 42})
		assert.ErrorIs(t, err, ErrMissingBody)
	})

	t.Run("should fail without a target", func(t *testing.T) {
		_, err := NewCommenter(&mockCommentClient{}).Upsert(context.Background(), UpsertOptions{Body: "report"})
		assert.ErrorIs(t, err, ErrMissingTarget)
	})

	t.Run("should report the missing target before the missing body", func(t *testing.T) {
		_, err := NewCommenter(&mockCommentClient{}).Upsert(context.Background(), UpsertOptions{})
		assert.ErrorIs(t, err, ErrMissingTarget)
	})

	t.Run("should fail for an unknown edit mode", func(t *testing.T) {
		_, err := NewCommenter(&mockCommentClient{}).Upsert(context.Background(), UpsertOptions{Number: 42, Body: "report", EditMode: "prepend"})

		var editModeErr *InvalidEditModeError
		require.True(t, errors.As(err, &editModeErr))
		assert.Equal(t, EditMode("prepend"), editModeErr.EditMode)
	})
}

func TestReplaceOrCreate(t *testing.T) {
	t.Run("should create the comment on the first run", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment{}, 0, nil)
		client.On("CreateComment", mock.Anything, 42, "##Dependency track analysis has completed. \n").Return(Comment{ID: 9}, nil).Once()

		comment, err := NewCommenter(client).ReplaceOrCreate(context.Background(), 42, bot, marker, DirectionFirst, "##Dependency track analysis has completed. \n")
		require.NoError(t, err)
		assert.Equal(t, int64(9), comment.ID)
		client.AssertExpectations(t)
	})

	t.Run("should replace the existing comment on following runs", func(t *testing.T) {
		client := &mockCommentClient{}
		client.On("ListCommentsPage", mock.Anything, 42, 1).Return([]Comment{
			{ID: 9, AuthorLogin: bot, Body: "##Dependency track analysis has completed. \nold"},
		}, 0, nil)
		client.On("UpdateComment", mock.Anything, 42, int64(9), "##Dependency track analysis has completed. \nnew").Return(Comment{ID: 9}, nil).Once()

		comment, err := NewCommenter(client).ReplaceOrCreate(context.Background(), 42, bot, marker, DirectionFirst, "##Dependency track analysis has completed. \nnew")
		require.NoError(t, err)
		assert.Equal(t, int64(9), comment.ID)
		client.AssertNotCalled(t, "CreateComment", mock.Anything, mock.Anything, mock.Anything)
		client.AssertExpectations(t)
	})
}
