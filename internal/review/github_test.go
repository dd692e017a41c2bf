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
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitRepository(t *testing.T) {
	owner, repo, err := SplitRepository("acme/shop")
	require.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "shop", repo)

	for _, invalid := range []string{"", "shop", "/shop", "acme/"} {
		_, _, err := SplitRepository(invalid)
		assert.Error(t, err, invalid)
	}
}

func TestGithubClient(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("GET /repos/acme/shop/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "created", r.URL.Query().Get("sort"))
		assert.Equal(t, "asc", r.URL.Query().Get("direction"))
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"id": 3, "body": "third", "user": {"login": "github-actions[bot]"}}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/acme/shop/issues/42/comments?page=2>; rel="next"`, server.URL))
		fmt.Fprint(w, `[{"id": 1, "body": "first", "user": {"login": "alice"}}, {"id": 2, "body": "second", "user": {"login": "bob"}}]`)
	})
	mux.HandleFunc("GET /repos/acme/shop/issues/comments/7", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 7, "body": "old", "user": {"login": "github-actions[bot]"}}`)
	})
	mux.HandleFunc("POST /repos/acme/shop/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "new comment", body["body"])
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id": 8, "body": "new comment", "user": {"login": "github-actions[bot]"}}`)
	})
	mux.HandleFunc("PATCH /repos/acme/shop/issues/comments/7", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "updated", body["body"])
		fmt.Fprint(w, `{"id": 7, "body": "updated", "user": {"login": "github-actions[bot]"}}`)
	})

	client, err := NewGithubClient(context.Background(), "secret", "acme/shop", server.URL)
	require.NoError(t, err)

	t.Run("should list a page of comments and report the next page", func(t *testing.T) {
		comments, nextPage, err := client.ListCommentsPage(context.Background(), 42, 1)
		require.NoError(t, err)
		assert.Equal(t, 2, nextPage)
		assert.Equal(t, []Comment{
			{ID: 1, AuthorLogin: "alice", Body: "first"},
			{ID: 2, AuthorLogin: "bob", Body: "second"},
		}, comments)

		comments, nextPage, err = client.ListCommentsPage(context.Background(), 42, 2)
		require.NoError(t, err)
		assert.Equal(t, 0, nextPage)
		assert.Equal(t, []Comment{{ID: 3, AuthorLogin: "github-actions[bot]", Body: "third"}}, comments)
	})

	t.Run("should get a comment", func(t *testing.T) {
		comment, err := client.GetComment(context.Background(), 42, 7)
		require.NoError(t, err)
		assert.Equal(t, "old", comment.Body)
	})

	t.Run("should create a comment", func(t *testing.T) {
		comment, err := client.CreateComment(context.Background(), 42, "new comment")
		require.NoError(t, err)
		assert.Equal(t, int64(8), comment.ID)
	})

	t.Run("should update a comment", func(t *testing.T) {
		comment, err := client.UpdateComment(context.Background(), 42, 7, "updated")
		require.NoError(t, err)
		assert.Equal(t, "updated", comment.Body)
	})

	t.Run("should find the newest bot comment across pages", func(t *testing.T) {
		comment, err := NewCommenter(client).FindExisting(context.Background(), 42, "github-actions[bot]", "third", DirectionLast)
		require.NoError(t, err)
		require.NotNil(t, comment)
		assert.Equal(t, int64(3), comment.ID)
	})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	b, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(b, &body))
	return body
}
