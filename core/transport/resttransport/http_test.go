// Copyright 2026 Pioneer Square Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resttransport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PioneerSquareLabs/moodle-sdk-go/core/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, handler http.HandlerFunc) (*RestTransport, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL, server.Client(), nil), server
}

func TestNew(t *testing.T) {
	tr := New("https://school.example.com/", nil, nil)
	assert.Equal(t, "https://school.example.com", tr.BaseURL())
	assert.NotNil(t, tr.httpClient)
	assert.NotNil(t, tr.logger)
}

func TestLogin(t *testing.T) {
	t.Run("returns the token", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "/login/token.php", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "moodle_mobile_app", r.PostForm.Get("service"))
			assert.Equal(t, "student", r.PostForm.Get("username"))
			assert.Equal(t, "s3cret", r.PostForm.Get("password"))
			fmt.Fprint(w, `{"token": "abc123"}`)
		})

		token, err := tr.Login(context.Background(), "moodle_mobile_app", "student", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "abc123", token)
	})

	t.Run("maps the remote error to AuthError", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error": "Invalid login, please try again"}`)
		})

		_, err := tr.Login(context.Background(), "moodle_mobile_app", "student", "nope")
		var authErr *transport.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "Invalid login, please try again", authErr.Message)
	})

	t.Run("rejects responses with neither token nor error", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"upgrade": "pending"}`)
		})

		_, err := tr.Login(context.Background(), "moodle_mobile_app", "student", "s3cret")
		var authErr *transport.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, "unexpected response", authErr.Message)
	})

	t.Run("fails on a non-OK status", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
		})

		_, err := tr.Login(context.Background(), "moodle_mobile_app", "student", "s3cret")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "non-OK status: 503")
		var authErr *transport.AuthError
		assert.False(t, errors.As(err, &authErr))
	})
}

func TestCall(t *testing.T) {
	t.Run("GET carries all fields in the query string", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "/webservice/rest/server.php", r.URL.Path)
			q := r.URL.Query()
			assert.Equal(t, "tok", q.Get("wstoken"))
			assert.Equal(t, "core_user_get_users", q.Get("wsfunction"))
			assert.Equal(t, "json", q.Get("moodlewsrestformat"))
			assert.Equal(t, "email", q.Get("criteria[0][key]"))
			assert.Equal(t, "jamie@example.com", q.Get("criteria[0][value]"))
			fmt.Fprint(w, `{"users": []}`)
		})

		result, err := tr.Call(context.Background(), "tok", transport.CallRequest{
			Function: "core_user_get_users",
			Method:   transport.MethodGet,
			Args: map[string]any{
				"criteria": []any{map[string]any{"key": "email", "value": "jamie@example.com"}},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"users": []any{}}, result)
	})

	t.Run("POST carries all fields in a form body", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "POST", r.Method)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "tok", r.PostForm.Get("wstoken"))
			assert.Equal(t, "core_course_create_courses", r.PostForm.Get("wsfunction"))
			assert.Empty(t, r.URL.RawQuery)
			fmt.Fprint(w, `null`)
		})

		_, err := tr.Call(context.Background(), "tok", transport.CallRequest{
			Function: "core_course_create_courses",
			Method:   transport.MethodPost,
		})
		require.NoError(t, err)
	})

	t.Run("empty method defaults to GET", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			fmt.Fprint(w, `null`)
		})

		_, err := tr.Call(context.Background(), "tok", transport.CallRequest{
			Function: "core_webservice_get_site_info",
		})
		require.NoError(t, err)
	})

	t.Run("settings go on the wire only when set", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "true", q.Get("moodlewssettingfileurl"))
			assert.NotContains(t, q, "moodlewssettingraw")
			assert.NotContains(t, q, "moodlewssettingfilter")
			fmt.Fprint(w, `null`)
		})

		_, err := tr.Call(context.Background(), "tok", transport.CallRequest{
			Function:    "core_webservice_get_site_info",
			FileURLs:    true,
			FileURLsSet: true,
		})
		require.NoError(t, err)
	})

	t.Run("rejects unsupported methods before any I/O", func(t *testing.T) {
		requests := 0
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			requests++
		})

		_, err := tr.Call(context.Background(), "tok", transport.CallRequest{
			Function: "core_webservice_get_site_info",
			Method:   "PUT",
		})
		var invErr *transport.InvocationError
		require.ErrorAs(t, err, &invErr)
		assert.Contains(t, invErr.Message, "unsupported method")
		assert.Zero(t, requests)
	})

	t.Run("fails on undecodable bodies", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"broken":`)
		})

		_, err := tr.Call(context.Background(), "tok", transport.CallRequest{
			Function: "core_webservice_get_site_info",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode response")
	})
}

func TestDownload(t *testing.T) {
	t.Run("returns raw bytes with the content type", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/webservice/pluginfile.php", r.URL.Path)
			assert.Equal(t, "tok", r.URL.Query().Get("token"))
			assert.Equal(t, "/1/mod/file.bin", r.URL.Query().Get("file"))
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write([]byte{0x00, 0x01, 0x02})
		})

		res, err := tr.Download(context.Background(), "tok", transport.DownloadRequest{
			FilePath: "/1/mod/file.bin",
		})
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x01, 0x02}, res.Body)
		assert.Equal(t, "application/octet-stream", res.ContentType)
		assert.Nil(t, res.JSON)
	})

	t.Run("decodes JSON bodies and surfaces remote errors", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			fmt.Fprint(w, `{"exception": "moodle_exception", "errorcode": "invalidtoken", "message": "Invalid token"}`)
		})

		_, err := tr.Download(context.Background(), "tok", transport.DownloadRequest{
			FilePath: "/1/mod/file.bin",
		})
		var remote *transport.RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, "invalidtoken", remote.ErrorCode)
	})

	t.Run("keeps non-error JSON payloads", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"filename": "export.json"}`)
		})

		res, err := tr.Download(context.Background(), "tok", transport.DownloadRequest{
			FilePath: "/1/mod/export.json",
		})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"filename": "export.json"}, res.JSON)
	})

	t.Run("sends preview and offline only when requested", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			assert.Equal(t, "tinyicon", q.Get("preview"))
			assert.Equal(t, "1", q.Get("offline"))
			w.Write([]byte("x"))
		})

		_, err := tr.Download(context.Background(), "tok", transport.DownloadRequest{
			FilePath: "/1/mod/file.bin",
			Preview:  "tinyicon",
			Offline:  true,
		})
		require.NoError(t, err)
	})
}

func TestUpload(t *testing.T) {
	t.Run("posts multipart form data", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/webservice/upload.php", r.URL.Path)
			assert.Equal(t, "tok", r.URL.Query().Get("token"))
			assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, []string{"/notes/"}, r.MultipartForm.Value["filepath"])
			require.Len(t, r.MultipartForm.File["file_0"], 1)
			assert.Equal(t, "readme.md", r.MultipartForm.File["file_0"][0].Filename)
			fmt.Fprint(w, `[{"filename": "readme.md", "itemid": 7}]`)
		})

		files, err := tr.Upload(context.Background(), "tok", transport.UploadRequest{
			Files:      []transport.File{{Name: "readme.md", Body: strings.NewReader("# hi")}},
			TargetPath: "/notes/",
		})
		require.NoError(t, err)
		require.Len(t, files, 1)
		assert.Equal(t, "readme.md", files[0].FileName)
		assert.Equal(t, int64(7), files[0].ItemID)
	})

	t.Run("maps error objects to RemoteError", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"error": "Invalid token", "errorcode": "invalidtoken"}`)
		})

		_, err := tr.Upload(context.Background(), "tok", transport.UploadRequest{
			Files: []transport.File{{Name: "a.txt", Body: strings.NewReader("x")}},
		})
		var remote *transport.RemoteError
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, "Invalid token", remote.Message)
	})

	t.Run("rejects unexpected response shapes", func(t *testing.T) {
		tr, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `"just a string"`)
		})

		_, err := tr.Upload(context.Background(), "tok", transport.UploadRequest{
			Files: []transport.File{{Name: "a.txt", Body: strings.NewReader("x")}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected upload response")
	})
}

func TestIsJSON(t *testing.T) {
	assert.True(t, isJSON("application/json"))
	assert.True(t, isJSON("application/json; charset=utf-8"))
	assert.True(t, isJSON("application/problem+json"))
	assert.False(t, isJSON("text/html"))
	assert.False(t, isJSON("application/octet-stream"))
	assert.False(t, isJSON(""))
}
