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

// Package resttransport implements the Moodle REST web-service protocol:
// form-encoded login, GET/POST function invocation against server.php,
// pluginfile download and multipart draft-area upload.
package resttransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PioneerSquareLabs/moodle-sdk-go/core/transport"
	"github.com/google/uuid"
)

const (
	loginPath      = "login/token.php"
	serverPath     = "webservice/rest/server.php"
	pluginFilePath = "webservice/pluginfile.php"
	uploadPath     = "webservice/upload.php"

	restFormat = "json"
)

type RestTransport struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// Ensure that RestTransport implements the Transport interface.
var _ transport.Transport = &RestTransport{}

// New creates a REST transport rooted at baseURL. A nil client falls back
// to a default http.Client; a nil logger discards.
func New(baseURL string, client *http.Client, logger *slog.Logger) *RestTransport {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RestTransport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
	}
}

func (t *RestTransport) BaseURL() string { return t.baseURL }

func (t *RestTransport) endpoint(path string) string {
	return t.baseURL + "/" + path
}

// do executes one round trip, logs it, and returns the body. Non-2xx
// statuses become errors carrying the body for debugging, matching the
// remote service's habit of putting the explanation there.
func (t *RestTransport) do(ctx context.Context, req *http.Request) ([]byte, string, error) {
	id := uuid.NewString()
	t.logger.DebugContext(ctx, "moodle request",
		"id", id, "method", req.Method, "url", req.URL.Path)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request to %s failed: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}

	t.logger.DebugContext(ctx, "moodle response",
		"id", id, "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("server returned non-OK status: %d %s, body: %s",
			resp.StatusCode, resp.Status, string(body))
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (t *RestTransport) warnPlainHTTP(ctx context.Context) {
	if !strings.HasPrefix(t.baseURL, "https://") {
		t.logger.WarnContext(ctx,
			"sending credentials over plain HTTP; use HTTPS for secure communication")
	}
}

// Login exchanges credentials for a web-service token. The endpoint
// answers 200 for both outcomes, with either {"token": ...} or
// {"error": ...} in the body.
func (t *RestTransport) Login(ctx context.Context, service, username, password string) (string, error) {
	t.warnPlainHTTP(ctx)

	form := url.Values{}
	form.Set("service", service)
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, "POST", t.endpoint(loginPath),
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, _, err := t.do(ctx, req)
	if err != nil {
		return "", err
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", &transport.AuthError{Message: "unexpected response"}
	}
	if token, ok := payload["token"].(string); ok && token != "" {
		return token, nil
	}
	if msg, ok := payload["error"].(string); ok {
		return "", &transport.AuthError{Message: msg}
	}
	return "", &transport.AuthError{Message: "unexpected response"}
}

// Call invokes a web-service function. All arguments, the token and the
// response-format marker travel in the query string for GET and in a
// form-encoded body for POST.
func (t *RestTransport) Call(ctx context.Context, token string, creq transport.CallRequest) (any, error) {
	vals := url.Values{}
	encodeArgs(vals, creq.Args)
	vals.Set("wstoken", token)
	vals.Set("wsfunction", creq.Function)
	vals.Set("moodlewsrestformat", restFormat)
	if creq.RawTextSet {
		vals.Set("moodlewssettingraw", strconv.FormatBool(creq.RawText))
	}
	if creq.FileURLsSet {
		vals.Set("moodlewssettingfileurl", strconv.FormatBool(creq.FileURLs))
	}
	if creq.TextFiltersSet {
		vals.Set("moodlewssettingfilter", strconv.FormatBool(creq.TextFilters))
	}

	var req *http.Request
	var err error
	switch creq.Method {
	case transport.MethodGet, "":
		req, err = http.NewRequestWithContext(ctx, "GET",
			t.endpoint(serverPath)+"?"+vals.Encode(), nil)
	case transport.MethodPost:
		req, err = http.NewRequestWithContext(ctx, "POST",
			t.endpoint(serverPath), strings.NewReader(vals.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	default:
		return nil, &transport.InvocationError{
			Message: fmt.Sprintf("unsupported method %q", creq.Method),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request for function '%s': %w", creq.Function, err)
	}

	t.warnPlainHTTP(ctx)

	body, _, err := t.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call to function '%s' failed: %w", creq.Function, err)
	}

	// The payload shape is defined by the invoked function; service-level
	// errors also arrive here as ordinary JSON and are left for the caller
	// to inspect.
	var result any
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response for function '%s': %w", creq.Function, err)
	}
	return result, nil
}

// Download fetches a file via pluginfile.php. The endpoint serves raw file
// bytes on success but a JSON document on failure, so the parsing mode is
// decided by the response Content-Type.
func (t *RestTransport) Download(ctx context.Context, token string, dreq transport.DownloadRequest) (*transport.DownloadResult, error) {
	vals := url.Values{}
	vals.Set("token", token)
	vals.Set("file", dreq.FilePath)
	if dreq.Preview != "" {
		vals.Set("preview", dreq.Preview)
	}
	if dreq.Offline {
		vals.Set("offline", "1")
	}

	req, err := http.NewRequestWithContext(ctx, "GET",
		t.endpoint(pluginFilePath)+"?"+vals.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	body, contentType, err := t.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("download of '%s' failed: %w", dreq.FilePath, err)
	}

	result := &transport.DownloadResult{Body: body, ContentType: contentType}
	if isJSON(contentType) {
		var payload any
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("failed to decode JSON download response: %w", err)
		}
		if remote, ok := transport.AsRemoteError(payload); ok {
			return nil, remote
		}
		result.JSON = payload
	}
	return result, nil
}

// Upload sends files to a draft area via upload.php. The token travels as
// a query parameter; everything else is multipart form data.
func (t *RestTransport) Upload(ctx context.Context, token string, ureq transport.UploadRequest) ([]transport.UploadedFile, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if ureq.TargetPath != "" {
		if err := w.WriteField("filepath", ureq.TargetPath); err != nil {
			return nil, fmt.Errorf("failed to encode upload form: %w", err)
		}
	}
	if ureq.ItemID > 0 {
		if err := w.WriteField("itemid", strconv.FormatInt(ureq.ItemID, 10)); err != nil {
			return nil, fmt.Errorf("failed to encode upload form: %w", err)
		}
	}
	for i, f := range ureq.Files {
		part, err := w.CreateFormFile(fmt.Sprintf("file_%d", i), f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode file '%s': %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Body); err != nil {
			return nil, fmt.Errorf("failed to read file '%s': %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	uploadURL := t.endpoint(uploadPath) + "?token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, "POST", uploadURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	body, _, err := t.do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	// Success is a JSON array of file descriptors; failures come back as a
	// JSON object carrying the error.
	var files []transport.UploadedFile
	if err := json.Unmarshal(body, &files); err == nil {
		return files, nil
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err == nil {
		if remote, ok := transport.AsRemoteError(payload); ok {
			return nil, remote
		}
	}
	return nil, fmt.Errorf("unexpected upload response: %s", string(body))
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
