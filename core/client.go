// Copyright 2025 Pioneer Square Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PioneerSquareLabs/moodle-sdk-go/core/transport"
	"github.com/PioneerSquareLabs/moodle-sdk-go/core/transport/resttransport"
	"golang.org/x/oauth2"
)

// DefaultService is the web-service name used when none is configured.
// It is the service every stock Moodle site enables for mobile clients.
const DefaultService = "moodle_mobile_app"

// MoodleClient is the synchronous interface to one Moodle site's web
// services. It is immutable after construction except for the token
// source, which Authenticate installs exactly once; the caller sequences
// authentication before issuing concurrent operations.
type MoodleClient struct {
	baseURL     string
	service     string
	httpClient  *http.Client
	transport   transport.Transport
	tokenSource oauth2.TokenSource
	logger      *slog.Logger
	insecureTLS bool
}

// NewMoodleClient creates a client rooted at the site's base URL.
func NewMoodleClient(url string, opts ...ClientOption) (*MoodleClient, error) {
	if url == "" {
		return nil, &ConfigError{Message: "endpoint root URL is required"}
	}

	mc := &MoodleClient{
		baseURL:    strings.TrimRight(url, "/"),
		service:    DefaultService,
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		if opt == nil {
			return nil, fmt.Errorf("NewMoodleClient: received a nil ClientOption")
		}
		if err := opt(mc); err != nil {
			return nil, err
		}
	}

	if mc.insecureTLS {
		mc.httpClient = insecureClient(mc.httpClient)
	}
	if mc.transport == nil {
		mc.transport = resttransport.New(mc.baseURL, mc.httpClient, mc.logger)
	}

	return mc, nil
}

// insecureClient returns a copy of client whose transport skips TLS
// certificate verification, preserving any other transport settings.
func insecureClient(client *http.Client) *http.Client {
	tr, ok := client.Transport.(*http.Transport)
	if ok {
		tr = tr.Clone()
	} else {
		tr = http.DefaultTransport.(*http.Transport).Clone()
	}
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.InsecureSkipVerify = true

	clone := *client
	clone.Transport = tr
	return &clone
}

// Close closes the underlying client session's idle connections.
func (mc *MoodleClient) Close() {
	if tr, ok := mc.httpClient.Transport.(*http.Transport); ok {
		tr.CloseIdleConnections()
	}
}

// BaseURL returns the configured endpoint root.
func (mc *MoodleClient) BaseURL() string { return mc.baseURL }

// Service returns the configured web-service name.
func (mc *MoodleClient) Service() string { return mc.service }

// Authenticated reports whether a token source is installed.
func (mc *MoodleClient) Authenticated() bool { return mc.tokenSource != nil }

// Token resolves the current web-service token.
func (mc *MoodleClient) Token() (string, error) {
	return mc.token()
}

func (mc *MoodleClient) token() (string, error) {
	if mc.tokenSource == nil {
		return "", &InvocationError{Message: "client is not authenticated"}
	}
	tok, err := mc.tokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to resolve web-service token: %w", err)
	}
	return tok.AccessToken, nil
}

// Authenticate exchanges the credentials for a web-service token and
// installs it. Calling it again simply re-authenticates and replaces the
// token; the caller must not do so concurrently with other operations.
func (mc *MoodleClient) Authenticate(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return &ConfigError{Message: "username and password are required"}
	}

	token, err := mc.transport.Login(ctx, mc.service, username, password)
	if err != nil {
		return err
	}

	mc.tokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	mc.logger.InfoContext(ctx, "authenticated", "service", mc.service, "username", username)
	return nil
}

// Call invokes the named web-service function with the given arguments and
// returns the decoded JSON result. The result shape is defined by the
// remote function; service-level errors are not classified here, use
// AsRemoteError on the result to check for them.
func (mc *MoodleClient) Call(ctx context.Context, function string, args map[string]any, opts ...CallOption) (any, error) {
	if function == "" {
		return nil, &InvocationError{Message: "missing function name"}
	}

	cfg := &CallConfig{Method: transport.MethodGet}
	for _, opt := range opts {
		if opt == nil {
			return nil, fmt.Errorf("Call: received a nil CallOption")
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	token, err := mc.token()
	if err != nil {
		return nil, err
	}

	return mc.transport.Call(ctx, token, transport.CallRequest{
		Function:       function,
		Args:           args,
		Method:         cfg.Method,
		RawText:        cfg.RawText,
		RawTextSet:     cfg.rawTextSet,
		FileURLs:       cfg.FileURLs,
		FileURLsSet:    cfg.fileURLsSet,
		TextFilters:    cfg.TextFilters,
		TextFiltersSet: cfg.textFiltersSet,
	})
}

// Download fetches one file served through the web-service file endpoint.
func (mc *MoodleClient) Download(ctx context.Context, filePath string, opts ...DownloadOption) (*DownloadResult, error) {
	if filePath == "" {
		return nil, &InvocationError{Message: "missing file path"}
	}

	cfg := &DownloadConfig{}
	for _, opt := range opts {
		if opt == nil {
			return nil, fmt.Errorf("Download: received a nil DownloadOption")
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	token, err := mc.token()
	if err != nil {
		return nil, err
	}

	return mc.transport.Download(ctx, token, transport.DownloadRequest{
		FilePath: filePath,
		Preview:  cfg.Preview,
		Offline:  cfg.Offline,
	})
}

// Upload sends files to a draft area and returns the server's descriptors
// for them, in order. Without WithItemID the server allocates a new area.
func (mc *MoodleClient) Upload(ctx context.Context, files []File, opts ...UploadOption) ([]UploadedFile, error) {
	if len(files) == 0 {
		return nil, &InvocationError{Message: "missing files"}
	}

	cfg := &UploadConfig{}
	for _, opt := range opts {
		if opt == nil {
			return nil, fmt.Errorf("Upload: received a nil UploadOption")
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	token, err := mc.token()
	if err != nil {
		return nil, err
	}

	return mc.transport.Upload(ctx, token, transport.UploadRequest{
		Files:      files,
		TargetPath: cfg.TargetPath,
		ItemID:     cfg.ItemID,
	})
}
