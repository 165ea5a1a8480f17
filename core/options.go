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
	"fmt"
	"log/slog"
	"net/http"

	"github.com/PioneerSquareLabs/moodle-sdk-go/core/transport"
	"golang.org/x/oauth2"
)

// ClientOption configures a MoodleClient at creation time.
type ClientOption func(*MoodleClient) error

// WithHTTPClient sets the http.Client used for all requests.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(mc *MoodleClient) error {
		if client == nil {
			return fmt.Errorf("http.Client cannot be nil")
		}
		mc.httpClient = client
		return nil
	}
}

// WithService overrides the default web-service name.
func WithService(name string) ClientOption {
	return func(mc *MoodleClient) error {
		if name == "" {
			return fmt.Errorf("service name cannot be empty")
		}
		mc.service = name
		return nil
	}
}

// WithToken installs a previously obtained web-service token, making the
// client usable without calling Authenticate.
func WithToken(token string) ClientOption {
	return func(mc *MoodleClient) error {
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}
		if mc.tokenSource != nil {
			return fmt.Errorf("token is already set")
		}
		mc.tokenSource = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		return nil
	}
}

// WithTokenSource installs a dynamic token source, resolved on every
// operation.
func WithTokenSource(source oauth2.TokenSource) ClientOption {
	return func(mc *MoodleClient) error {
		if source == nil {
			return fmt.Errorf("oauth2.TokenSource cannot be nil")
		}
		if mc.tokenSource != nil {
			return fmt.Errorf("token is already set")
		}
		mc.tokenSource = source
		return nil
	}
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(mc *MoodleClient) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		mc.logger = logger
		return nil
	}
}

// WithInsecureTLS disables TLS certificate verification. Intended for test
// sites with self-signed certificates only.
func WithInsecureTLS() ClientOption {
	return func(mc *MoodleClient) error {
		mc.insecureTLS = true
		return nil
	}
}

// WithTransport injects a custom wire-protocol implementation, replacing
// the default REST transport.
func WithTransport(tr transport.Transport) ClientOption {
	return func(mc *MoodleClient) error {
		if tr == nil {
			return fmt.Errorf("transport cannot be nil")
		}
		mc.transport = tr
		return nil
	}
}

// CallConfig holds the per-invocation settings of Call. The unexported
// flags record which settings were explicitly chosen; an unchosen setting
// stays off the wire so the server-side default applies.
type CallConfig struct {
	Method      transport.Method
	RawText     bool
	FileURLs    bool
	TextFilters bool

	methodSet      bool
	rawTextSet     bool
	fileURLsSet    bool
	textFiltersSet bool
}

// CallOption configures a single Call invocation.
type CallOption func(*CallConfig) error

// WithMethod selects the HTTP method for the invocation. Only GET and POST
// are supported.
func WithMethod(method transport.Method) CallOption {
	return func(cfg *CallConfig) error {
		if method != transport.MethodGet && method != transport.MethodPost {
			return &InvocationError{Message: fmt.Sprintf("unsupported method %q", method)}
		}
		if cfg.methodSet {
			return fmt.Errorf("method is already set")
		}
		cfg.Method = method
		cfg.methodSet = true
		return nil
	}
}

// WithPost is shorthand for WithMethod(MethodPost).
func WithPost() CallOption {
	return WithMethod(transport.MethodPost)
}

// WithRawText controls the moodlewssettingraw setting.
func WithRawText(raw bool) CallOption {
	return func(cfg *CallConfig) error {
		if cfg.rawTextSet {
			return fmt.Errorf("raw text setting is already set")
		}
		cfg.RawText = raw
		cfg.rawTextSet = true
		return nil
	}
}

// WithResolveFileURLs controls the moodlewssettingfileurl setting.
func WithResolveFileURLs(resolve bool) CallOption {
	return func(cfg *CallConfig) error {
		if cfg.fileURLsSet {
			return fmt.Errorf("file URL setting is already set")
		}
		cfg.FileURLs = resolve
		cfg.fileURLsSet = true
		return nil
	}
}

// WithTextFilters controls the moodlewssettingfilter setting.
func WithTextFilters(filter bool) CallOption {
	return func(cfg *CallConfig) error {
		if cfg.textFiltersSet {
			return fmt.Errorf("text filter setting is already set")
		}
		cfg.TextFilters = filter
		cfg.textFiltersSet = true
		return nil
	}
}

// DownloadConfig holds the per-invocation settings of Download.
type DownloadConfig struct {
	Preview string
	Offline bool

	previewSet bool
	offlineSet bool
}

// DownloadOption configures a single Download invocation.
type DownloadOption func(*DownloadConfig) error

// WithPreview requests a preview variant of the file. The value is passed
// through to the server unmodified.
func WithPreview(preview string) DownloadOption {
	return func(cfg *DownloadConfig) error {
		if cfg.previewSet {
			return fmt.Errorf("preview is already set")
		}
		cfg.Preview = preview
		cfg.previewSet = true
		return nil
	}
}

// WithOffline marks the download for offline usage.
func WithOffline() DownloadOption {
	return func(cfg *DownloadConfig) error {
		if cfg.offlineSet {
			return fmt.Errorf("offline is already set")
		}
		cfg.Offline = true
		cfg.offlineSet = true
		return nil
	}
}

// UploadConfig holds the per-invocation settings of Upload.
type UploadConfig struct {
	TargetPath string
	ItemID     int64

	targetPathSet bool
	itemIDSet     bool
}

// UploadOption configures a single Upload invocation.
type UploadOption func(*UploadConfig) error

// WithTargetPath sets the destination path inside the draft area.
func WithTargetPath(path string) UploadOption {
	return func(cfg *UploadConfig) error {
		if cfg.targetPathSet {
			return fmt.Errorf("target path is already set")
		}
		cfg.TargetPath = path
		cfg.targetPathSet = true
		return nil
	}
}

// WithItemID targets an existing draft area. Values <= 0 are treated as
// absent and make the server allocate a new area.
func WithItemID(itemID int64) UploadOption {
	return func(cfg *UploadConfig) error {
		if cfg.itemIDSet {
			return fmt.Errorf("item id is already set")
		}
		cfg.ItemID = itemID
		cfg.itemIDSet = true
		return nil
	}
}
