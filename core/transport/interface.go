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

// Package transport defines the wire-level contract between the Moodle
// client and a concrete protocol implementation.
package transport

import (
	"context"
	"io"
)

// Method is the HTTP method used for a web-service invocation.
type Method string

const (
	MethodGet  Method = "GET"
	MethodPost Method = "POST"
)

// CallRequest describes one web-service function invocation.
//
// The three setting fields mirror server-side defaults: a setting is only
// placed on the wire when its companion Set flag is true, so an unset field
// never overrides what the server would do on its own.
type CallRequest struct {
	Function string
	Args     map[string]any
	Method   Method

	RawText        bool
	RawTextSet     bool
	FileURLs       bool
	FileURLsSet    bool
	TextFilters    bool
	TextFiltersSet bool
}

// DownloadRequest describes a pluginfile fetch.
type DownloadRequest struct {
	// FilePath is the server-side path of the file, e.g.
	// "/context/component/filearea/itemid/name.ext".
	FilePath string
	// Preview, when non-empty, requests a preview variant and is passed
	// through unmodified.
	Preview string
	// Offline requests the offline-usage variant; sent as offline=1 only
	// when true.
	Offline bool
}

// DownloadResult is the outcome of a pluginfile fetch. Body always holds
// the raw bytes; JSON is the decoded payload when (and only when) the
// server answered with a JSON content type, which Moodle does for error
// responses.
type DownloadResult struct {
	Body        []byte
	ContentType string
	JSON        any
}

// File is one file to upload, read in full from Body.
type File struct {
	Name string
	Body io.Reader
}

// UploadRequest describes a draft-area upload.
type UploadRequest struct {
	Files []File
	// TargetPath, when non-empty, is sent as the filepath form field.
	TargetPath string
	// ItemID identifies an existing draft area. Values <= 0 are not sent,
	// which makes the server allocate a new one.
	ItemID int64
}

// UploadedFile is one entry of the JSON array the upload endpoint returns.
type UploadedFile struct {
	Component string `json:"component"`
	ContextID int64  `json:"contextid"`
	UserID    string `json:"userid"`
	FileArea  string `json:"filearea"`
	FileName  string `json:"filename"`
	FilePath  string `json:"filepath"`
	ItemID    int64  `json:"itemid"`
	License   string `json:"license"`
	Author    string `json:"author"`
	Source    string `json:"source"`
	URL       string `json:"url"`
}

// Transport performs the HTTP round trips of the Moodle web-service
// protocol. Implementations hold no mutable state and are safe for
// concurrent use.
type Transport interface {
	BaseURL() string

	// Login exchanges credentials for a web-service token.
	Login(ctx context.Context, service, username, password string) (string, error)

	// Call invokes a web-service function and returns the decoded JSON body.
	Call(ctx context.Context, token string, req CallRequest) (any, error)

	// Download fetches a file served through the web-service file endpoint.
	Download(ctx context.Context, token string, req DownloadRequest) (*DownloadResult, error)

	// Upload sends files to a draft area and returns the server's
	// descriptors in order.
	Upload(ctx context.Context, token string, req UploadRequest) ([]UploadedFile, error)
}
