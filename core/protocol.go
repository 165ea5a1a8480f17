// Copyright 2025 Pioneer Square Labs
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

package core

import "github.com/PioneerSquareLabs/moodle-sdk-go/core/transport"

// Method selects the HTTP method of a web-service invocation.
type Method = transport.Method

const (
	MethodGet  = transport.MethodGet
	MethodPost = transport.MethodPost
)

// File is one file to upload.
type File = transport.File

// UploadedFile describes one uploaded file, as reported by the server.
type UploadedFile = transport.UploadedFile

// DownloadResult is the outcome of a Download.
type DownloadResult = transport.DownloadResult

// AuthError reports a rejected or malformed login exchange.
type AuthError = transport.AuthError

// InvocationError reports an invalid invocation detected before any
// network I/O.
type InvocationError = transport.InvocationError

// RemoteError is a service-level error encoded in a JSON response body.
type RemoteError = transport.RemoteError

// AsRemoteError inspects a decoded web-service result for the remote
// error shape. Call never applies it automatically; callers decide.
func AsRemoteError(result any) (*RemoteError, bool) {
	return transport.AsRemoteError(result)
}
