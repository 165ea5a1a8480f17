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

package transport

import "fmt"

// AuthError reports a rejected or malformed login exchange. Message holds
// the remote error text when the server supplied one.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("moodle: authentication failed: %s", e.Message)
}

// InvocationError reports an invalid invocation detected before any network
// I/O: a missing required parameter or an unsupported HTTP method.
type InvocationError struct {
	Message string
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("moodle: invalid invocation: %s", e.Message)
}

// RemoteError is a service-level error encoded in a JSON response body.
// The web-service endpoint reports failures this way with a 200 status, so
// Call never raises it on its own; use AsRemoteError on a result to check.
// Download and Upload do raise it, since for those endpoints a JSON error
// payload is unambiguous.
type RemoteError struct {
	Exception string
	ErrorCode string
	Message   string
}

func (e *RemoteError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("moodle: remote error %s: %s", e.ErrorCode, e.Message)
	}
	return fmt.Sprintf("moodle: remote error: %s", e.Message)
}

// AsRemoteError inspects a decoded web-service result for Moodle's error
// shape ({"exception": ..., "errorcode": ..., "message": ...} or
// {"error": ...}). It returns the error and true when the payload encodes
// one.
func AsRemoteError(result any) (*RemoteError, bool) {
	obj, ok := result.(map[string]any)
	if !ok {
		return nil, false
	}

	str := func(key string) string {
		s, _ := obj[key].(string)
		return s
	}

	if _, ok := obj["exception"]; ok {
		return &RemoteError{
			Exception: str("exception"),
			ErrorCode: str("errorcode"),
			Message:   str("message"),
		}, true
	}
	if msg, ok := obj["error"].(string); ok {
		return &RemoteError{
			ErrorCode: str("errorcode"),
			Message:   msg,
		}, true
	}
	return nil, false
}
