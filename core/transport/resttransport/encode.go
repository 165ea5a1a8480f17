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
	"fmt"
	"net/url"
	"sort"
	"strconv"
)

// encodeArg flattens one argument value into vals under key, using the
// bracketed form the REST endpoint expects for structured values:
//
//	ids       []any{3, 4}          -> ids[0]=3, ids[1]=4
//	criteria  map{"key": "email"}  -> criteria[key]=email
//
// Nesting composes, e.g. criteria[0][key]=email. Scalars stringify as-is;
// nil values are skipped entirely so they never reach the wire as "nil".
func encodeArg(vals url.Values, key string, value any) {
	switch v := value.(type) {
	case nil:
	case string:
		vals.Set(key, v)
	case bool:
		vals.Set(key, strconv.FormatBool(v))
	case float64:
		vals.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
	case map[string]any:
		// Deterministic wire order keeps requests reproducible in tests
		// and logs.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			encodeArg(vals, fmt.Sprintf("%s[%s]", key, k), v[k])
		}
	case []any:
		for i, item := range v {
			encodeArg(vals, fmt.Sprintf("%s[%d]", key, i), item)
		}
	default:
		vals.Set(key, fmt.Sprint(v))
	}
}

// encodeArgs flattens a whole argument map into vals.
func encodeArgs(vals url.Values, args map[string]any) {
	for k, v := range args {
		encodeArg(vals, k, v)
	}
}
