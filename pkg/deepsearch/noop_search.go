// Copyright 2025 Kadir Pekel
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

package deepsearch

import "context"

// NoopEndpoint returns no URLs for any query. Concrete search-engine
// endpoints (a specific provider's API) are an external collaborator
// a deployment wires in; this is the safe default when none is
// configured, so a session with no external_search_query set never
// needs one.
type NoopEndpoint struct{}

func (NoopEndpoint) URLs(ctx context.Context, query string, maxResults int) ([]string, error) {
	return nil, nil
}

var _ Endpoint = NoopEndpoint{}
