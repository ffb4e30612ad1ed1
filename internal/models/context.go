/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"context"
	"time"
)

type requestContextKey struct{}

// Request sources
const (
	SourceHTTP      = "http"
	SourceCLI       = "cli"
	SourceScheduler = "scheduler"
	SourceInternal  = "internal"
)

// RequestContext carries caller details recorded alongside ledger writes.
type RequestContext struct {
	RequestId string
	Source    string
	ClientIP  string
}

// WithRequestContext attaches request details to a context.
func WithRequestContext(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey{}, rc)
}

// GetRequestContext retrieves request details from context, or nil if absent.
func GetRequestContext(ctx context.Context) *RequestContext {
	rc, _ := ctx.Value(requestContextKey{}).(*RequestContext)
	return rc
}

// SourceFromContext returns the request source, or "internal" when none was set.
func SourceFromContext(ctx context.Context) string {
	if rc := GetRequestContext(ctx); rc != nil && rc.Source != "" {
		return rc.Source
	}
	return SourceInternal
}

// Event is the payload published for downstream automation.
type Event struct {
	EventType string         `json:"eventType"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}
