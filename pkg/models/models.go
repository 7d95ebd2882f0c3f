package models

import "time"

// RenderingType classifies how a page's data-bearing content becomes available.
type RenderingType string

const (
	// RenderingStatic marks pages whose content is present in the initial
	// HTML response without running any scripts.
	RenderingStatic RenderingType = "static"
	// RenderingClientOnly marks pages that need client-side script execution
	// before their content exists in the DOM.
	RenderingClientOnly RenderingType = "client-only"
)

// Valid reports whether t is one of the known rendering types.
func (t RenderingType) Valid() bool {
	return t == RenderingStatic || t == RenderingClientOnly
}

// Record is a single extracted data record as emitted by an extraction handler.
type Record map[string]any

// Request is one unit of crawl work, persisted in the request queue.
type Request struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	UniqueKey string    `json:"unique_key"`
	LoadedURL string    `json:"loaded_url,omitempty"`
	Retries   int       `json:"retries"`
	AddedAt   time.Time `json:"added_at"`
}

// ResolvedURL returns the post-redirect URL when navigation has recorded one,
// falling back to the originally enqueued URL.
func (r *Request) ResolvedURL() string {
	if r.LoadedURL != "" {
		return r.LoadedURL
	}
	return r.URL
}

// RequestState tracks a queued request through its lifecycle.
type RequestState string

const (
	StatePending    RequestState = "pending"
	StateInProgress RequestState = "in_progress"
	StateHandled    RequestState = "handled"
	StateFailed     RequestState = "failed"
)

// AddedRequest describes the outcome of offering one URL to the request queue.
type AddedRequest struct {
	ID             string `json:"id"`
	UniqueKey      string `json:"unique_key"`
	AlreadyPresent bool   `json:"already_present"`
}
