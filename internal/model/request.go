package model

// ResourceType identifies how a captured request was initiated by the page.
// The values follow the naming used by browser devtools network logs.
type ResourceType string

// Resource type values recorded by the sandbox collector.
const (
	ResourceDocument   ResourceType = "document"
	ResourceScript     ResourceType = "script"
	ResourceStylesheet ResourceType = "stylesheet"
	ResourceImage      ResourceType = "image"
	ResourceFrame      ResourceType = "frame"
	ResourceXHR        ResourceType = "xhr"
	ResourceFetch      ResourceType = "fetch"
	ResourceOther      ResourceType = "other"
)

// IsAPICall reports whether the resource type represents a programmatic
// API call (xhr or fetch) rather than a static asset load. Cross-origin
// API calls carry extra risk because they can exfiltrate page data.
func (t ResourceType) IsAPICall() bool {
	return t == ResourceXHR || t == ResourceFetch
}

// NetworkRequestRecord is one outbound request observed during a sandboxed
// page load. Records are produced by the sandbox collector and are immutable
// once handed to the classifier; the collector owns capture completeness.
type NetworkRequestRecord struct {
	// URL is the full request URL as observed.
	URL string `json:"url"`

	// Domain is the request's hostname, lowercased.
	Domain string `json:"domain"`

	// ResourceType describes how the page initiated the request.
	ResourceType ResourceType `json:"resource_type"`

	// Status is the HTTP response status code, or 0 if the response
	// was never observed (blocked, timed out, or capture ended first).
	Status int `json:"status,omitempty"`
}
