package content_test

import (
	"testing"

	"sonicfeed/content"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHTTPURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		ok       bool
	}{
		{name: "https passthrough", raw: "https://example.com/x", expected: "https://example.com/x", ok: true},
		{name: "trims whitespace", raw: "  http://example.com/a?b=c#d \n", expected: "http://example.com/a?b=c#d", ok: true},
		{name: "adds root path", raw: "https://example.com", expected: "https://example.com/", ok: true},
		{name: "lowercases scheme and host", raw: "HTTPS://Example.COM/Path", expected: "https://example.com/Path", ok: true},
		{name: "drops default port", raw: "https://example.com:443/x", expected: "https://example.com/x", ok: true},
		{name: "keeps other ports", raw: "http://example.com:8080/x", expected: "http://example.com:8080/x", ok: true},
		{name: "ipv6 host", raw: "http://[::1]:80/", expected: "http://[::1]/", ok: true},
		{name: "javascript", raw: "javascript:alert(1)", ok: false},
		{name: "data uri", raw: "data:text/html;base64,PHNjcmlwdD4=", ok: false},
		{name: "ftp", raw: "ftp://example.com/file", ok: false},
		{name: "relative", raw: "/assets/images/a.png", ok: false},
		{name: "scheme relative", raw: "//example.com/x", ok: false},
		{name: "opaque", raw: "https:example.com", ok: false},
		{name: "empty", raw: "   ", ok: false},
		{name: "garbage", raw: "http://exa mple.com/", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := content.NormalizeHTTPURL(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizeHTTPURLIsIdempotent(t *testing.T) {
	for _, raw := range []string{
		"HTTP://Example.com:80",
		"https://user@example.com/a%20b?q=1&r=2",
		"https://example.com/ümlaut path",
	} {
		once, ok := content.NormalizeHTTPURL(raw)
		if !assert.True(t, ok, raw) {
			continue
		}
		twice, ok := content.NormalizeHTTPURL(once)
		assert.True(t, ok)
		assert.Equal(t, once, twice)
	}
}

func TestNormalizeImageSource(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		ok       bool
	}{
		{name: "asset path", raw: "/assets/images/cat.png", expected: "/assets/images/cat.png", ok: true},
		{name: "asset path without slash", raw: "assets/images/cat.png", expected: "/assets/images/cat.png", ok: true},
		{name: "remote image", raw: "https://cdn.example.com/cat.png", expected: "https://cdn.example.com/cat.png", ok: true},
		{name: "traversal", raw: "/assets/images/../../secret", ok: false},
		{name: "encoded traversal", raw: "/assets/images/%2e%2e/secret", ok: false},
		{name: "other directory", raw: "/assets/sounds/a.mp3", ok: false},
		{name: "javascript", raw: "javascript:alert(1)", ok: false},
		{name: "empty", raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := content.NormalizeImageSource(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseEmbedInput(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
		ok       bool
	}{
		{
			name:     "bare url",
			raw:      "https://www.youtube.com/embed/abc",
			expected: "https://www.youtube.com/embed/abc",
			ok:       true,
		},
		{
			name:     "provider snippet",
			raw:      `<iframe width="560" height="315" src="https://www.youtube.com/embed/abc?si=x" title="YouTube video player" allowfullscreen></iframe>`,
			expected: "https://www.youtube.com/embed/abc?si=x",
			ok:       true,
		},
		{
			name:     "uppercase tag with junk around",
			raw:      `<p>watch</p><IFRAME SRC="https://player.vimeo.com/video/1" onload="evil()"></IFRAME><script>x()</script>`,
			expected: "https://player.vimeo.com/video/1",
			ok:       true,
		},
		{
			name:     "first iframe wins",
			raw:      `<iframe src="https://a.example/"></iframe><iframe src="https://b.example/"></iframe>`,
			expected: "https://a.example/",
			ok:       true,
		},
		{name: "javascript src", raw: `<iframe src="javascript:alert(1)"></iframe>`, ok: false},
		{name: "iframe without src", raw: `<iframe srcdoc="<b>x</b>"></iframe>`, ok: false},
		{name: "not a url", raw: "hello world", ok: false},
		{name: "empty", raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := content.ParseEmbedInput(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}
