// Package content validates and cleans untrusted block content: URLs, image
// sources, embed snippets and rich text.
package content

import (
	"net"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// AssetImagePrefix is the trusted directory for repository hosted images.
const AssetImagePrefix = "/assets/images/"

// NormalizeHTTPURL returns the canonical form of raw when it is an absolute
// http or https URL with a host. Equivalent inputs normalize identically.
func NormalizeHTTPURL(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Opaque != "" || u.Host == "" {
		return "", false
	}

	host, port := u.Hostname(), u.Port()
	if host == "" {
		return "", false
	}
	host = strings.ToLower(host)
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		// IPv6 literal
		host = "[" + host + "]"
		if port != "" {
			host += ":" + port
		}
		u.Host = host
	} else if port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else {
		u.Host = host
	}

	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}
	return u.String(), true
}

// NormalizeImageSource accepts a path under AssetImagePrefix (with or without
// the leading slash) or any URL NormalizeHTTPURL accepts.
func NormalizeImageSource(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	assetPath := trimmed
	if !strings.HasPrefix(assetPath, "/") {
		assetPath = "/" + assetPath
	}
	if strings.HasPrefix(assetPath, AssetImagePrefix) {
		if hasDotSegment(assetPath) || strings.Contains(assetPath, "\\") {
			return "", false
		}
		return assetPath, true
	}

	return NormalizeHTTPURL(trimmed)
}

func hasDotSegment(path string) bool {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == ".." || seg == "." {
			return true
		}
		if unescaped, err := url.PathUnescape(seg); err != nil || unescaped == ".." || unescaped == "." {
			return true
		}
	}
	return false
}

// ParseEmbedInput accepts either a bare URL or a pasted embed snippet. For a
// snippet only the src of the first iframe is used.
func ParseEmbedInput(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}

	if !strings.Contains(strings.ToLower(trimmed), "<iframe") {
		return NormalizeHTTPURL(trimmed)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed))
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Could not parse embed snippet")
		return "", false
	}

	src, ok := doc.Find("iframe").First().Attr("src")
	if !ok {
		return "", false
	}
	return NormalizeHTTPURL(src)
}
