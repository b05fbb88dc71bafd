package crawler

import (
	"iter"
	"net/url"
	"strings"

	"github.com/nao1215/ruthless/internal/model"
)

// childLinks resolves hrefs against base and returns the unique crawlable
// absolute URLs in first-seen order. Fragments are removed and anything that
// is not http or https (mailto, javascript, tel, data, ...) is dropped.
func childLinks(base *url.URL, hrefs iter.Seq[string]) []string {
	seen := make(map[string]struct{})
	var links []string

	for href := range hrefs {
		link, ok := normalizeLink(base, href)
		if !ok {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	return links
}

// normalizeLink resolves one href and reports whether it is crawlable.
func normalizeLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		// Decoding "%25" leaves a bare '%', which url.Parse rejects.
		if ref, err = url.Parse(escapeStrayPercent(href)); err != nil {
			return "", false
		}
	}

	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host == "" {
		return "", false
	}

	resolved.Fragment = ""
	resolved.RawFragment = ""

	return resolved.String(), true
}

// escapeStrayPercent rewrites every '%' that does not start a "%XX" escape
// as "%25".
func escapeStrayPercent(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			if _, ok := unhexAt(s, i); !ok {
				b.WriteString("%25")
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

// linkDistance returns the depth increment from parent to child: small for
// links that stay on the same host, large for cross-host links.
func linkDistance(parent *url.URL, child string) int {
	u, err := url.Parse(child)
	if err != nil {
		return model.CrossHostDistance
	}
	if strings.EqualFold(u.Hostname(), parent.Hostname()) {
		return model.SameHostDistance
	}
	return model.CrossHostDistance
}
