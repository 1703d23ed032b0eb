package match

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

var trackingQueryKeys = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"ref":     {},
	"ref_src": {},
	"tag":     {},
	"th":      {},
	"psc":     {},
}

var catalogPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})(?:[/?]|$)`),
	regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})(?:[/?]|$)`),
}

// ExtractCatalogKey pulls the canonical item identifier out of a product
// URL when one is embedded (retailer /dp/ and /gp/product/ path forms, or
// an asin/item query parameter). The key is authoritative for matching:
// two candidates with the same key are the same product. Returns "" when
// no hard key is present.
func ExtractCatalogKey(rawURL string) string {
	canonical, _ := NormalizeURL(rawURL)
	if canonical == "" {
		return ""
	}

	for _, pattern := range catalogPathPatterns {
		if m := pattern.FindStringSubmatch(canonical); len(m) == 2 {
			return strings.ToUpper(m[1])
		}
	}

	parsed, err := url.Parse(canonical)
	if err != nil {
		return ""
	}
	query := parsed.Query()
	for _, key := range []string{"asin", "item", "item_id", "product_id"} {
		if value := strings.TrimSpace(query.Get(key)); value != "" {
			return strings.ToUpper(value)
		}
	}
	return ""
}

// NormalizeURL canonicalizes a product URL: lowercase scheme and host,
// default ports dropped, fragment removed, tracking and utm_* query keys
// stripped, remaining query keys sorted. Returns the canonical URL and the
// host, or empty strings for anything unparsable or non-absolute.
func NormalizeURL(raw string) (canonical string, host string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", ""
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", ""
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Hostname())
	if port := parsed.Port(); port != "" {
		defaultPort := (parsed.Scheme == "http" && port == "80") || (parsed.Scheme == "https" && port == "443")
		if !defaultPort {
			parsed.Host = parsed.Host + ":" + port
		}
	}

	parsed.Fragment = ""
	path := strings.TrimSpace(parsed.EscapedPath())
	if path == "" {
		path = "/"
	}
	path = strings.ReplaceAll(path, "//", "/")
	if strings.HasSuffix(path, "/") && path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	parsed.Path = path
	parsed.RawPath = ""

	q := parsed.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, ok := trackingQueryKeys[lower]; ok {
			q.Del(key)
		}
	}
	if len(q) > 0 {
		keys := make([]string, 0, len(q))
		for key := range q {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		reordered := url.Values{}
		for _, key := range keys {
			values := q[key]
			sort.Strings(values)
			for _, value := range values {
				reordered.Add(key, value)
			}
		}
		parsed.RawQuery = reordered.Encode()
	} else {
		parsed.RawQuery = ""
	}

	return parsed.String(), parsed.Host
}
