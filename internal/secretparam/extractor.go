// Package secretparam reads a one-time secret out of a URL fragment and
// strips it from the visible URL.
package secretparam

import (
	"net/url"
	"strings"
	"sync"
)

// AdminTokenParam is the fragment parameter carrying the admin bootstrap token.
const AdminTokenParam = "caffeineAdminToken"

// History rewrites the visible URL without adding a history entry.
type History interface {
	ReplaceState(u *url.URL)
}

// HistoryFunc adapts a function to History.
type HistoryFunc func(u *url.URL)

func (f HistoryFunc) ReplaceState(u *url.URL) { f(u) }

// Extractor pulls a named parameter out of a URL fragment exactly once.
type Extractor struct {
	name string

	once  sync.Once
	value string
	found bool
}

// NewExtractor returns an Extractor for the fragment parameter name.
func NewExtractor(name string) *Extractor {
	return &Extractor{name: name}
}

// Init inspects u's fragment. On a hit it returns the value, removes the
// parameter from the fragment and calls h.ReplaceState with the cleaned URL.
// Only the first call does any work; later calls return the first result.
// u itself is never modified.
func (e *Extractor) Init(u *url.URL, h History) (string, bool) {
	e.once.Do(func() {
		if u == nil {
			return
		}
		value, rest, ok := extract(u.EscapedFragment(), e.name)
		if !ok {
			return
		}
		e.value, e.found = value, true

		cleaned := *u
		cleaned.RawFragment = rest
		if frag, err := url.PathUnescape(rest); err == nil {
			cleaned.Fragment = frag
		} else {
			cleaned.Fragment, cleaned.RawFragment = rest, ""
		}
		if h != nil {
			h.ReplaceState(&cleaned)
		}
	})
	return e.value, e.found
}

// Value returns the extracted secret, if Init found one.
func (e *Extractor) Value() (string, bool) {
	return e.value, e.found
}

// extract finds name in an escaped, &-joined fragment. It returns the
// unescaped value and the escaped fragment with every pair for name removed. Malformed pairs for name
// (no '=', empty value, bad escape) count as absent.
func extract(fragment, name string) (value, rest string, ok bool) {
	fragment = strings.TrimPrefix(fragment, "#")
	if fragment == "" || name == "" {
		return "", fragment, false
	}

	var kept []string
	for _, pair := range strings.Split(fragment, "&") {
		k, v, hasEq := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil || key != name {
			if pair != "" {
				kept = append(kept, pair)
			}
			continue
		}
		if ok || !hasEq {
			continue
		}
		val, err := url.QueryUnescape(v)
		if err != nil || val == "" {
			continue
		}
		value, ok = val, true
	}
	if !ok {
		return "", fragment, false
	}
	return value, strings.Join(kept, "&"), true
}
