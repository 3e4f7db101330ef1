package secretparam

import (
	"net/url"
	"strings"
	"testing"
)

type recordingHistory struct {
	calls []string
}

func (h *recordingHistory) ReplaceState(u *url.URL) {
	h.calls = append(h.calls, u.String())
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%q): %v", raw, err)
	}
	return u
}

func TestInitExtractsAndStrips(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		cleaned string
	}{
		{
			name:    "only param",
			raw:     "https://example.com/messages#caffeineAdminToken=abc123",
			want:    "abc123",
			cleaned: "https://example.com/messages",
		},
		{
			name:    "other params kept",
			raw:     "https://example.com/messages?tab=1#x=1&caffeineAdminToken=abc123&y=2",
			want:    "abc123",
			cleaned: "https://example.com/messages?tab=1#x=1&y=2",
		},
		{
			name:    "escaped value",
			raw:     "https://example.com/#caffeineAdminToken=a%2Bb%20c",
			want:    "a+b c",
			cleaned: "https://example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &recordingHistory{}
			e := NewExtractor(AdminTokenParam)
			got, ok := e.Init(mustParse(t, tt.raw), h)
			if !ok || got != tt.want {
				t.Fatalf("Init = %q, %v; want %q, true", got, ok, tt.want)
			}
			if len(h.calls) != 1 {
				t.Fatalf("ReplaceState called %d times, want 1", len(h.calls))
			}
			if h.calls[0] != tt.cleaned {
				t.Errorf("cleaned URL = %q, want %q", h.calls[0], tt.cleaned)
			}
			if strings.Contains(h.calls[0], tt.want) || strings.Contains(h.calls[0], AdminTokenParam) {
				t.Errorf("cleaned URL still carries the token: %q", h.calls[0])
			}
		})
	}
}

func TestInitAbsentOrMalformed(t *testing.T) {
	tests := []string{
		"https://example.com/messages",
		"https://example.com/messages#",
		"https://example.com/messages#other=1",
		"https://example.com/messages#caffeineAdminToken",
		"https://example.com/messages#caffeineAdminToken=",
		"https://example.com/messages#&&&",
		"https://example.com/messages#caffeineAdminTokenX=abc",
	}
	for _, raw := range tests {
		h := &recordingHistory{}
		e := NewExtractor(AdminTokenParam)
		if got, ok := e.Init(mustParse(t, raw), h); ok {
			t.Errorf("%s: Init = %q, true; want absent", raw, got)
		}
		if len(h.calls) != 0 {
			t.Errorf("%s: ReplaceState called on absent token", raw)
		}
	}
}

func TestInitRunsOnce(t *testing.T) {
	h := &recordingHistory{}
	e := NewExtractor(AdminTokenParam)

	first, ok := e.Init(mustParse(t, "https://example.com/#caffeineAdminToken=first"), h)
	if !ok || first != "first" {
		t.Fatalf("first Init = %q, %v", first, ok)
	}

	second, ok := e.Init(mustParse(t, "https://example.com/#caffeineAdminToken=second"), h)
	if !ok || second != "first" {
		t.Errorf("second Init = %q, %v; want first result", second, ok)
	}
	if len(h.calls) != 1 {
		t.Errorf("ReplaceState called %d times, want 1", len(h.calls))
	}

	if v, ok := e.Value(); !ok || v != "first" {
		t.Errorf("Value = %q, %v", v, ok)
	}
}

func TestInitLeavesInputUntouched(t *testing.T) {
	u := mustParse(t, "https://example.com/#caffeineAdminToken=abc")
	NewExtractor(AdminTokenParam).Init(u, HistoryFunc(func(*url.URL) {}))
	if u.Fragment != "caffeineAdminToken=abc" {
		t.Errorf("input URL mutated: %q", u.String())
	}
}

func TestInitNilHistoryAndURL(t *testing.T) {
	e := NewExtractor(AdminTokenParam)
	if v, ok := e.Init(mustParse(t, "https://example.com/#caffeineAdminToken=abc"), nil); !ok || v != "abc" {
		t.Errorf("Init with nil history = %q, %v", v, ok)
	}
	if _, ok := NewExtractor(AdminTokenParam).Init(nil, nil); ok {
		t.Error("Init(nil) reported a token")
	}
}

func TestHistoryFunc(t *testing.T) {
	var got string
	h := HistoryFunc(func(u *url.URL) { got = u.String() })
	h.ReplaceState(mustParse(t, "https://example.com/a"))
	if got != "https://example.com/a" {
		t.Errorf("HistoryFunc got %q", got)
	}
}

func TestExtractMalformedEscape(t *testing.T) {
	value, rest, ok := extract("a=1&caffeineAdminToken=%zz", AdminTokenParam)
	if ok {
		t.Fatalf("extract = %q, true; want absent", value)
	}
	if rest != "a=1&caffeineAdminToken=%zz" {
		t.Errorf("rest = %q, want fragment unchanged", rest)
	}
}

func TestExtractDuplicateKeepsFirst(t *testing.T) {
	value, rest, ok := extract("caffeineAdminToken=one&caffeineAdminToken=two&z=9", AdminTokenParam)
	if !ok || value != "one" {
		t.Fatalf("extract = %q, %v; want one", value, ok)
	}
	if rest != "z=9" {
		t.Errorf("rest = %q, want z=9", rest)
	}
}
