package gate

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
		want State
	}{
		{"admin wins over everything", Inputs{IsAdmin: True}, Authorized},
		{"confirmed admin while anonymous", Inputs{IsAuthenticated: false, AdminStatusFetched: true, IsAdmin: True, HasStoredToken: true}, Authorized},
		{"admin with token", Inputs{IsAuthenticated: true, AdminStatusFetched: true, IsAdmin: True, HasStoredToken: true}, Authorized},
		{"stale provisioning", Inputs{IsAuthenticated: true, AdminStatusFetched: true, IsAdmin: False, HasStoredToken: true}, StaleProvisioning},
		{"stale with configured token", Inputs{IsAuthenticated: true, AdminStatusFetched: true, IsAdmin: False, HasStoredToken: true, HasConfiguredToken: true}, StaleProvisioning},
		{"unauthorized", Inputs{IsAuthenticated: true, AdminStatusFetched: true, IsAdmin: False}, Unauthorized},
		{"unauthorized with configured token", Inputs{IsAuthenticated: true, AdminStatusFetched: true, IsAdmin: False, HasConfiguredToken: true}, Unauthorized},
		{"checking before fetch", Inputs{IsAuthenticated: true, IsAdmin: Unknown, HasStoredToken: true}, Checking},
		{"checking with unknown status after fetch", Inputs{IsAuthenticated: true, AdminStatusFetched: true, IsAdmin: Unknown}, Checking},
		{"false but not yet fetched", Inputs{IsAuthenticated: true, IsAdmin: False}, Checking},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.in); got != tt.want {
				t.Errorf("Resolve(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

// A confirmed admin status outranks authentication, so anonymous callers are
// LoginRequired for every input except IsAdmin == True. Page never reports
// True for a caller whose status was fetched under another principal.
func TestResolveAnonymousAlwaysLoginRequired(t *testing.T) {
	for _, fetched := range []bool{false, true} {
		for _, admin := range []Tri{Unknown, False} {
			for _, stored := range []bool{false, true} {
				for _, configured := range []bool{false, true} {
					in := Inputs{
						AdminStatusFetched: fetched,
						IsAdmin:            admin,
						HasStoredToken:     stored,
						HasConfiguredToken: configured,
					}
					if got := Resolve(in); got != LoginRequired {
						t.Errorf("Resolve(%+v) = %v, want login_required", in, got)
					}
				}
			}
		}
	}
}

func TestTri(t *testing.T) {
	if TriOf(true) != True || TriOf(false) != False {
		t.Error("TriOf mismatch")
	}
	if Unknown.String() != "unknown" || True.String() != "true" || False.String() != "false" {
		t.Error("Tri strings mismatch")
	}
}

func TestStateString(t *testing.T) {
	want := map[State]string{
		Checking:          "checking",
		Authorized:        "authorized",
		StaleProvisioning: "stale_provisioning",
		Unauthorized:      "unauthorized",
		LoginRequired:     "login_required",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), w)
		}
	}
}
