// Package gate decides what the Messages admin view shows and drives the
// admin provisioning actions offered from it.
package gate

import "fmt"

// Tri is a boolean that may not be known yet.
type Tri int

const (
	Unknown Tri = iota
	True
	False
)

// TriOf converts a known boolean.
func TriOf(b bool) Tri {
	if b {
		return True
	}
	return False
}

func (t Tri) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Inputs are the facts the gate resolves a render state from.
type Inputs struct {
	IsAuthenticated    bool
	AdminStatusFetched bool
	IsAdmin            Tri
	HasStoredToken     bool
	HasConfiguredToken bool
}

// State is the render state of the Messages view.
type State int

const (
	Checking State = iota
	Authorized
	StaleProvisioning
	Unauthorized
	LoginRequired
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authorized:
		return "authorized"
	case StaleProvisioning:
		return "stale_provisioning"
	case Unauthorized:
		return "unauthorized"
	case LoginRequired:
		return "login_required"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Resolve maps inputs to a render state. The first matching rule wins:
// a confirmed admin is always Authorized, a rejected caller still holding a
// token is StaleProvisioning, a rejected caller without one is Unauthorized,
// an anonymous caller must log in, and anything else is still Checking.
func Resolve(in Inputs) State {
	rejected := in.IsAuthenticated && in.AdminStatusFetched && in.IsAdmin == False
	switch {
	case in.IsAdmin == True:
		return Authorized
	case rejected && in.HasStoredToken:
		return StaleProvisioning
	case rejected:
		return Unauthorized
	case !in.IsAuthenticated:
		return LoginRequired
	default:
		return Checking
	}
}
