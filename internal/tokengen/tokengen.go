// Package tokengen generates admin bootstrap tokens and the URLs that carry
// them.
package tokengen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/foliodev/folio/internal/secretparam"
	"github.com/foliodev/folio/internal/service"
)

// TokenBytes is the amount of randomness in a generated token.
const TokenBytes = 32

// MessagesPath is the client route the bootstrap URL points at.
const MessagesPath = "/messages"

// Generate returns a random hex token of TokenBytes bytes.
func Generate() (string, error) {
	return generateFrom(rand.Reader)
}

func generateFrom(r io.Reader) (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("generate admin token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// BootstrapURL returns the messages page URL under base with token in the
// fragment. Fragments never reach the server.
func BootstrapURL(base, token string) (string, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(base), "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("base url %q must be absolute", base)
	}
	u.Path = strings.TrimRight(u.Path, "/") + MessagesPath
	u.RawQuery = ""
	frag := url.QueryEscape(secretparam.AdminTokenParam) + "=" + url.QueryEscape(token)
	u.Fragment = frag
	u.RawFragment = frag
	return u.String(), nil
}

// Result is a generated token with its delivery artefacts.
type Result struct {
	Token        string `json:"token"`
	BootstrapURL string `json:"bootstrap_url"`
	Hash         string `json:"hash,omitempty"`
}

// New generates a token for base. When withHash is set the bcrypt hash for
// auth.admin_token_hash is included.
func New(base string, withHash bool) (*Result, error) {
	tok, err := Generate()
	if err != nil {
		return nil, err
	}
	link, err := BootstrapURL(base, tok)
	if err != nil {
		return nil, err
	}
	res := &Result{Token: tok, BootstrapURL: link}
	if withHash {
		h, err := service.HashAdminToken(tok)
		if err != nil {
			return nil, err
		}
		res.Hash = string(h)
	}
	return res, nil
}
