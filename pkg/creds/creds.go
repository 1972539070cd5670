// Package creds holds the credential container handed to execution daemons.
// Submissions never carry the caller's ambient credential set; a fresh
// container confines exactly the tokens the daemon is meant to see.
package creds

import (
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
)

// SessionTokenAlias is the alias the daemon looks the session token up by.
const SessionTokenAlias = "session.token"

// Token is one delegation token.
type Token struct {
	Kind       string `cbor:"1,keyasint"`
	Service    string `cbor:"2,keyasint,omitempty"`
	Identifier []byte `cbor:"3,keyasint"`
	Password   []byte `cbor:"4,keyasint"`
}

// Credentials is a set of tokens keyed by alias.
type Credentials struct {
	tokens map[string]Token
}

func New() *Credentials {
	return &Credentials{tokens: make(map[string]Token)}
}

// SetToken stores t under alias, replacing any previous token.
func (c *Credentials) SetToken(alias string, t Token) {
	c.tokens[alias] = t
}

// Token returns the token stored under alias.
func (c *Credentials) Token(alias string) (Token, bool) {
	t, ok := c.tokens[alias]
	return t, ok
}

// NumTokens returns the number of tokens in the container.
func (c *Credentials) NumTokens() int { return len(c.tokens) }

// SetSessionToken stores t under the well-known session alias.
func SetSessionToken(t Token, c *Credentials) {
	c.SetToken(SessionTokenAlias, t)
}

// Marshal serializes the container with canonical CBOR.
func (c *Credentials) Marshal() ([]byte, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("serialize credentials: %w", err)
	}
	b, err := em.Marshal(c.tokens)
	if err != nil {
		return nil, fmt.Errorf("serialize credentials: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a container produced by Marshal.
func Unmarshal(data []byte) (*Credentials, error) {
	c := New()
	if err := cbor.Unmarshal(data, &c.tokens); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return c, nil
}
