package creds

import (
	"bytes"
	"testing"
)

func TestSessionTokenRoundtrip(t *testing.T) {
	c := New()
	tok := Token{Kind: "JOB_TOKEN", Service: "q1", Identifier: []byte("id"), Password: []byte("pw")}
	SetSessionToken(tok, c)

	b, err := c.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	c2, err := Unmarshal(b)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, ok := c2.Token(SessionTokenAlias)
	if !ok {
		t.Fatalf("session token missing after roundtrip")
	}
	if got.Kind != tok.Kind || !bytes.Equal(got.Identifier, tok.Identifier) || !bytes.Equal(got.Password, tok.Password) {
		t.Fatalf("token mismatch: %#v", got)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	c := New()
	SetSessionToken(Token{Kind: "JOB_TOKEN", Identifier: []byte("a"), Password: []byte("b")}, c)
	b1, err := c.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b2, err := c.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("canonical encoding not stable")
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	if _, err := Unmarshal([]byte{0xff, 0x00, 0x01}); err == nil {
		t.Fatalf("expected decode failure")
	}
}
