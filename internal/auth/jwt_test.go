package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("u1", "teacher", "rollcall", "topsecret", time.Hour, 24*time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("empty tokens")
	}

	claims, err := Parse(pair.AccessToken, "topsecret", "rollcall")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Role != "teacher" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Subject != "u1" {
		t.Errorf("subject = %q", claims.Subject)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	pair, err := Issue("u1", "student", "rollcall", "topsecret", time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "other-key", "rollcall"); err == nil {
		t.Fatal("token signed with another key must not parse")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	pair, err := Issue("u1", "student", "someone-else", "topsecret", time.Hour, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "topsecret", "rollcall"); err == nil {
		t.Fatal("issuer mismatch must fail")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	pair, err := Issue("u1", "student", "rollcall", "topsecret", -time.Minute, -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(pair.AccessToken, "topsecret", "rollcall"); err == nil {
		t.Fatal("expired token must fail")
	}
}
