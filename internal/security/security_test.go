package security

import (
	"testing"
	"time"

	"github.com/telecomsuite/subtrack/internal/models"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, errHash := HashPassword("secret")
	if errHash != nil {
		t.Fatalf("hash: %v", errHash)
	}
	if hash == "secret" {
		t.Fatalf("hash must not equal the plaintext")
	}
	if !CheckPassword(hash, "secret") {
		t.Fatalf("expected matching password to verify")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	token, errIssue := IssueSessionToken("secret", 42, models.RoleAdmin, time.Hour)
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}

	claims, errParse := ParseSessionToken("secret", token)
	if errParse != nil {
		t.Fatalf("parse: %v", errParse)
	}
	if claims.UserID != 42 {
		t.Fatalf("user id = %d, want 42", claims.UserID)
	}
	if claims.Role != models.RoleAdmin {
		t.Fatalf("role = %q, want admin", claims.Role)
	}

	if _, errWrong := ParseSessionToken("other-secret", token); errWrong == nil {
		t.Fatalf("expected wrong secret to fail")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, errIssue := IssueSessionToken("secret", 1, models.RoleUser, -time.Minute)
	if errIssue != nil {
		t.Fatalf("issue: %v", errIssue)
	}
	if _, errParse := ParseSessionToken("secret", token); errParse == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestTOTPSecretValidates(t *testing.T) {
	secret, url, errGen := GenerateTOTPSecret("admin@example.com")
	if errGen != nil {
		t.Fatalf("generate: %v", errGen)
	}
	if secret == "" || url == "" {
		t.Fatalf("expected secret and provisioning url")
	}
	if ValidateTOTP(secret, "000000") && ValidateTOTP(secret, "123456") {
		t.Fatalf("arbitrary codes should not both validate")
	}
}
