package auth

import (
	"strings"
	"testing"
)

func TestGenerateAndVerifyAccessToken(t *testing.T) {
	m := NewJWTManager("test-secret", "sealvault-test")

	token, err := m.GenerateAccessToken("0xabc", "a@example.com", "alice.sui")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("token = %q, want three JWT segments", token)
	}

	claims, err := m.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("VerifyAccessToken() error = %v", err)
	}
	if claims.Address != "0xabc" {
		t.Errorf("Address = %q, want 0xabc", claims.Address)
	}
	if claims.Email != "a@example.com" {
		t.Errorf("Email = %q, want a@example.com", claims.Email)
	}
	if claims.SuinsName != "alice.sui" {
		t.Errorf("SuinsName = %q, want alice.sui", claims.SuinsName)
	}
	if claims.Issuer != "sealvault-test" {
		t.Errorf("Issuer = %q, want sealvault-test", claims.Issuer)
	}
	if claims.Subject != "0xabc" {
		t.Errorf("Subject = %q, want the address", claims.Subject)
	}
}

func TestVerifyAccessToken_WrongSecret(t *testing.T) {
	m := NewJWTManager("secret-a", "")
	token, err := m.GenerateAccessToken("0xabc", "", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	other := NewJWTManager("secret-b", "")
	if _, err := other.VerifyAccessToken(token); err == nil {
		t.Error("token signed with another secret must not verify")
	}
}

func TestVerifyAccessToken_MissingAddress(t *testing.T) {
	m := NewJWTManager("test-secret", "")
	token, err := m.GenerateAccessToken("", "a@example.com", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := m.VerifyAccessToken(token); err == nil {
		t.Error("token without an address claim must not verify")
	}
}

func TestExtractTokenFromHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "empty", header: "", wantErr: true},
		{name: "no prefix", header: "abc.def.ghi", wantErr: true},
		{name: "wrong scheme", header: "Basic abc", wantErr: true},
		{name: "prefix only", header: "Bearer ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractTokenFromHeader(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("token = %q, want %q", got, tt.want)
			}
		})
	}
}
