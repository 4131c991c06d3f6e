package member

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	timeout := 3 * 24 * time.Hour
	gen := newTokenGenerator("secret", timeout)

	now := time.Now()
	m := Member{
		ID:        "5f0c1a5e-7a6b-4a39-9e0a-1f3c0b8e2d11",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		Role:      RoleStudent,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	_ = m.SetPassword("pwd")

	validToken, err := gen.makeToken(m)
	if err != nil {
		t.Fatalf("makeToken() error = %v", err)
	}

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	gen.now = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := gen.makeToken(m)
	gen.now = time.Now // reset

	otherKeyGen := newTokenGenerator("other", timeout)
	otherKeyToken, _ := otherKeyGen.makeToken(m)

	loggedIn := m
	loggedIn.LastLogin = now.Add(time.Minute)

	tests := []struct {
		name    string
		m       Member
		token   string
		wantErr error
	}{
		{name: "no token", m: m, wantErr: errInvalidToken},
		{name: "invalid parts len", m: m, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", m: m, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", m: m, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", m: m, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "signed with another key", m: m, token: otherKeyToken, wantErr: errInvalidToken},
		{name: "member logged in since", m: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "expired token", m: m, token: expiredToken, wantErr: errTokenExpired},
		{name: "valid token", m: m, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := gen.verifyToken(tt.m, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	m := Member{ID: "5f0c1a5e-7a6b-4a39-9e0a-1f3c0b8e2d11"}
	got, err := decodeUID(EncodeUID(m))
	if err != nil {
		t.Fatalf("decodeUID() error = %v", err)
	}
	if got != m.ID {
		t.Errorf("decodeUID() = %v, want %v", got, m.ID)
	}
	if _, err := decodeUID("%%%"); err == nil {
		t.Error("decodeUID() expected an error on invalid input")
	}
}
