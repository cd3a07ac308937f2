package scada

import (
	"errors"
	"testing"
)

func TestNewEndpointConfig_URLScheme(t *testing.T) {
	cases := []string{"", "tcp://10.0.0.1:4840", "http://plc.local", "opc.https://plc.local"}
	for _, url := range cases {
		_, err := NewEndpointConfig(url, SecurityModeNone, SecurityPolicyNone, "", "")
		if !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("url %q: expected ErrInvalidURL, got %v", url, err)
		}
	}

	cfg, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", SecurityModeNone, SecurityPolicyNone, "", "")
	if err != nil {
		t.Fatalf("valid url rejected: %v", err)
	}
	if cfg.IsSecure() {
		t.Fatalf("mode None should not be secure")
	}
}

func TestNewEndpointConfig_SecurityPairing(t *testing.T) {
	cases := []struct {
		mode   SecurityMode
		policy SecurityPolicy
		ok     bool
	}{
		{SecurityModeNone, SecurityPolicyNone, true},
		{SecurityModeNone, SecurityPolicyBasic256, false},
		{SecurityModeSign, SecurityPolicyNone, false},
		{SecurityModeSign, SecurityPolicyBasic256Sha256, true},
		{SecurityModeSignAndEncrypt, SecurityPolicyNone, false},
		{SecurityModeSignAndEncrypt, SecurityPolicyAes256Sha256RsaPss, true},
		{SecurityModeSignAndEncrypt, SecurityPolicyAes128Sha256RsaOaep, true},
		{SecurityMode("Encrypt"), SecurityPolicyBasic256, false},
		{SecurityModeSign, SecurityPolicy("Basic512"), false},
	}
	for _, tc := range cases {
		_, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", tc.mode, tc.policy, "", "")
		if tc.ok && err != nil {
			t.Fatalf("(%s,%s): unexpected error %v", tc.mode, tc.policy, err)
		}
		if !tc.ok && !errors.Is(err, ErrSecurityMismatch) {
			t.Fatalf("(%s,%s): expected ErrSecurityMismatch, got %v", tc.mode, tc.policy, err)
		}
	}
}

func TestNewEndpointConfig_Credentials(t *testing.T) {
	if _, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", SecurityModeNone, SecurityPolicyNone, "operator", ""); !errors.Is(err, ErrIncompleteCredentials) {
		t.Fatalf("username without password: expected ErrIncompleteCredentials, got %v", err)
	}
	if _, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", SecurityModeNone, SecurityPolicyNone, "", "secret"); !errors.Is(err, ErrIncompleteCredentials) {
		t.Fatalf("password without username: expected ErrIncompleteCredentials, got %v", err)
	}

	cfg, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", SecurityModeSign, SecurityPolicyBasic256, "operator", "secret")
	if err != nil {
		t.Fatalf("credential pair rejected: %v", err)
	}
	if !cfg.HasCredentials() {
		t.Fatalf("expected HasCredentials true")
	}
	if !cfg.IsSecure() {
		t.Fatalf("expected IsSecure true for mode Sign")
	}

	bare, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", SecurityModeNone, SecurityPolicyNone, "", "")
	if err != nil {
		t.Fatalf("anonymous endpoint rejected: %v", err)
	}
	if bare.HasCredentials() {
		t.Fatalf("expected HasCredentials false")
	}
}

func TestEndpointConfig_StructuralEquality(t *testing.T) {
	a, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", SecurityModeSign, SecurityPolicyBasic256, "operator", "secret")
	if err != nil {
		t.Fatalf("build endpoint: %v", err)
	}
	b, err := NewEndpointConfig("opc.tcp://10.0.0.1:4840", SecurityModeSign, SecurityPolicyBasic256, "operator", "secret")
	if err != nil {
		t.Fatalf("build endpoint: %v", err)
	}
	if a != b {
		t.Fatalf("expected structural equality, got %+v vs %+v", a, b)
	}
}
