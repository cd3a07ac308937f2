package scada

import (
	"fmt"
	"strings"
)

// EndpointScheme is the OPC-UA transport scheme every endpoint must use.
const EndpointScheme = "opc.tcp://"

// SecurityMode is the OPC-UA message security mode.
type SecurityMode string

const (
	SecurityModeNone           SecurityMode = "None"
	SecurityModeSign           SecurityMode = "Sign"
	SecurityModeSignAndEncrypt SecurityMode = "SignAndEncrypt"
)

// Valid returns true when the mode is supported.
func (m SecurityMode) Valid() bool {
	switch m {
	case SecurityModeNone, SecurityModeSign, SecurityModeSignAndEncrypt:
		return true
	default:
		return false
	}
}

// SecurityPolicy is the OPC-UA security policy negotiated with the server.
type SecurityPolicy string

const (
	SecurityPolicyNone                SecurityPolicy = "None"
	SecurityPolicyBasic128Rsa15       SecurityPolicy = "Basic128Rsa15"
	SecurityPolicyBasic256            SecurityPolicy = "Basic256"
	SecurityPolicyBasic256Sha256      SecurityPolicy = "Basic256Sha256"
	SecurityPolicyAes128Sha256RsaOaep SecurityPolicy = "Aes128_Sha256_RsaOaep"
	SecurityPolicyAes256Sha256RsaPss  SecurityPolicy = "Aes256_Sha256_RsaPss"
)

// Valid returns true when the policy is supported.
func (p SecurityPolicy) Valid() bool {
	switch p {
	case SecurityPolicyNone, SecurityPolicyBasic128Rsa15, SecurityPolicyBasic256,
		SecurityPolicyBasic256Sha256, SecurityPolicyAes128Sha256RsaOaep, SecurityPolicyAes256Sha256RsaPss:
		return true
	default:
		return false
	}
}

// EndpointConfig is the validated, immutable connection target of an RTU/PLC.
// Credentials are carried as plaintext at this layer; protection at rest is
// the persistence adapter's concern.
type EndpointConfig struct {
	URL            string
	SecurityMode   SecurityMode
	SecurityPolicy SecurityPolicy
	Username       string
	Password       string
}

// NewEndpointConfig validates and builds an endpoint. Checks run in a fixed
// order and stop at the first failure so every fault names one rule.
func NewEndpointConfig(url string, mode SecurityMode, policy SecurityPolicy, username, password string) (EndpointConfig, error) {
	if url == "" || !strings.HasPrefix(url, EndpointScheme) {
		return EndpointConfig{}, fmt.Errorf("%w: %q", ErrInvalidURL, url)
	}
	if !mode.Valid() {
		return EndpointConfig{}, fmt.Errorf("%w: unknown security mode %q", ErrSecurityMismatch, mode)
	}
	if !policy.Valid() {
		return EndpointConfig{}, fmt.Errorf("%w: unknown security policy %q", ErrSecurityMismatch, policy)
	}
	if mode == SecurityModeNone && policy != SecurityPolicyNone {
		return EndpointConfig{}, fmt.Errorf("%w: mode None requires policy None, got %q", ErrSecurityMismatch, policy)
	}
	if mode != SecurityModeNone && policy == SecurityPolicyNone {
		return EndpointConfig{}, fmt.Errorf("%w: mode %q requires a non-None policy", ErrSecurityMismatch, mode)
	}
	if (username == "") != (password == "") {
		return EndpointConfig{}, ErrIncompleteCredentials
	}
	return EndpointConfig{
		URL:            url,
		SecurityMode:   mode,
		SecurityPolicy: policy,
		Username:       username,
		Password:       password,
	}, nil
}

// HasCredentials returns true when a username/password pair is configured.
func (e EndpointConfig) HasCredentials() bool {
	return e.Username != "" && e.Password != ""
}

// IsSecure returns true when message security is enabled.
func (e EndpointConfig) IsSecure() bool {
	return e.SecurityMode != SecurityModeNone
}
