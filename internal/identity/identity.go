// Package identity implements Identity & Signing (C1): Ed25519 signing
// over canonical JSON, and capability tokens encoded as EdDSA JWTs.
//
// Key loading is grounded on akashi's internal/auth.NewJWTManager:
// PEM-file keys with a private/public match check, or an ephemeral
// in-memory pair for development.
package identity

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Lexicoding-systems/Lexecon-sub000/internal/canon"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/domain"
	"github.com/Lexicoding-systems/Lexecon-sub000/internal/errs"
)

// tokenClaims extends jwt.RegisteredClaims with the capability scope a
// decision's permit verdict minted.
type tokenClaims struct {
	jwt.RegisteredClaims
	ActorID     string             `json:"actor"`
	ActionID    string             `json:"action"`
	Tool        string             `json:"tool"`
	DataClasses []domain.DataClass `json:"data_classes,omitempty"`
}

// Signer holds an Ed25519 key pair and signs/verifies canonical JSON,
// and mints capability tokens as EdDSA-signed JWTs.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	keyID      string
	tokenTTL   time.Duration
}

// New loads a Signer from PEM key files, or generates an ephemeral pair
// in-memory if either path is empty (development only).
func New(privateKeyPath, publicKeyPath string, tokenTTL time.Duration) (*Signer, error) {
	if privateKeyPath == "" || publicKeyPath == "" {
		slog.Warn("identity: no signing key files configured, generating ephemeral key pair (not for production)")
		pub, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, errs.Wrap(errs.KindSigning, "generate ephemeral key pair", err)
		}
		return &Signer{privateKey: priv, publicKey: pub, keyID: keyIDFor(pub), tokenTTL: tokenTTL}, nil
	}

	privPEM, err := os.ReadFile(privateKeyPath) //nolint:gosec // path comes from validated config
	if err != nil {
		return nil, errs.Wrap(errs.KindSigning, "read private key", err)
	}
	block, _ := pem.Decode(privPEM)
	if block == nil {
		return nil, errs.New(errs.KindSigning, "decode private key PEM")
	}
	privKey, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errs.Wrap(errs.KindSigning, "parse private key", err)
	}
	edPriv, ok := privKey.(ed25519.PrivateKey)
	if !ok {
		return nil, errs.New(errs.KindSigning, "private key is not Ed25519")
	}

	pubPEM, err := os.ReadFile(publicKeyPath) //nolint:gosec // path comes from validated config
	if err != nil {
		return nil, errs.Wrap(errs.KindSigning, "read public key", err)
	}
	pubBlock, _ := pem.Decode(pubPEM)
	if pubBlock == nil {
		return nil, errs.New(errs.KindSigning, "decode public key PEM")
	}
	pubKey, err := x509.ParsePKIXPublicKey(pubBlock.Bytes)
	if err != nil {
		return nil, errs.Wrap(errs.KindSigning, "parse public key", err)
	}
	edPub, ok := pubKey.(ed25519.PublicKey)
	if !ok {
		return nil, errs.New(errs.KindSigning, "public key is not Ed25519")
	}

	derivedPub := edPriv.Public().(ed25519.PublicKey)
	if !bytes.Equal(derivedPub, edPub) {
		return nil, errs.New(errs.KindSigning, "public key does not match private key")
	}

	return &Signer{privateKey: edPriv, publicKey: edPub, keyID: keyIDFor(edPub), tokenTTL: tokenTTL}, nil
}

// PublicKey returns the signer's Ed25519 public key, e.g. for export.
func (s *Signer) PublicKey() ed25519.PublicKey { return s.publicKey }

// KeyID returns a short fingerprint of the public key, used to label
// artifacts/exports with which key produced a signature.
func (s *Signer) KeyID() string { return s.keyID }

// Sign returns base64(Ed25519(canonical_json(obj))), the signing
// contract from spec §4.1.
func (s *Signer) Sign(obj any) (string, error) {
	preimage, err := canon.Marshal(obj)
	if err != nil {
		return "", errs.Wrap(errs.KindSigning, "canonicalize sign input", err)
	}
	sig := ed25519.Sign(s.privateKey, preimage)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify reports whether sig is a valid Ed25519 signature of obj's
// canonical JSON under pub.
func Verify(obj any, sig string, pub ed25519.PublicKey) (bool, error) {
	preimage, err := canon.Marshal(obj)
	if err != nil {
		return false, errs.Wrap(errs.KindSigning, "canonicalize verify input", err)
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sig)
	if err != nil {
		return false, errs.Wrap(errs.KindSigning, "decode signature", err)
	}
	return ed25519.Verify(pub, preimage, sigBytes), nil
}

// VerifyWithOwnKey is Verify against the signer's own public key, for
// call sites that only ever verify what this process itself signed.
func (s *Signer) VerifyWithOwnKey(obj any, sig string) (bool, error) {
	return Verify(obj, sig, s.publicKey)
}

// MintCapabilityToken issues a CapabilityToken scoped to req, bounded
// to at most 1h (spec §4.4 "expiry=now + default_ttl ... bounded ≤ 1h"),
// with a bearer encoding as an EdDSA JWT.
func (s *Signer) MintCapabilityToken(req domain.DecisionRequest) (*domain.CapabilityToken, error) {
	ttl := s.tokenTTL
	if ttl <= 0 || ttl > time.Hour {
		ttl = time.Hour
	}
	now := time.Now().UTC()
	exp := now.Add(ttl)
	tokenID := "tok_" + uuid.NewString()

	scope := domain.CapabilityScope{
		ActorID:     req.ActorID,
		ActionID:    req.ActionID,
		Tool:        req.Tool,
		DataClasses: req.DataClasses,
	}

	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.ActorID,
			Issuer:    "lexecon",
			Audience:  jwt.ClaimStrings{"lexecon"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        tokenID,
		},
		ActorID:     scope.ActorID,
		ActionID:    scope.ActionID,
		Tool:        scope.Tool,
		DataClasses: scope.DataClasses,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	bearer, err := token.SignedString(s.privateKey)
	if err != nil {
		return nil, errs.Wrap(errs.KindSigning, "sign capability token", err)
	}

	return &domain.CapabilityToken{
		TokenID:   tokenID,
		Scope:     scope,
		GrantedAt: now,
		Expiry:    exp,
		Bearer:    bearer,
	}, nil
}

// VerifyCapabilityToken parses and validates a bearer-encoded
// capability token against the signer's own public key.
func (s *Signer) VerifyCapabilityToken(bearer string) (*domain.CapabilityToken, error) {
	token, err := jwt.ParseWithClaims(
		bearer,
		&tokenClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return s.publicKey, nil
		},
		jwt.WithAudience("lexecon"),
		jwt.WithIssuer("lexecon"),
	)
	if err != nil {
		return nil, errs.Wrap(errs.KindSigning, "validate capability token", err)
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, errs.New(errs.KindSigning, "invalid capability token claims")
	}

	granted := claims.IssuedAt.Time
	expiry := claims.ExpiresAt.Time
	return &domain.CapabilityToken{
		TokenID: claims.ID,
		Scope: domain.CapabilityScope{
			ActorID:     claims.ActorID,
			ActionID:    claims.ActionID,
			Tool:        claims.Tool,
			DataClasses: claims.DataClasses,
		},
		GrantedAt: granted,
		Expiry:    expiry,
		Bearer:    bearer,
	}, nil
}

func keyIDFor(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
