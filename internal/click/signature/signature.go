// Package signature verifies the MD5 sign_string attached to gateway callbacks.
package signature

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"github.com/smallbiznis/journalpay/internal/click/domain"
)

// Verifier holds the merchant secret shared with the gateway.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// PrepareDigest concatenates the raw fields in prepare order.
func (v *Verifier) PrepareDigest(req domain.PrepareRequest) string {
	return digest(
		req.ClickTransID,
		req.ServiceID,
		v.secret,
		req.MerchantTransID,
		req.Amount,
		req.Action,
		req.SignTime,
	)
}

// CompleteDigest is PrepareDigest with merchant_prepare_id after merchant_trans_id.
func (v *Verifier) CompleteDigest(req domain.CompleteRequest) string {
	return digest(
		req.ClickTransID,
		req.ServiceID,
		v.secret,
		req.MerchantTransID,
		req.MerchantPrepareID,
		req.Amount,
		req.Action,
		req.SignTime,
	)
}

// VerifyPrepare fails closed when no secret is configured.
func (v *Verifier) VerifyPrepare(req domain.PrepareRequest) error {
	if v.secret == "" {
		return domain.ErrSignatureInvalid
	}
	return compare(v.PrepareDigest(req), req.SignString)
}

func (v *Verifier) VerifyComplete(req domain.CompleteRequest) error {
	if v.secret == "" {
		return domain.ErrSignatureInvalid
	}
	return compare(v.CompleteDigest(req), req.SignString)
}

func digest(parts ...string) string {
	sum := md5.Sum([]byte(strings.Join(parts, "")))
	return hex.EncodeToString(sum[:])
}

func compare(expected, presented string) error {
	presented = strings.ToLower(strings.TrimSpace(presented))
	if len(presented) != len(expected) {
		return domain.ErrSignatureInvalid
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(presented)) != 1 {
		return domain.ErrSignatureInvalid
	}
	return nil
}
