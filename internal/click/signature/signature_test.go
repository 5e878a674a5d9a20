package signature

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/smallbiznis/journalpay/internal/click/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func TestPrepareDigestOrdering(t *testing.T) {
	v := NewVerifier("s3cret")
	req := domain.PrepareRequest{
		ClickTransID:    "111",
		ServiceID:       "222",
		MerchantTransID: "article_5_1700000000",
		Amount:          "100000.00",
		Action:          "0",
		SignTime:        "2024-01-01 10:00:00",
	}
	want := md5Hex("111" + "222" + "s3cret" + "article_5_1700000000" + "100000.00" + "0" + "2024-01-01 10:00:00")
	assert.Equal(t, want, v.PrepareDigest(req))

	req.SignString = want
	require.NoError(t, v.VerifyPrepare(req))
}

func TestCompleteDigestIncludesPrepareID(t *testing.T) {
	v := NewVerifier("s3cret")
	req := domain.CompleteRequest{
		ClickTransID:      "111",
		ServiceID:         "222",
		MerchantTransID:   "article_5_1700000000",
		MerchantPrepareID: "987",
		Amount:            "100000.00",
		Action:            "1",
		SignTime:          "2024-01-01 10:00:05",
	}
	want := md5Hex("111" + "222" + "s3cret" + "article_5_1700000000" + "987" + "100000.00" + "1" + "2024-01-01 10:00:05")
	assert.Equal(t, want, v.CompleteDigest(req))

	req.SignString = strings.ToUpper(want)
	assert.NoError(t, v.VerifyComplete(req), "hex comparison is case-insensitive")
}

func TestVerifyRejectsTampering(t *testing.T) {
	v := NewVerifier("s3cret")
	req := domain.PrepareRequest{ClickTransID: "1", ServiceID: "2", MerchantTransID: "m", Amount: "10", Action: "0", SignTime: "t"}
	req.SignString = v.PrepareDigest(req)

	req.Amount = "11"
	assert.ErrorIs(t, v.VerifyPrepare(req), domain.ErrSignatureInvalid)

	req.Amount = "10"
	req.SignString = ""
	assert.ErrorIs(t, v.VerifyPrepare(req), domain.ErrSignatureInvalid)
}

func TestDifferentSecretFails(t *testing.T) {
	req := domain.PrepareRequest{ClickTransID: "1", ServiceID: "2", MerchantTransID: "m", Amount: "10", Action: "0", SignTime: "t"}
	req.SignString = NewVerifier("a").PrepareDigest(req)
	assert.ErrorIs(t, NewVerifier("b").VerifyPrepare(req), domain.ErrSignatureInvalid)
}

func TestEmptySecretRejectsEverything(t *testing.T) {
	v := NewVerifier("")

	prep := domain.PrepareRequest{ClickTransID: "1", ServiceID: "10", MerchantTransID: "article_5_1", Amount: "10000", Action: "0", SignTime: "t"}
	prep.SignString = md5Hex("1" + "10" + "article_5_1" + "10000" + "0" + "t")
	assert.ErrorIs(t, v.VerifyPrepare(prep), domain.ErrSignatureInvalid)

	comp := domain.CompleteRequest{ClickTransID: "1", ServiceID: "10", MerchantTransID: "article_5_1", MerchantPrepareID: "7", Amount: "10000", Action: "1", SignTime: "t"}
	comp.SignString = v.CompleteDigest(comp)
	assert.ErrorIs(t, v.VerifyComplete(comp), domain.ErrSignatureInvalid)
}
