package auth

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var testAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func testConfig() Config {
	return Config{HMACSecret: "secret", Issuer: "stakeledger", Audience: []string{"ledger"}}
}

func TestIssueAndVerify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token, err := Issue(testConfig(), IssueRequest{Address: testAddr, TTL: time.Minute, Scopes: []string{"farming", "staking"}, Now: now})
	require.NoError(t, err)

	v := NewVerifier(testConfig())
	v.SetNowFunc(func() time.Time { return now.Add(10 * time.Second) })
	p, err := v.Verify(token)
	require.NoError(t, err)
	require.Equal(t, testAddr, p.Address)
	require.NotEmpty(t, p.TokenID)
	require.True(t, p.HasScope("staking"))
	require.False(t, p.HasScope("admin"))
}

func TestVerifyRejectsExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	token, err := Issue(testConfig(), IssueRequest{Address: testAddr, TTL: time.Minute, Now: now})
	require.NoError(t, err)

	v := NewVerifier(testConfig())
	v.SetNowFunc(func() time.Time { return now.Add(time.Hour) })
	_, err = v.Verify(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyRejectsWrongSecretAndAudience(t *testing.T) {
	now := time.Now()
	other := testConfig()
	other.HMACSecret = "other"
	token, err := Issue(other, IssueRequest{Address: testAddr, Now: now})
	require.NoError(t, err)
	_, err = NewVerifier(testConfig()).Verify(token)
	require.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	wrongAud := testConfig()
	wrongAud.Audience = []string{"elsewhere"}
	token, err = Issue(wrongAud, IssueRequest{Address: testAddr, Now: now})
	require.NoError(t, err)
	_, err = NewVerifier(testConfig()).Verify(token)
	require.Error(t, err)
}

func TestVerifyRejectsNonAddressSubject(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "stakeledger",
		Audience:  jwt.ClaimStrings{"ledger"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = NewVerifier(testConfig()).Verify(token)
	require.ErrorIs(t, err, ErrInvalidSubject)
}

func TestMissingSecret(t *testing.T) {
	_, err := Issue(Config{}, IssueRequest{Address: testAddr})
	require.ErrorIs(t, err, ErrSecretMissing)
	_, err = NewVerifier(Config{}).Verify("x.y.z")
	require.ErrorIs(t, err, ErrSecretMissing)
}
