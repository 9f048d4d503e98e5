package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

func signGetirToken(t *testing.T, secret string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"exp": expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func hmacHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWebhookAuthenticator_Getir_ValidToken(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Getir: "getir-secret"}, zap.NewNop())

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signGetirToken(t, "getir-secret", time.Now().Add(time.Minute)))

	err := auth.Verify(delivery.PlatformGetir, header, []byte(`{}`))
	assert.NoError(t, err)
}

func TestWebhookAuthenticator_Getir_SignatureHeaderFallback(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Getir: "getir-secret"}, zap.NewNop())

	header := http.Header{}
	header.Set("X-Getir-Signature", signGetirToken(t, "getir-secret", time.Now().Add(time.Minute)))

	err := auth.Verify(delivery.PlatformGetir, header, []byte(`{}`))
	assert.NoError(t, err)
}

func TestWebhookAuthenticator_Getir_ExpiredToken(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Getir: "getir-secret"}, zap.NewNop())

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signGetirToken(t, "getir-secret", time.Now().Add(-time.Minute)))

	err := auth.Verify(delivery.PlatformGetir, header, []byte(`{}`))
	assert.ErrorIs(t, err, delivery.ErrWebhookExpired)
}

func TestWebhookAuthenticator_Getir_WrongSecret(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Getir: "getir-secret"}, zap.NewNop())

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signGetirToken(t, "other-secret", time.Now().Add(time.Minute)))

	err := auth.Verify(delivery.PlatformGetir, header, []byte(`{}`))
	assert.ErrorIs(t, err, delivery.ErrInvalidSignature)
}

func TestWebhookAuthenticator_Getir_WrongAlgorithmRejected(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Getir: "getir-secret"}, zap.NewNop())

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte("getir-secret"))
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signed)

	err = auth.Verify(delivery.PlatformGetir, header, []byte(`{}`))
	assert.ErrorIs(t, err, delivery.ErrInvalidSignature)
}

func TestWebhookAuthenticator_Getir_MissingToken(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Getir: "getir-secret"}, zap.NewNop())

	err := auth.Verify(delivery.PlatformGetir, http.Header{}, []byte(`{}`))
	assert.ErrorIs(t, err, delivery.ErrMissingSignature)
}

func TestWebhookAuthenticator_Getir_NoSecretFailsClosed(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{}, zap.NewNop())

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signGetirToken(t, "anything", time.Now().Add(time.Minute)))

	err := auth.Verify(delivery.PlatformGetir, header, []byte(`{}`))
	assert.ErrorIs(t, err, delivery.ErrInvalidSignature)
}

func TestWebhookAuthenticator_Trendyol_ValidSignature(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Trendyol: "ty-secret"}, zap.NewNop())

	body := []byte(`{"orderId":"123"}`)
	header := http.Header{}
	header.Set("X-Webhook-Signature", hmacHex("ty-secret", body))

	err := auth.Verify(delivery.PlatformTrendyol, header, body)
	assert.NoError(t, err)
}

func TestWebhookAuthenticator_Trendyol_UppercaseSignatureAccepted(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Trendyol: "ty-secret"}, zap.NewNop())

	body := []byte(`{"orderId":"123"}`)
	header := http.Header{}
	header.Set("X-Webhook-Signature", strings.ToUpper(hmacHex("ty-secret", body)))

	err := auth.Verify(delivery.PlatformTrendyol, header, body)
	assert.NoError(t, err)
}

func TestWebhookAuthenticator_Trendyol_TamperedBody(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Trendyol: "ty-secret"}, zap.NewNop())

	header := http.Header{}
	header.Set("X-Webhook-Signature", hmacHex("ty-secret", []byte(`{"orderId":"123"}`)))

	err := auth.Verify(delivery.PlatformTrendyol, header, []byte(`{"orderId":"999"}`))
	assert.ErrorIs(t, err, delivery.ErrInvalidSignature)
}

func TestWebhookAuthenticator_Trendyol_MissingSignature(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Trendyol: "ty-secret"}, zap.NewNop())

	err := auth.Verify(delivery.PlatformTrendyol, http.Header{}, []byte(`{}`))
	assert.ErrorIs(t, err, delivery.ErrMissingSignature)
}

func TestWebhookAuthenticator_Trendyol_NoSecretFailsClosed(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{}, zap.NewNop())

	body := []byte(`{}`)
	header := http.Header{}
	header.Set("X-Webhook-Signature", hmacHex("any", body))

	err := auth.Verify(delivery.PlatformTrendyol, header, body)
	assert.ErrorIs(t, err, delivery.ErrInvalidSignature)
}

func TestWebhookAuthenticator_Yemeksepeti_ValidSignature(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Yemeksepeti: "ys-secret"}, zap.NewNop())

	body := []byte(`{"token":"abc"}`)
	header := http.Header{}
	header.Set("X-Webhook-Signature", hmacHex("ys-secret", body))

	err := auth.Verify(delivery.PlatformYemeksepeti, header, body)
	assert.NoError(t, err)
}

func TestWebhookAuthenticator_Yemeksepeti_NoSecretAcceptsUnsigned(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{}, zap.NewNop())

	err := auth.Verify(delivery.PlatformYemeksepeti, http.Header{}, []byte(`{}`))
	assert.NoError(t, err)
}

func TestWebhookAuthenticator_Yemeksepeti_SecretConfiguredStillEnforced(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{Yemeksepeti: "ys-secret"}, zap.NewNop())

	err := auth.Verify(delivery.PlatformYemeksepeti, http.Header{}, []byte(`{}`))
	assert.ErrorIs(t, err, delivery.ErrMissingSignature)
}

func TestWebhookAuthenticator_UnknownPlatform(t *testing.T) {
	auth := NewWebhookAuthenticator(WebhookSecrets{}, zap.NewNop())

	err := auth.Verify(delivery.PlatformMigros, http.Header{}, []byte(`{}`))
	assert.ErrorIs(t, err, delivery.ErrPlatformNotSupported)
}
