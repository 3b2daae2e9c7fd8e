package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func checkoutSignature(secret, orderID, paymentID string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(h.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	svc := NewOnlinePaymentService(nil, "rzp_test_key", "secret", testLogger())

	sig := checkoutSignature("secret", "order_123", "pay_456")
	if !svc.verifySignature("order_123", "pay_456", sig) {
		t.Fatal("valid signature rejected")
	}
	if svc.verifySignature("order_123", "pay_456", "deadbeef") {
		t.Fatal("forged signature accepted")
	}
	if svc.verifySignature("order_999", "pay_456", sig) {
		t.Fatal("signature for a different order accepted")
	}
}

func TestVerifySignatureRequiresConfiguredSecret(t *testing.T) {
	svc := NewOnlinePaymentService(nil, "", "", testLogger())

	sig := checkoutSignature("", "order_123", "pay_456")
	if svc.verifySignature("order_123", "pay_456", sig) {
		t.Fatal("unconfigured gateway must reject every signature")
	}
}

func TestCreateOrderDisabledWithoutCredentials(t *testing.T) {
	svc := NewOnlinePaymentService(nil, "", "", testLogger())
	if svc.Enabled() {
		t.Fatal("gateway should be disabled without credentials")
	}
}
