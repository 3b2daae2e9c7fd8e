package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"garage-backend/internal/models"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CreateOrderResponse is what the payment page needs to open the checkout.
type CreateOrderResponse struct {
	OrderID       string `json:"order_id"`
	AmountPaise   int64  `json:"amount"`
	Currency      string `json:"currency"`
	KeyID         string `json:"key_id"`
	InvoiceNumber string `json:"invoice_number"`
}

// VerifyPaymentRequest carries the checkout callback fields.
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
	InvoiceID         int    `json:"invoice_id" validate:"required,gt=0"`
}

// OnlinePaymentService bridges the payment gateway to the billing ledger.
// A verified gateway payment lands as a regular payment row with the
// gateway payment id as its reference; the reference's uniqueness makes
// replayed callbacks idempotent.
type OnlinePaymentService struct {
	billing   *BillingService
	client    *razorpay.Client
	keyID     string
	keySecret string
	log       *logrus.Logger
}

func NewOnlinePaymentService(billing *BillingService, keyID, keySecret string, log *logrus.Logger) *OnlinePaymentService {
	var client *razorpay.Client
	if keyID != "" && keySecret != "" {
		client = razorpay.NewClient(keyID, keySecret)
	}
	return &OnlinePaymentService{
		billing:   billing,
		client:    client,
		keyID:     keyID,
		keySecret: keySecret,
		log:       log,
	}
}

func (s *OnlinePaymentService) Enabled() bool {
	return s.client != nil
}

// CreateOrder opens a gateway order for the invoice's outstanding balance.
func (s *OnlinePaymentService) CreateOrder(ctx context.Context, companyID, invoiceID int) (*CreateOrderResponse, error) {
	if s.client == nil {
		return nil, models.Errorf(models.ErrPreconditionFailed, "online payments are not configured")
	}
	inv, err := s.billing.GetInvoice(ctx, companyID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceDraft || inv.Status == models.InvoiceVoided {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"invoice %s is %s", inv.InvoiceNumber, inv.Status)
	}
	if inv.BalanceDue.LessThanOrEqual(decimal.Zero) {
		return nil, models.Errorf(models.ErrPreconditionFailed,
			"invoice %s has no outstanding balance", inv.InvoiceNumber)
	}

	amountPaise := inv.BalanceDue.Mul(decimal.NewFromInt(100)).IntPart()
	orderData := map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  inv.InvoiceNumber,
		"notes": map[string]interface{}{
			"company_id": companyID,
			"invoice_id": invoiceID,
		},
	}
	order, err := s.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}
	orderID, _ := order["id"].(string)

	s.log.WithFields(logrus.Fields{
		"company_id": companyID,
		"invoice":    inv.InvoiceNumber,
		"order_id":   orderID,
	}).Info("gateway order created")

	return &CreateOrderResponse{
		OrderID:       orderID,
		AmountPaise:   amountPaise,
		Currency:      "INR",
		KeyID:         s.keyID,
		InvoiceNumber: inv.InvoiceNumber,
	}, nil
}

// VerifyPayment checks the checkout signature and records the payment.
// A replayed callback hits the unique reference index and is treated as
// already processed.
func (s *OnlinePaymentService) VerifyPayment(ctx context.Context, companyID int, req VerifyPaymentRequest) (*models.Invoice, error) {
	if !s.verifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		return nil, models.Errorf(models.ErrValidation, "invalid payment signature")
	}

	amount, err := s.fetchCapturedAmount(req.RazorpayPaymentID)
	if err != nil {
		return nil, err
	}

	inv, err := s.billing.AddPayment(ctx, companyID, req.InvoiceID, nil, models.AddPaymentRequest{
		Amount:    amount,
		Method:    models.PaymentMethodGateway,
		Reference: req.RazorpayPaymentID,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.log.WithField("payment_id", req.RazorpayPaymentID).
				Info("gateway payment already recorded")
			return s.billing.GetInvoice(ctx, companyID, req.InvoiceID)
		}
		return nil, err
	}
	return inv, nil
}

// fetchCapturedAmount asks the gateway for the payment's amount rather
// than trusting the browser callback.
func (s *OnlinePaymentService) fetchCapturedAmount(paymentID string) (decimal.Decimal, error) {
	if s.client == nil {
		return decimal.Zero, models.Errorf(models.ErrPreconditionFailed, "online payments are not configured")
	}
	payment, err := s.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch gateway payment: %w", err)
	}
	paise, ok := payment["amount"].(float64)
	if !ok {
		return decimal.Zero, models.Errorf(models.ErrValidation, "gateway payment %s has no amount", paymentID)
	}
	return decimal.NewFromFloat(paise).Div(decimal.NewFromInt(100)).Round(2), nil
}

func (s *OnlinePaymentService) verifySignature(orderID, paymentID, signature string) bool {
	if s.keySecret == "" {
		return false
	}
	data := orderID + "|" + paymentID
	h := hmac.New(sha256.New, []byte(s.keySecret))
	h.Write([]byte(data))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
