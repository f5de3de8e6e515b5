package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/zaikaroot/zaika_backend/models"
)

// PaymentGateway is the settlement engine's view of the payment provider.
// Refund reverses an online payment; Payout pushes money to a party's bank
// account or UPI address. Both return the gateway's transaction id.
type PaymentGateway interface {
	Configured() bool
	Refund(paymentRef string, amount float64) (string, error)
	Payout(name, contact string, bank *models.BankDetails, amount float64, referenceID string) (string, error)
}

// RazorpayService talks to the Razorpay REST API
type RazorpayService struct {
	baseURL       string
	keyID         string
	keySecret     string
	accountNumber string // RazorpayX virtual account funding payouts
	client        *http.Client
}

// NewRazorpayService creates a new Razorpay service instance from environment
// variables. Missing credentials leave the service unconfigured; settlement
// flows then take the manual recording path instead of calling out.
func NewRazorpayService() *RazorpayService {
	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	accountNumber := os.Getenv("RAZORPAY_ACCOUNT_NUMBER")

	if keyID == "" || keySecret == "" {
		log.Printf("WARNING: Razorpay credentials not fully configured:")
		if keyID == "" {
			log.Printf("  - RAZORPAY_KEY_ID is missing")
		}
		if keySecret == "" {
			log.Printf("  - RAZORPAY_KEY_SECRET is missing")
		}
		log.Printf("Refunds and payouts will be recorded manually without gateway calls")
	} else {
		log.Printf("Razorpay Service Configuration:")
		log.Printf("  Key ID: %s", keyID)
		log.Printf("  Secret: [CONFIGURED]")
		if accountNumber == "" {
			log.Printf("  Account number missing; automated payouts disabled")
		}
	}

	baseURL := os.Getenv("RAZORPAY_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.razorpay.com/v1/"
	}

	return &RazorpayService{
		baseURL:       baseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		accountNumber: accountNumber,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether refund calls can be attempted.
func (s *RazorpayService) Configured() bool {
	return s.keyID != "" && s.keySecret != ""
}

// makeRequest performs an HTTP request against the Razorpay API and decodes
// the response into out. A non-2xx response is returned as an error carrying
// the gateway's description.
func (s *RazorpayService) makeRequest(method, endpoint string, payload, out interface{}) error {
	if !s.Configured() {
		return fmt.Errorf("missing Razorpay credentials. Please set RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET environment variables")
	}

	url := s.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(s.keyID, s.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if os.Getenv("RAZORPAY_DEBUG") == "true" {
		log.Printf("Razorpay API %s %s -> %d: %s", method, endpoint, resp.StatusCode, string(respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr models.RazorpayError
		if jsonErr := json.Unmarshal(respBody, &apiErr); jsonErr == nil && apiErr.Error.Description != "" {
			return fmt.Errorf("razorpay API error: %s - %s", apiErr.Error.Code, apiErr.Error.Description)
		}
		return fmt.Errorf("razorpay API error: status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// Refund reverses (part of) an online payment and returns the refund id.
// Amounts are rupees; the API takes paise.
func (s *RazorpayService) Refund(paymentRef string, amount float64) (string, error) {
	payload := models.RazorpayRefundRequest{
		Amount: int64(amount * 100),
		Speed:  "normal",
	}
	var resp models.RazorpayRefundResponse
	endpoint := fmt.Sprintf("payments/%s/refund", paymentRef)
	if err := s.makeRequest("POST", endpoint, payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("failed to parse refund id from response")
	}
	return resp.ID, nil
}

// Payout pushes money to a bank account (IMPS) or UPI address and returns the
// payout id. The destination comes from the party's stored bank details.
func (s *RazorpayService) Payout(name, contact string, bank *models.BankDetails, amount float64, referenceID string) (string, error) {
	if s.accountNumber == "" {
		return "", fmt.Errorf("missing Razorpay account number. Please set RAZORPAY_ACCOUNT_NUMBER for automated payouts")
	}
	if bank == nil {
		return "", fmt.Errorf("no payout destination on record")
	}

	fund := models.RazorpayFundAccount{
		Contact: models.RazorpayContact{Name: name, Contact: contact, Type: "vendor"},
	}
	mode := "IMPS"
	switch {
	case bank.UpiID != "":
		fund.AccountType = "vpa"
		fund.VPA = &models.RazorpayVPA{Address: bank.UpiID}
		mode = "UPI"
	case bank.AccountNumber != "" && bank.IFSC != "":
		fund.AccountType = "bank_account"
		fund.BankAccount = &models.RazorpayBankAccount{
			Name:          bank.AccountHolder,
			IFSC:          bank.IFSC,
			AccountNumber: bank.AccountNumber,
		}
	default:
		return "", fmt.Errorf("payout destination needs a UPI id or account number with IFSC")
	}

	payload := models.RazorpayPayoutRequest{
		AccountNumber: s.accountNumber,
		Amount:        int64(amount * 100),
		Currency:      "INR",
		Mode:          mode,
		Purpose:       "payout",
		FundAccount:   fund,
		ReferenceID:   referenceID,
	}
	var resp models.RazorpayPayoutResponse
	if err := s.makeRequest("POST", "payouts", payload, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("failed to parse payout id from response")
	}
	return resp.ID, nil
}
