package models

// RazorpayRefundRequest represents the request body for a gateway refund
type RazorpayRefundRequest struct {
	Amount int64  `json:"amount"` // paise
	Speed  string `json:"speed,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

// RazorpayRefundResponse represents the gateway's refund response
type RazorpayRefundResponse struct {
	ID        string `json:"id"`
	Entity    string `json:"entity"`
	Amount    int64  `json:"amount"`
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
}

// RazorpayPayoutRequest represents the request body for a gateway payout
type RazorpayPayoutRequest struct {
	AccountNumber string `json:"account_number"`
	Amount        int64  `json:"amount"` // paise
	Currency      string `json:"currency"`
	Mode          string `json:"mode"` // "IMPS", "UPI"
	Purpose       string `json:"purpose"`
	FundAccount   RazorpayFundAccount `json:"fund_account"`
	Narration     string `json:"narration,omitempty"`
	ReferenceID   string `json:"reference_id,omitempty"`
}

// RazorpayFundAccount describes the payout destination
type RazorpayFundAccount struct {
	AccountType string               `json:"account_type"` // "bank_account" or "vpa"
	BankAccount *RazorpayBankAccount `json:"bank_account,omitempty"`
	VPA         *RazorpayVPA         `json:"vpa,omitempty"`
	Contact     RazorpayContact      `json:"contact"`
}

type RazorpayBankAccount struct {
	Name          string `json:"name"`
	IFSC          string `json:"ifsc"`
	AccountNumber string `json:"account_number"`
}

type RazorpayVPA struct {
	Address string `json:"address"`
}

type RazorpayContact struct {
	Name    string `json:"name"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty"`
	Type    string `json:"type"` // "vendor" or "employee"
}

// RazorpayPayoutResponse represents the gateway's payout response
type RazorpayPayoutResponse struct {
	ID          string `json:"id"`
	Entity      string `json:"entity"`
	Amount      int64  `json:"amount"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id,omitempty"`
	UTR         string `json:"utr,omitempty"`
}

// RazorpayError represents the gateway's error envelope
type RazorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}
