// utils/mailer.go
package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"
)

// SendSettlementReceipt emails a plain-text receipt for a recorded
// settlement, payout or refund. Failures are returned to the caller,
// who logs them without failing the settlement itself.
func SendSettlementReceipt(email, name, kind string, amount float64, receiptID string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	fromEmail := os.Getenv("FROM_EMAIL")

	senderEmail := fromEmail
	if senderEmail == "" {
		senderEmail = smtpUser
	}

	if smtpHost == "" {
		smtpHost = "mail.smtp2go.com"
	}
	if smtpUser == "" || smtpPass == "" {
		return fmt.Errorf("SMTP configuration is incomplete: check SMTP_USER and SMTP_PASS")
	}

	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		if portNum, err := strconv.Atoi(portStr); err == nil && portNum > 0 {
			smtpPort = portNum
		}
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nA %s of Rs. %.2f has been recorded on your account.\nReceipt ID: %s\n\nKeep this receipt ID for any reconciliation queries.\n\nZaika Back Office",
		name, kind, amount, receiptID,
	)

	m := gomail.NewMessage()
	m.SetHeader("From", senderEmail)
	m.SetHeader("To", email)
	m.SetHeader("Subject", fmt.Sprintf("Settlement receipt %s", receiptID))
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	if err := d.DialAndSend(m); err != nil {
		log.Printf("Failed to send receipt email to %s: %v", email, err)
		return err
	}

	return nil
}
