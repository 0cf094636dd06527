package warranty

import (
	"encoding/base64"
	"fmt"
	"log"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"warranty-backend/internal/model"
)

// Certificate is the data payload backing a printable warranty
// certificate. Produced only for active records.
type Certificate struct {
	Number         string     `json:"number"`
	CustomerName   string     `json:"customer_name"`
	OrderID        string     `json:"order_id"`
	ProductName    string     `json:"product_name"`
	WarrantyMonths int        `json:"warranty_months"`
	ActivationDate *time.Time `json:"activation_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	VerifyURL      string     `json:"verify_url"`
	QRCodePNG      string     `json:"qr_code_png,omitempty"` // base64
}

// BuildCertificate assembles the certificate payload for an active
// record. checkURL is the public warranty-check page the verify link
// points at; the QR code encodes the same link.
func BuildCertificate(rec *model.WarrantyRecord, checkURL string) *Certificate {
	if rec == nil || rec.Status != model.StatusActive {
		return nil
	}

	token := EncodeVerifyToken(rec.OrderID, rec.PhoneNumber, rec.ID)
	verifyURL := fmt.Sprintf("%s?verify=%s", checkURL, token)

	cert := &Certificate{
		Number:         fmt.Sprintf("WC-%08d", rec.ID),
		CustomerName:   rec.CustomerName,
		OrderID:        rec.OrderID,
		ProductName:    rec.ProductName,
		WarrantyMonths: rec.WarrantyMonths,
		ActivationDate: rec.ActivationDate,
		ExpiryDate:     rec.ExpiryDate,
		VerifyURL:      verifyURL,
	}

	png, err := qrcode.Encode(verifyURL, qrcode.Medium, 256)
	if err != nil {
		// Certificate is still usable without the QR image.
		log.Printf("Failed to encode certificate QR code for record %d: %v", rec.ID, err)
	} else {
		cert.QRCodePNG = base64.StdEncoding.EncodeToString(png)
	}
	return cert
}
