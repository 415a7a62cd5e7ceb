// Package invoice renders paid orders as PDF invoices.
package invoice

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"hindustanbills/models"
	"hindustanbills/utils"

	"github.com/phpdave11/gofpdf"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"
)

// FileName is the on-disk name of an order's invoice.
func FileName(orderID string) string {
	return "invoice-" + utils.SanitizeFilename(orderID) + ".pdf"
}

func money(v float64) string {
	return fmt.Sprintf("Rs. %.2f", v)
}

// Render builds the invoice PDF. shop and buyer may be nil.
func Render(o *models.Order, shop *models.Shop, buyer *models.User) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+o.ID, false)
	pdf.AddPage()

	shopName := "Hindustan Bills"
	if shop != nil && shop.Name != "" {
		shopName = shop.Name
	}
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 10, tr(shopName), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	if shop != nil {
		if shop.Address != "" {
			pdf.CellFormat(0, 5, tr(shop.Address), "", 1, "L", false, 0, "")
		}
		if shop.Metadata.GSTNumber != "" {
			pdf.CellFormat(0, 5, "GSTIN: "+shop.Metadata.GSTNumber, "", 1, "L", false, 0, "")
		}
		if shop.Metadata.FSSAILicense != "" {
			pdf.CellFormat(0, 5, "FSSAI: "+shop.Metadata.FSSAILicense, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, "TAX INVOICE", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, "Invoice no: "+o.ID, "", 1, "L", false, 0, "")
	date := o.CreatedAt
	if o.PaymentInfo != nil && !o.PaymentInfo.PaidAt.IsZero() {
		date = o.PaymentInfo.PaidAt
		pdf.CellFormat(0, 5, "Transaction: "+o.PaymentInfo.TransactionID, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, "Date: "+date.Format("02 Jan 2006 15:04"), "", 1, "L", false, 0, "")

	name, email := o.Customer.Name, o.Customer.Email
	if buyer != nil {
		if name == "" {
			name = buyer.Name
		}
		if email == "" {
			email = buyer.Email
		}
	}
	if name != "" {
		pdf.CellFormat(0, 5, tr("Billed to: "+name), "", 1, "L", false, 0, "")
	}
	if email != "" {
		pdf.CellFormat(0, 5, email, "", 1, "L", false, 0, "")
	}
	if o.ShippingAddress != "" {
		pdf.CellFormat(0, 5, tr(o.ShippingAddress), "", 1, "L", false, 0, "")
	}

	qrPNG, err := qrcode.Encode(o.ID, qrcode.Medium, 256)
	if err != nil {
		return nil, errors.Wrap(err, "invoice: qr code")
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("order-qr", opts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("order-qr", 165, 12, 32, 32, false, opts, 0, "")

	pdf.Ln(6)
	widths := []float64{90, 25, 35, 40}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range []string{"Item", "Qty", "Price", "Total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, it := range o.Items {
		pdf.CellFormat(widths[0], 7, tr(it.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, money(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, money(it.Total), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	labelW := widths[0] + widths[1] + widths[2]
	totals := []struct {
		label string
		value float64
	}{
		{"Subtotal", o.Subtotal},
		{"GST", o.Tax},
		{"Total", o.Total},
	}
	for i, row := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 11)
		}
		pdf.CellFormat(labelW, 7, row.label, "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, money(row.value), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 5, "Thank you for shopping with us.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "invoice: render pdf")
	}
	return buf.Bytes(), nil
}

// Save renders the invoice into dir and returns the file name.
func Save(dir string, o *models.Order, shop *models.Shop, buyer *models.User) (string, error) {
	data, err := Render(o, shop, buyer)
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", errors.Wrap(err, "invoice: create dir")
	}
	name := FileName(o.ID)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", errors.Wrap(err, "invoice: write file")
	}
	return name, nil
}
