package services

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/polarad/portal/internal/models"
)

// RenderContractPDF produces the downloadable agreement document. The
// built-in core fonts are Latin-1 only, so free-text fields are written
// through latinize; the contract number, amounts and dates are the
// verifiable content of this summary document.
func RenderContractPDF(contract *models.Contract) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Service Agreement "+contract.ContractNumber, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, "Service Agreement", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, "Contract No. "+contract.ContractNumber, "", 1, "C", false, 0, "")
	pdf.Ln(6)

	rows := [][2]string{
		{"Company", latinize(contract.CompanyName)},
		{"CEO", latinize(contract.CEOName)},
		{"Business No.", contract.BusinessNumber},
		{"Address", latinize(contract.Address)},
		{"Contact", latinize(contract.ContactName)},
		{"Phone", contract.ContactPhone},
		{"Email", contract.ContactEmail},
		{"Package", latinize(contract.Package.DisplayName)},
		{"Period", fmt.Sprintf("%d months", contract.ContractPeriod)},
		{"Monthly Fee", fmt.Sprintf("KRW %d", contract.MonthlyFee)},
		{"Total Amount", fmt.Sprintf("KRW %d", contract.TotalAmount)},
		{"Status", contract.Status},
	}

	if contract.StartDate != nil && contract.EndDate != nil {
		rows = append(rows, [2]string{"Term",
			contract.StartDate.Format("2006-01-02") + " ~ " + contract.EndDate.Format("2006-01-02")})
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(45, 8, row[0], "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 8, row[1], "1", 1, "L", false, 0, "")
	}

	if contract.SignedAt != nil {
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 8, "Signed at "+contract.SignedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")

		if img, format, err := decodeSignature(contract.ClientSignature); err == nil {
			opts := fpdf.ImageOptions{ImageType: format, ReadDpi: true}
			pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(img))
			pdf.ImageOptions("signature", pdf.GetX(), pdf.GetY(), 60, 0, true, opts, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render contract pdf: %w", err)
	}

	return buf.Bytes(), nil
}

// decodeSignature splits a signature-pad data URL into raw image bytes
// and the fpdf image type.
func decodeSignature(dataURL string) ([]byte, string, error) {
	const prefix = "data:image/"

	if !strings.HasPrefix(dataURL, prefix) {
		return nil, "", fmt.Errorf("not an image data URL")
	}

	rest := strings.TrimPrefix(dataURL, prefix)
	semi := strings.Index(rest, ";base64,")
	if semi < 0 {
		return nil, "", fmt.Errorf("not a base64 data URL")
	}

	format := rest[:semi]
	if format != "png" && format != "jpeg" {
		return nil, "", fmt.Errorf("unsupported signature format %q", format)
	}

	raw, err := base64.StdEncoding.DecodeString(rest[semi+len(";base64,"):])
	if err != nil {
		return nil, "", fmt.Errorf("decode signature: %w", err)
	}

	return raw, format, nil
}

// latinize keeps characters the core PDF fonts can draw and replaces the
// rest with '?'. Good enough for name and address echoes in the summary
// table.
func latinize(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 256 {
			b.WriteRune(r)
		} else {
			b.WriteByte('?')
		}
	}
	return b.String()
}
