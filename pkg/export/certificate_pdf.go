package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
)

const (
	certificateDateLayout = "02 January 2006"
	qrImageName           = "verification-qr"
	qrSizePx              = 256
)

// CertificateData is everything printed on a certificate.
type CertificateData struct {
	CertificateNo    string
	Name             string
	Gender           string
	CourseName       string
	CourseDuration   string
	Stream           string
	CollegeName      string
	CollegeRegdNo    string
	FromDate         time.Time
	ToDate           time.Time
	DateOfCompletion time.Time
	IssueDate        time.Time
	VerificationURL  string
}

// CertificatePDF renders completion certificates as landscape A4 PDFs.
type CertificatePDF struct {
	issuer string
}

// NewCertificatePDF constructs a renderer. issuer is printed in the header.
func NewCertificatePDF(issuer string) *CertificatePDF {
	if issuer == "" {
		issuer = "EVX Lab"
	}
	return &CertificatePDF{issuer: issuer}
}

// Render produces the PDF bytes. A QR code pointing at VerificationURL is
// embedded when the URL is set.
func (r *CertificatePDF) Render(data CertificateData) ([]byte, error) {
	if data.CertificateNo == "" || data.Name == "" {
		return nil, fmt.Errorf("certificate requires a number and a holder name")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetLineWidth(1.2)
	pdf.Rect(10, 10, 277, 190, "D")

	pdf.SetFont("Arial", "B", 26)
	pdf.SetY(28)
	pdf.CellFormat(0, 12, strings.ToUpper(r.issuer), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 16)
	pdf.CellFormat(0, 10, "Certificate of Completion", "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 13)
	pdf.CellFormat(0, 8, "This is to certify that", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 22)
	pdf.CellFormat(0, 12, tr(data.Name), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 13)

	body := fmt.Sprintf("%s of %s, registration no. %s, has successfully completed the %s course in %s from %s to %s.",
		honorific(data.Gender), orDash(data.Stream), data.CollegeRegdNo, orDash(data.CourseDuration), data.CourseName,
		formatDate(data.FromDate), formatDate(data.ToDate))
	if data.CollegeName != "" {
		body = fmt.Sprintf("%s (%s)", body, data.CollegeName)
	}
	pdf.SetX(35)
	pdf.MultiCell(227, 7, tr(body), "", "C", false)
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Completed on "+formatDate(data.DateOfCompletion), "", 1, "C", false, 0, "")

	pdf.SetXY(20, 172)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(120, 6, "Certificate No: "+data.CertificateNo, "", 2, "L", false, 0, "")
	pdf.CellFormat(120, 6, "Issued on: "+formatDate(data.IssueDate), "", 2, "L", false, 0, "")
	if data.VerificationURL != "" {
		pdf.SetFont("Arial", "", 8)
		pdf.CellFormat(160, 6, "Verify at "+data.VerificationURL, "", 0, "L", false, 0, "")

		png, err := qrcode.Encode(data.VerificationURL, qrcode.Medium, qrSizePx)
		if err != nil {
			return nil, fmt.Errorf("encode verification qr: %w", err)
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(qrImageName, opts, bytes.NewReader(png))
		pdf.ImageOptions(qrImageName, 242, 155, 35, 35, false, opts, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(certificateDateLayout)
}

func honorific(gender string) string {
	switch gender {
	case "female":
		return "She is a student"
	case "male":
		return "He is a student"
	default:
		return "The holder is a student"
	}
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
