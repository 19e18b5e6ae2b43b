package pdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

const embeddedFontName = "ContractFont"

type Generator struct {
	regular []byte
	bold    []byte
}

// NewGenerator loads the UTF-8 fonts used for Vietnamese text. Each path may
// point at a TTF file or at its base64 encoding. With no regular font the
// generator falls back to the core Helvetica font.
func NewGenerator(regularPath, boldPath string) (*Generator, error) {
	g := &Generator{}
	if regularPath == "" {
		return g, nil
	}

	regular, err := loadFont(regularPath)
	if err != nil {
		return nil, err
	}
	g.regular = regular
	g.bold = regular
	if boldPath != "" {
		if g.bold, err = loadFont(boldPath); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func loadFont(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	font, err := decodeFont(raw)
	if err != nil {
		return nil, fmt.Errorf("font %s: %w", path, err)
	}
	return font, nil
}

// decodeFont accepts raw TrueType data or a base64 text encoding of it.
func decodeFont(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("font data is empty")
	}
	if isTrueType(raw) {
		return raw, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(string(raw)), ""))
	if err != nil {
		return nil, fmt.Errorf("neither TrueType nor base64: %w", err)
	}
	if !isTrueType(decoded) {
		return nil, fmt.Errorf("decoded data is not a TrueType font")
	}
	return decoded, nil
}

func isTrueType(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	magic := data[:4]
	return bytes.Equal(magic, []byte{0x00, 0x01, 0x00, 0x00}) ||
		bytes.Equal(magic, []byte("true")) ||
		bytes.Equal(magic, []byte("OTTO"))
}

func (g *Generator) Generate(doc model.ContractDocument) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)

	w := g.writer(pdf)
	pdf.AddPage()

	w.font("B", 14)
	w.cell(0, 10, "HỢP ĐỒNG THUÊ CÂY XANH", "C")

	w.font("", 11)
	w.cell(0, 6, fmt.Sprintf("Số: %s", doc.Contract.Number), "C")
	w.cell(0, 6, fmt.Sprintf("Thời hạn: %s - %s (%d tháng)",
		formatDate(doc.Contract.StartDate),
		formatDate(doc.Contract.EndDate),
		doc.Months,
	), "C")
	w.cell(0, 6, fmt.Sprintf("Trạng thái: %s", doc.Contract.Status), "C")
	pdf.Ln(4)

	w.font("B", 11)
	w.cell(0, 6, "Bên thuê", "L")
	w.font("", 10)
	for _, line := range []string{
		doc.Customer.Name,
		fmt.Sprintf("Mã số thuế: %s", safeValue(doc.Customer.TaxCode)),
		fmt.Sprintf("Địa chỉ: %s", safeValue(doc.Customer.Address)),
		fmt.Sprintf("Điện thoại: %s", safeValue(doc.Customer.Phone)),
	} {
		w.multi(0, 5, line)
	}
	pdf.Ln(4)

	w.font("B", 12)
	w.cell(0, 8, "Danh mục cây thuê", "L")

	headers := []string{"STT", "Loại cây", "Số lượng", "Đơn giá", "CK %", "Thành tiền"}
	colWidths := []float64{12, 68, 22, 30, 18, 30}
	w.row(headers, colWidths, true)
	for _, line := range doc.Lines {
		w.row([]string{
			fmt.Sprintf("%d", line.Item.Position),
			plantLabel(line.PlantType),
			fmt.Sprintf("%d", line.Item.Quantity),
			line.Item.UnitPrice.String(),
			line.Item.DiscountPercent.StringFixed(2),
			line.Item.TotalPrice.String(),
		}, colWidths, false)
	}

	pdf.Ln(2)
	w.font("", 11)
	w.cell(0, 6, fmt.Sprintf("Phí thuê hàng tháng: %s", doc.Contract.MonthlyFee), "R")
	w.cell(0, 6, fmt.Sprintf("Tổng giá trị hợp đồng: %s", doc.Contract.TotalContractValue), "R")
	w.cell(0, 6, fmt.Sprintf("Tiền đặt cọc: %s", doc.Contract.DepositAmount), "R")

	if doc.Contract.PaymentTerms != nil && strings.TrimSpace(*doc.Contract.PaymentTerms) != "" {
		pdf.Ln(2)
		w.font("B", 11)
		w.cell(0, 6, "Điều khoản thanh toán", "L")
		w.font("", 10)
		w.multi(0, 5, *doc.Contract.PaymentTerms)
	}
	if doc.Contract.TermsNotes != nil && strings.TrimSpace(*doc.Contract.TermsNotes) != "" {
		pdf.Ln(2)
		w.font("B", 11)
		w.cell(0, 6, "Ghi chú", "L")
		w.font("", 10)
		w.multi(0, 5, *doc.Contract.TermsNotes)
	}

	pdf.Ln(6)
	w.font("B", 12)
	w.cell(0, 8, "Chữ ký các bên", "L")
	w.font("", 11)
	w.cell(0, 6, "Bên cho thuê: ______________________", "L")
	w.cell(0, 6, fmt.Sprintf("Bên thuê: ______________________ /%s/", safeValue(doc.Customer.Name)), "L")

	if err := pdf.Error(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writer hides the difference between an embedded UTF-8 font and the core
// font, which needs its text translated to cp1252.
type writer struct {
	pdf      *gofpdf.Fpdf
	family   string
	translit func(string) string
}

func (g *Generator) writer(pdf *gofpdf.Fpdf) *writer {
	if len(g.regular) == 0 {
		return &writer{pdf: pdf, family: "Helvetica", translit: pdf.UnicodeTranslatorFromDescriptor("")}
	}
	pdf.AddUTF8FontFromBytes(embeddedFontName, "", g.regular)
	pdf.AddUTF8FontFromBytes(embeddedFontName, "B", g.bold)
	return &writer{pdf: pdf, family: embeddedFontName, translit: func(s string) string { return s }}
}

func (w *writer) font(style string, size float64) {
	w.pdf.SetFont(w.family, style, size)
}

func (w *writer) cell(width, height float64, text, align string) {
	w.pdf.CellFormat(width, height, w.translit(text), "", 1, align, false, 0, "")
}

func (w *writer) multi(width, height float64, text string) {
	w.pdf.MultiCell(width, height, w.translit(text), "", "L", false)
}

func (w *writer) row(cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	w.font(style, 10)
	for i, col := range cols {
		align := "L"
		if i != 1 {
			align = "R"
		}
		w.pdf.CellFormat(widths[i], 8, w.translit(col), "1", 0, align, false, 0, "")
	}
	w.pdf.Ln(-1)
}

func plantLabel(plantType model.PlantType) string {
	if plantType.Name == "" {
		return plantType.Code
	}
	return fmt.Sprintf("%s (%s)", plantType.Name, plantType.Code)
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}
