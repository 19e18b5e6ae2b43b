package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// GenerateExpiring writes a summary sheet with every expiring contract and
// one detail sheet per customer listing the rented plant items.
func (g *Generator) GenerateExpiring(report model.ExpiringReport) ([]byte, error) {
	file := excelize.NewFile()
	defer file.Close()

	summarySheet := "Tổng hợp"
	if err := file.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if err := g.writeSummary(file, summarySheet, report); err != nil {
		return nil, err
	}

	usedNames := map[string]struct{}{summarySheet: {}}
	for _, group := range groupByCustomer(report.Rows) {
		sheetName := buildSheetName(group.name, group.id, usedNames)
		usedNames[sheetName] = struct{}{}

		if _, err := file.NewSheet(sheetName); err != nil {
			return nil, err
		}
		if err := g.writeDetail(file, sheetName, report, group); err != nil {
			return nil, err
		}
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, report model.ExpiringReport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Báo cáo")
	set("B1", "Hợp đồng sắp hết hạn")
	set("A2", "Ngày lập")
	set("B2", formatDateTime(report.GeneratedAt))
	set("A3", "Trong vòng (ngày)")
	set("B3", report.WithinDays)
	set("A4", "Số hợp đồng")
	set("B4", len(report.Rows))
	set("A5", "Tổng phí hàng tháng")
	set("B5", sumMonthly(report.Rows).InexactFloat64())

	tableRow := 7
	headers := []string{
		"Số hợp đồng",
		"Khách hàng",
		"Ngày bắt đầu",
		"Ngày kết thúc",
		"Còn lại (ngày)",
		"Phí hàng tháng",
		"Tổng giá trị",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, row := range report.Rows {
		r := tableRow + 1 + i
		set(fmt.Sprintf("A%d", r), row.Contract.Number)
		set(fmt.Sprintf("B%d", r), row.CustomerName)
		set(fmt.Sprintf("C%d", r), formatDate(row.Contract.StartDate))
		set(fmt.Sprintf("D%d", r), formatDate(row.Contract.EndDate))
		set(fmt.Sprintf("E%d", r), row.DaysLeft)
		set(fmt.Sprintf("F%d", r), moneyValue(row.Contract.MonthlyFee))
		set(fmt.Sprintf("G%d", r), moneyValue(row.Contract.TotalContractValue))
	}

	_ = file.SetColWidth(sheet, "A", "A", 22)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	_ = file.SetColWidth(sheet, "C", "E", 16)
	_ = file.SetColWidth(sheet, "F", "G", 18)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, report model.ExpiringReport, group customerGroup) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	set("A1", "Khách hàng")
	set("B1", group.name)
	set("A2", "Trong vòng (ngày)")
	set("B2", report.WithinDays)
	set("A3", "Số hợp đồng")
	set("B3", len(group.rows))

	tableRow := 5
	headers := []string{
		"Số hợp đồng",
		"Ngày kết thúc",
		"STT",
		"Mã loại cây",
		"Số lượng",
		"Đơn giá",
		"Chiết khấu, %",
		"Thành tiền",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	r := tableRow + 1
	for _, row := range group.rows {
		for _, item := range row.Contract.Items {
			set(fmt.Sprintf("A%d", r), row.Contract.Number)
			set(fmt.Sprintf("B%d", r), formatDate(row.Contract.EndDate))
			set(fmt.Sprintf("C%d", r), item.Position)
			set(fmt.Sprintf("D%d", r), item.PlantTypeID.String())
			set(fmt.Sprintf("E%d", r), item.Quantity)
			set(fmt.Sprintf("F%d", r), moneyValue(item.UnitPrice))
			set(fmt.Sprintf("G%d", r), item.DiscountPercent.InexactFloat64())
			set(fmt.Sprintf("H%d", r), moneyValue(item.TotalPrice))
			r++
		}
	}

	_ = file.SetColWidth(sheet, "A", "B", 20)
	_ = file.SetColWidth(sheet, "C", "C", 8)
	_ = file.SetColWidth(sheet, "D", "D", 38)
	_ = file.SetColWidth(sheet, "E", "H", 14)
	return nil
}

type customerGroup struct {
	id   uuid.UUID
	name string
	rows []model.ExpiringRow
}

// groupByCustomer keeps the order in which customers first appear.
func groupByCustomer(rows []model.ExpiringRow) []customerGroup {
	index := make(map[uuid.UUID]int)
	var groups []customerGroup
	for _, row := range rows {
		i, ok := index[row.Contract.CustomerID]
		if !ok {
			i = len(groups)
			index[row.Contract.CustomerID] = i
			groups = append(groups, customerGroup{id: row.Contract.CustomerID, name: row.CustomerName})
		}
		groups[i].rows = append(groups[i].rows, row)
	}
	return groups
}

// buildSheetName returns a unique sheet name of at most 31 characters.
func buildSheetName(name string, id uuid.UUID, used map[string]struct{}) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = id.String()
	}
	base = truncateRunes(sanitizeSheetName(base), 31)

	candidate := base
	counter := 2
	for {
		if _, exists := used[candidate]; !exists {
			return candidate
		}
		suffix := fmt.Sprintf("-%d", counter)
		candidate = truncateRunes(base, 31-len(suffix)) + suffix
		counter++
	}
}

func sanitizeSheetName(value string) string {
	replacer := strings.NewReplacer(
		"[", "-",
		"]", "-",
		":", "-",
		"*", "-",
		"?", "-",
		"/", "-",
		"\\", "-",
	)
	value = strings.TrimSpace(replacer.Replace(value))
	if value == "" {
		return "Trang"
	}
	return value
}

func truncateRunes(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

func sumMonthly(rows []model.ExpiringRow) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Contract.MonthlyFee.Decimal())
	}
	return total
}

func moneyValue(m model.Money) float64 {
	return m.Decimal().InexactFloat64()
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
