package excel

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

func expiringRow(customerID uuid.UUID, customer, number string, fee model.Money) model.ExpiringRow {
	return model.ExpiringRow{
		Contract: model.Contract{
			ID:                 uuid.New(),
			Number:             number,
			CustomerID:         customerID,
			StartDate:          time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC),
			EndDate:            time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
			MonthlyFee:         fee,
			TotalContractValue: fee * 12,
			Items: []model.ContractItem{
				{Position: 1, PlantTypeID: uuid.New(), Quantity: 2, UnitPrice: fee / 2, TotalPrice: fee},
			},
		},
		CustomerName: customer,
		DaysLeft:     16,
	}
}

func TestGenerateExpiring(t *testing.T) {
	sen, lotus := uuid.New(), uuid.New()
	report := model.ExpiringReport{
		GeneratedAt: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		WithinDays:  30,
		Rows: []model.ExpiringRow{
			expiringRow(sen, "Cafe Sen", "HD-202304-0001", 150000),
			expiringRow(lotus, "Lotus: Office", "HD-202304-0002", 250050),
			expiringRow(sen, "Cafe Sen", "HD-202304-0003", 100000),
		},
	}

	content, err := NewGenerator().GenerateExpiring(report)
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(content))
	require.NoError(t, err)
	defer file.Close()

	assert.Equal(t, []string{"Tổng hợp", "Cafe Sen", "Lotus- Office"}, file.GetSheetList())

	count, err := file.GetCellValue("Tổng hợp", "B4")
	require.NoError(t, err)
	assert.Equal(t, "3", count)

	total, err := file.GetCellValue("Tổng hợp", "B5")
	require.NoError(t, err)
	assert.Equal(t, "5000.5", total)

	number, err := file.GetCellValue("Tổng hợp", "A9")
	require.NoError(t, err)
	assert.Equal(t, "HD-202304-0002", number)

	detailRows, err := file.GetRows("Cafe Sen")
	require.NoError(t, err)
	assert.Len(t, detailRows, 7)
	assert.Equal(t, "HD-202304-0003", detailRows[6][0])
}

func TestBuildSheetName(t *testing.T) {
	used := map[string]struct{}{}
	id := uuid.New()

	long := strings.Repeat("Công ty cây xanh ", 4)
	first := buildSheetName(long, id, used)
	assert.Len(t, []rune(first), 31)
	used[first] = struct{}{}

	second := buildSheetName(long, id, used)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "-2"))
	assert.LessOrEqual(t, len([]rune(second)), 31)

	assert.Equal(t, id.String()[:31], buildSheetName("  ", id, map[string]struct{}{}))
	assert.Equal(t, "a-b-c", buildSheetName("a/b?c", id, map[string]struct{}{}))
}
