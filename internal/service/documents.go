package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nurpe/plantrent-contracts/internal/model"
)

type FileResult struct {
	FileName string
	Content  []byte
}

func (s *ContractService) ExportExpiring(ctx context.Context, withinDays int) (*FileResult, error) {
	if withinDays <= 0 {
		withinDays = s.expiringDays
	}
	contracts, err := s.ExpiringContracts(ctx, withinDays)
	if err != nil {
		return nil, err
	}

	today := s.today()
	names := make(map[uuid.UUID]string)
	report := model.ExpiringReport{
		GeneratedAt: s.now(),
		WithinDays:  withinDays,
		Rows:        make([]model.ExpiringRow, 0, len(contracts)),
	}
	for _, contract := range contracts {
		name, ok := names[contract.CustomerID]
		if !ok {
			customer, err := s.customers.Get(ctx, contract.CustomerID)
			switch {
			case err == nil:
				name = customer.Name
			case errors.Is(err, gorm.ErrRecordNotFound):
				name = contract.CustomerID.String()
			default:
				return nil, err
			}
			names[contract.CustomerID] = name
		}
		report.Rows = append(report.Rows, model.ExpiringRow{
			Contract:     contract,
			CustomerName: name,
			DaysLeft:     int(contract.EndDate.Sub(today).Hours() / 24),
		})
	}

	content, err := s.excel.GenerateExpiring(report)
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: fmt.Sprintf("contracts-expiring-%s-%dd.xlsx", today.Format("20060102"), withinDays),
		Content:  content,
	}, nil
}

func (s *ContractService) ContractDocument(ctx context.Context, id uuid.UUID) (*FileResult, error) {
	contract, err := s.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	customer, err := s.customers.Get(ctx, contract.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, contract.CustomerID)
		}
		return nil, err
	}
	catalog, err := s.catalog.FindByIDs(ctx, contract.PlantTypeIDs())
	if err != nil {
		return nil, err
	}

	doc := model.ContractDocument{
		Contract: *contract,
		Customer: *customer,
		Months:   model.MonthsInclusive(contract.StartDate, contract.EndDate),
	}
	for _, item := range contract.Items {
		plantType, ok := catalog[item.PlantTypeID]
		if !ok {
			plantType = model.PlantType{ID: item.PlantTypeID, Code: item.PlantTypeID.String()}
		}
		doc.Lines = append(doc.Lines, model.ContractDocumentLine{Item: item, PlantType: plantType})
	}

	content, err := s.pdf.Generate(doc)
	if err != nil {
		return nil, err
	}
	return &FileResult{
		FileName: sanitizeFileName(contract.Number) + ".pdf",
		Content:  content,
	}, nil
}

func sanitizeFileName(input string) string {
	result := make([]rune, 0, len(input))
	for _, r := range input {
		switch {
		case r >= 'a' && r <= 'z':
			result = append(result, r)
		case r >= 'A' && r <= 'Z':
			result = append(result, r)
		case r >= '0' && r <= '9':
			result = append(result, r)
		case r == '-', r == '_':
			result = append(result, r)
		default:
			result = append(result, '-')
		}
	}
	name := strings.Trim(string(result), "-")
	if name == "" {
		return "contract"
	}
	return name
}
