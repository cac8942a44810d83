package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/registrar-api/internal/dto"
	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/money"
)

type documentTypeStore interface {
	FindDocumentTypes(ctx context.Context, ids []string) ([]models.DocumentType, error)
}

// PricingService computes line items and the request total from the current
// catalog. Unit prices are snapshots: once a line is built, later catalog
// price changes never alter it.
type PricingService struct {
	catalog documentTypeStore
}

// NewPricingService constructs the service.
func NewPricingService(catalog documentTypeStore) *PricingService {
	return &PricingService{catalog: catalog}
}

// Price resolves each line's document type, snapshots its base price, and
// sums the total. A missing or inactive type fails the whole submission with
// ErrInvalidDocumentType.
func (s *PricingService) Price(ctx context.Context, lines []dto.RequestLine) ([]models.RequestDocument, money.Cents, error) {
	if len(lines) == 0 {
		return nil, 0, appErrors.Clone(appErrors.ErrValidation, "at least one document line is required")
	}

	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, 0, appErrors.Clone(appErrors.ErrValidation, "line quantity must be at least 1")
		}
		ids = append(ids, line.DocumentTypeID)
	}

	types, err := s.catalog.FindDocumentTypes(ctx, ids)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document types")
	}
	byID := make(map[string]models.DocumentType, len(types))
	for _, dt := range types {
		byID[dt.ID] = dt
	}

	documents := make([]models.RequestDocument, 0, len(lines))
	var total money.Cents
	for _, line := range lines {
		dt, ok := byID[line.DocumentTypeID]
		if !ok {
			return nil, 0, appErrors.Clone(appErrors.ErrInvalidDocumentType, fmt.Sprintf("document type %s does not exist", line.DocumentTypeID))
		}
		if !dt.Active {
			return nil, 0, appErrors.Clone(appErrors.ErrInvalidDocumentType, fmt.Sprintf("document type %q is no longer offered", dt.Name))
		}
		lineTotal := dt.BasePrice.MulQuantity(line.Quantity)
		documents = append(documents, models.RequestDocument{
			ID:             uuid.NewString(),
			DocumentTypeID: dt.ID,
			Quantity:       line.Quantity,
			UnitPrice:      dt.BasePrice,
			TotalPrice:     lineTotal,
		})
		total += lineTotal
	}

	return documents, total, nil
}
