package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-api/internal/dto"
	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
	"github.com/noah-isme/registrar-api/pkg/money"
)

type mockDocumentTypeStore struct {
	types []models.DocumentType
	err   error
}

func (m *mockDocumentTypeStore) FindDocumentTypes(ctx context.Context, ids []string) ([]models.DocumentType, error) {
	if m.err != nil {
		return nil, m.err
	}
	requested := make(map[string]bool, len(ids))
	for _, id := range ids {
		requested[id] = true
	}
	var found []models.DocumentType
	for _, dt := range m.types {
		if requested[dt.ID] {
			found = append(found, dt)
		}
	}
	return found, nil
}

func mustCents(t *testing.T, raw string) money.Cents {
	t.Helper()
	c, err := money.Parse(raw)
	require.NoError(t, err)
	return c
}

func TestPriceSnapshotsAndTotal(t *testing.T) {
	store := &mockDocumentTypeStore{types: []models.DocumentType{
		{ID: "dt-a", Name: "Transcript of Records", BasePrice: mustCents(t, "50.00"), Active: true},
		{ID: "dt-b", Name: "Certificate of Enrollment", BasePrice: mustCents(t, "30.00"), Active: true},
	}}
	svc := NewPricingService(store)

	documents, total, err := svc.Price(context.Background(), []dto.RequestLine{
		{DocumentTypeID: "dt-a", Quantity: 2},
		{DocumentTypeID: "dt-b", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, documents, 2)

	assert.Equal(t, mustCents(t, "50.00"), documents[0].UnitPrice)
	assert.Equal(t, mustCents(t, "100.00"), documents[0].TotalPrice)
	assert.Equal(t, mustCents(t, "30.00"), documents[1].UnitPrice)
	assert.Equal(t, mustCents(t, "30.00"), documents[1].TotalPrice)
	assert.Equal(t, "130.00", total.String())
}

func TestPriceRejectsUnknownDocumentType(t *testing.T) {
	store := &mockDocumentTypeStore{types: []models.DocumentType{
		{ID: "dt-a", Name: "Transcript of Records", BasePrice: mustCents(t, "50.00"), Active: true},
	}}
	svc := NewPricingService(store)

	_, _, err := svc.Price(context.Background(), []dto.RequestLine{
		{DocumentTypeID: "dt-a", Quantity: 1},
		{DocumentTypeID: "dt-missing", Quantity: 1},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidDocumentType.Code, appErr.Code)
}

func TestPriceRejectsInactiveDocumentType(t *testing.T) {
	store := &mockDocumentTypeStore{types: []models.DocumentType{
		{ID: "dt-retired", Name: "Old Form", BasePrice: mustCents(t, "25.00"), Active: false},
	}}
	svc := NewPricingService(store)

	_, _, err := svc.Price(context.Background(), []dto.RequestLine{
		{DocumentTypeID: "dt-retired", Quantity: 1},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidDocumentType.Code, appErr.Code)
}

func TestPriceRejectsBadQuantityAndEmptyLines(t *testing.T) {
	svc := NewPricingService(&mockDocumentTypeStore{})

	_, _, err := svc.Price(context.Background(), nil)
	require.Error(t, err)

	_, _, err = svc.Price(context.Background(), []dto.RequestLine{
		{DocumentTypeID: "dt-a", Quantity: 0},
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
