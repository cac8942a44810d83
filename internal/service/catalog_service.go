package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/registrar-api/internal/models"
	appErrors "github.com/noah-isme/registrar-api/pkg/errors"
)

const (
	cacheKeyDocumentTypes = "catalog:document_types"
	cacheKeyPurposes      = "catalog:purposes"
	catalogCachePattern   = "catalog:*"
)

type catalogStore interface {
	FindDocumentType(ctx context.Context, id string) (*models.DocumentType, error)
	ListActiveDocumentTypes(ctx context.Context) ([]models.DocumentType, error)
	SetDocumentTypeActive(ctx context.Context, id string, active bool) error
	ListActivePurposes(ctx context.Context) ([]models.RequestPurpose, error)
	ListPurposesForDocumentType(ctx context.Context, documentTypeID string) ([]models.RequestPurpose, error)
}

// CatalogService serves the public catalog (offered document types and
// request purposes) with a cache in front, and the admin mutations that
// invalidate it.
type CatalogService struct {
	repo     catalogStore
	cache    *CacheService
	audit    auditLogger
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewCatalogService constructs the service.
func NewCatalogService(repo catalogStore, cache *CacheService, audit auditLogger, cacheTTL time.Duration, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &CatalogService{repo: repo, cache: cache, audit: audit, cacheTTL: cacheTTL, logger: logger}
}

// ListDocumentTypes returns the currently offered document types and whether
// the cache served them. Retired types never appear here; existing requests
// keep their snapshots regardless.
func (s *CatalogService) ListDocumentTypes(ctx context.Context) ([]models.DocumentType, bool, error) {
	var cached []models.DocumentType
	if hit, _ := s.cache.Get(ctx, cacheKeyDocumentTypes, &cached); hit {
		return cached, true, nil
	}
	types, err := s.repo.ListActiveDocumentTypes(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list document types")
	}
	if types == nil {
		types = []models.DocumentType{}
	}
	_ = s.cache.Set(ctx, cacheKeyDocumentTypes, types, s.cacheTTL)
	return types, false, nil
}

// ListPurposes returns the active request purposes and whether the cache
// served them.
func (s *CatalogService) ListPurposes(ctx context.Context) ([]models.RequestPurpose, bool, error) {
	var cached []models.RequestPurpose
	if hit, _ := s.cache.Get(ctx, cacheKeyPurposes, &cached); hit {
		return cached, true, nil
	}
	purposes, err := s.repo.ListActivePurposes(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list purposes")
	}
	if purposes == nil {
		purposes = []models.RequestPurpose{}
	}
	_ = s.cache.Set(ctx, cacheKeyPurposes, purposes, s.cacheTTL)
	return purposes, false, nil
}

// ListPurposesForDocumentType returns the purposes linked to one document
// type. Not cached; the per-type association is rarely requested.
func (s *CatalogService) ListPurposesForDocumentType(ctx context.Context, documentTypeID string) ([]models.RequestPurpose, error) {
	if _, err := s.repo.FindDocumentType(ctx, documentTypeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document type")
	}
	purposes, err := s.repo.ListPurposesForDocumentType(ctx, documentTypeID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list purposes")
	}
	if purposes == nil {
		purposes = []models.RequestPurpose{}
	}
	return purposes, nil
}

// SetDocumentTypeActive retires or restores a document type. Retiring is a
// soft delete so historical requests keep a valid reference.
func (s *CatalogService) SetDocumentTypeActive(ctx context.Context, id string, active bool, actor *models.JWTClaims) error {
	if err := s.repo.SetDocumentTypeActive(ctx, id, active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "document type not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document type")
	}
	if err := s.cache.Invalidate(ctx, catalogCachePattern); err != nil {
		s.logger.Warn("catalog cache invalidation failed", zap.Error(err))
	}
	if s.audit != nil {
		var userID *string
		if actor != nil {
			userID = &actor.UserID
		}
		payload, _ := json.Marshal(map[string]interface{}{"active": active})
		if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     userID,
			Action:     models.AuditActionCatalogUpdate,
			Resource:   "document_type",
			ResourceID: &id,
			NewValues:  payload,
		}); err != nil {
			s.logger.Warn("audit log write failed", zap.Error(err))
		}
	}
	return nil
}
