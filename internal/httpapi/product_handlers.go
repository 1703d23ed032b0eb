package httpapi

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rgourley/styleluxe/internal/db"
)

func (s *Server) handleProducts(c echo.Context) error {
	page, err := parsePositiveInt(c.QueryParam("page"), 1, 1, 1_000_000)
	if err != nil {
		return failValidation(c, map[string]string{"page": err.Error()})
	}

	pageSize, err := parsePositiveInt(c.QueryParam("page_size"), defaultPageSize, 1, maxPageSize)
	if err != nil {
		return failValidation(c, map[string]string{"page_size": err.Error()})
	}

	minScore, err := parsePositiveInt(c.QueryParam("min_score"), s.opts.DisplayMinScore, 0, 100)
	if err != nil {
		return failValidation(c, map[string]string{"min_score": err.Error()})
	}

	maxAgeDays, err := parsePositiveInt(c.QueryParam("max_age_days"), 0, 0, 3650)
	if err != nil {
		return failValidation(c, map[string]string{"max_age_days": err.Error()})
	}

	opts := db.ProductListOptions{
		Status:     strings.TrimSpace(strings.ToLower(c.QueryParam("status"))),
		MinScore:   minScore,
		MaxAgeDays: maxAgeDays,
		Sort:       c.QueryParam("sort"),
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}

	items, err := s.pool.ListProducts(c.Request().Context(), opts)
	if err != nil {
		if strings.Contains(err.Error(), "unknown") {
			return failValidation(c, map[string]string{"query": err.Error()})
		}
		s.logger.Error().Err(err).Msg("query products failed")
		return internalError(c, "Failed to load products")
	}

	return success(c, map[string]any{
		"items": items,
		"pagination": map[string]any{
			"page":      page,
			"page_size": pageSize,
		},
		"filters": map[string]any{
			"status":       opts.Status,
			"min_score":    opts.MinScore,
			"max_age_days": opts.MaxAgeDays,
			"sort":         opts.Sort,
		},
	})
}

func (s *Server) handleProductsNeedingContent(c echo.Context) error {
	minScore, limit, fieldErrors := needsContentFilters(c.QueryParam("min_score"), c.QueryParam("limit"))
	if fieldErrors != nil {
		return failValidation(c, fieldErrors)
	}

	items, err := s.pool.ListProductsNeedingContent(c.Request().Context(), minScore, limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query products needing content failed")
		return internalError(c, "Failed to load products needing content")
	}

	return success(c, map[string]any{
		"items":     items,
		"min_score": minScore,
		"limit":     limit,
	})
}

// needsContentFilters parses the content queue query. The queue serves the
// content collaborator every flagged product by default; the display score
// floor applies only to the public product list.
func needsContentFilters(minScoreRaw, limitRaw string) (minScore, limit int, fieldErrors map[string]string) {
	minScore, err := parsePositiveInt(minScoreRaw, 0, 0, 100)
	if err != nil {
		return 0, 0, map[string]string{"min_score": err.Error()}
	}
	limit, err = parsePositiveInt(limitRaw, defaultPageSize, 1, maxPageSize)
	if err != nil {
		return 0, 0, map[string]string{"limit": err.Error()}
	}
	return minScore, limit, nil
}

func (s *Server) handleProductDetail(c echo.Context) error {
	productUUID := strings.TrimSpace(c.Param("product_uuid"))
	if productUUID == "" {
		return failValidation(c, map[string]string{"product_uuid": "is required"})
	}

	detail, err := s.pool.GetProductDetail(c.Request().Context(), productUUID)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Product not found")
		}
		s.logger.Error().Err(err).Str("product_uuid", productUUID).Msg("query product detail failed")
		return internalError(c, "Failed to load product")
	}

	return success(c, detail)
}

func (s *Server) handleProductBySlug(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return failValidation(c, map[string]string{"slug": "is required"})
	}

	detail, err := s.pool.GetProductDetailBySlug(c.Request().Context(), slug)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Product not found")
		}
		s.logger.Error().Err(err).Str("slug", slug).Msg("query product by slug failed")
		return internalError(c, "Failed to load product")
	}

	return success(c, detail)
}

func (s *Server) handleProductHistory(c echo.Context) error {
	productUUID := strings.TrimSpace(c.Param("product_uuid"))
	if productUUID == "" {
		return failValidation(c, map[string]string{"product_uuid": "is required"})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultHistoryLen, 1, maxHistoryPoints)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	samples, err := s.pool.ListScoreSamples(c.Request().Context(), productUUID, limit)
	if err != nil {
		if errors.Is(err, db.ErrNoRows) {
			return failNotFound(c, "Product not found")
		}
		s.logger.Error().Err(err).Str("product_uuid", productUUID).Msg("query score history failed")
		return internalError(c, "Failed to load score history")
	}

	return success(c, map[string]any{
		"items": samples,
		"limit": limit,
	})
}
