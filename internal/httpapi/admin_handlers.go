package httpapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rgourley/styleluxe/internal/faults"
	"github.com/rgourley/styleluxe/internal/lifecycle"
)

type contentReadyRequest struct {
	Actor string `json:"actor"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

type actorRequest struct {
	Actor string `json:"actor"`
}

type reflagRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type mergeRequest struct {
	DuplicateUUID string `json:"duplicate_uuid"`
	TargetUUID    string `json:"target_uuid"`
}

func (s *Server) handleContentReady(c echo.Context) error {
	productUUID := strings.TrimSpace(c.Param("product_uuid"))
	if productUUID == "" {
		return failValidation(c, map[string]string{"product_uuid": "is required"})
	}

	var req contentReadyRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	var content *lifecycle.Content
	if strings.TrimSpace(req.Title) != "" || strings.TrimSpace(req.Body) != "" {
		content = &lifecycle.Content{
			Title: strings.TrimSpace(req.Title),
			Body:  strings.TrimSpace(req.Body),
		}
	}

	if err := s.controller.MarkContentReady(c.Request().Context(), productUUID, strings.TrimSpace(req.Actor), content); err != nil {
		return s.lifecycleError(c, productUUID, err)
	}

	return success(c, map[string]any{
		"product_uuid": productUUID,
		"status":       "draft",
	})
}

func (s *Server) handlePublish(c echo.Context) error {
	productUUID := strings.TrimSpace(c.Param("product_uuid"))
	if productUUID == "" {
		return failValidation(c, map[string]string{"product_uuid": "is required"})
	}

	var req actorRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	if err := s.controller.Publish(c.Request().Context(), productUUID, strings.TrimSpace(req.Actor)); err != nil {
		return s.lifecycleError(c, productUUID, err)
	}

	return success(c, map[string]any{
		"product_uuid": productUUID,
		"status":       "published",
	})
}

func (s *Server) handleReflag(c echo.Context) error {
	productUUID := strings.TrimSpace(c.Param("product_uuid"))
	if productUUID == "" {
		return failValidation(c, map[string]string{"product_uuid": "is required"})
	}

	var req reflagRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}
	if strings.TrimSpace(req.Reason) == "" {
		return failValidation(c, map[string]string{"reason": "is required"})
	}

	if err := s.controller.Reflag(c.Request().Context(), productUUID, strings.TrimSpace(req.Actor), strings.TrimSpace(req.Reason)); err != nil {
		return s.lifecycleError(c, productUUID, err)
	}

	return success(c, map[string]any{
		"product_uuid": productUUID,
		"status":       "flagged",
	})
}

func (s *Server) handleMerge(c echo.Context) error {
	var req mergeRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "must be valid JSON"})
	}

	result, err := s.operator.Merge(c.Request().Context(), req.DuplicateUUID, req.TargetUUID)
	if err != nil {
		switch {
		case faults.IsNotFound(err):
			return failNotFound(c, err.Error())
		case faults.IsValidation(err):
			return fail(c, http.StatusBadRequest, err.Error(), nil)
		default:
			s.logger.Error().
				Err(err).
				Str("duplicate_uuid", req.DuplicateUUID).
				Str("target_uuid", req.TargetUUID).
				Msg("merge failed")
			return internalError(c, "Merge failed")
		}
	}

	return success(c, result)
}

func (s *Server) handleRecalculate(c echo.Context) error {
	summary, err := s.engine.RecalculateAll(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("recalculate failed")
		return internalError(c, "Recalculate failed")
	}
	return success(c, summary)
}

func (s *Server) lifecycleError(c echo.Context, productUUID string, err error) error {
	switch {
	case faults.IsNotFound(err):
		return failNotFound(c, "Product not found")
	case faults.IsValidation(err):
		return failConflict(c, err.Error())
	default:
		s.logger.Error().Err(err).Str("product_uuid", productUUID).Msg("lifecycle transition failed")
		return internalError(c, "Lifecycle transition failed")
	}
}
