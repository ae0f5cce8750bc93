package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mfinch/pocketwatch/internal/common"
	"github.com/mfinch/pocketwatch/internal/model"
)

func (s *Server) listCategories(c *gin.Context) {
	p := principal(c)

	includeInactive := c.Query("include_inactive") == "true"
	categories, err := s.storage.GetCategories(c.Request.Context(), p.HouseholdID, includeInactive)
	if err != nil {
		s.respondError(c, err)
		return
	}

	responses := make([]categoryResponse, 0, len(categories))
	for i := range categories {
		responses = append(responses, newCategoryResponse(&categories[i]))
	}
	c.JSON(http.StatusOK, gin.H{"categories": responses})
}

type createCategoryRequest struct {
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
}

func (s *Server) createCategory(c *gin.Context) {
	p := principal(c)

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewValidationError("invalid request body: %v", err))
		return
	}
	if req.Name == "" || req.Slug == "" {
		s.respondError(c, common.NewValidationError("name and slug are required"))
		return
	}

	category := &model.Category{
		HouseholdID: p.HouseholdID,
		Name:        req.Name,
		Slug:        req.Slug,
		Icon:        req.Icon,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	}
	if err := s.storage.CreateCategory(c.Request.Context(), category); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCategoryResponse(category))
}

type updateCategoryRequest struct {
	Name      *string `json:"name"`
	Slug      *string `json:"slug"`
	Icon      *string `json:"icon"`
	SortOrder *int    `json:"sort_order"`
	IsActive  *bool   `json:"is_active"`
}

func (s *Server) updateCategory(c *gin.Context) {
	p := principal(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewValidationError("invalid category id"))
		return
	}

	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, common.NewValidationError("invalid request body: %v", err))
		return
	}

	category, err := s.storage.GetCategoryByID(c.Request.Context(), p.HouseholdID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Slug != nil {
		category.Slug = *req.Slug
	}
	if req.Icon != nil {
		category.Icon = *req.Icon
	}
	if req.SortOrder != nil {
		category.SortOrder = *req.SortOrder
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := s.storage.UpdateCategory(c.Request.Context(), category); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCategoryResponse(category))
}

// deleteCategory is a soft delete: the category is deactivated so historical
// receipts keep their reference.
func (s *Server) deleteCategory(c *gin.Context) {
	p := principal(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.respondError(c, common.NewValidationError("invalid category id"))
		return
	}

	category, err := s.storage.GetCategoryByID(c.Request.Context(), p.HouseholdID, id)
	if err != nil {
		s.respondError(c, err)
		return
	}

	category.IsActive = false
	if err := s.storage.UpdateCategory(c.Request.Context(), category); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
