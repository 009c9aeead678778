package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"orgstruct-web/internal/repository"
	"orgstruct-web/internal/utils"
)

type OrgHandler struct {
	orgRepo *repository.OrgRepository
}

func NewOrgHandler(orgRepo *repository.OrgRepository) *OrgHandler {
	return &OrgHandler{orgRepo: orgRepo}
}

func (h *OrgHandler) GetOrganization(c *fiber.Ctx) error {
	orgID, err := strconv.ParseInt(c.Params("orgId"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid organization ID", err)
	}

	org, err := h.orgRepo.FindOrganization(c.Context(), orgID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Organization not found", err)
	}

	return utils.SuccessResponse(c, "Organization retrieved successfully", org)
}

func (h *OrgHandler) GetDepartments(c *fiber.Ctx) error {
	orgID, err := strconv.ParseInt(c.Params("orgId"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid organization ID", err)
	}

	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	departments, total, err := h.orgRepo.ListDepartments(c.Context(), orgID, params.Limit, offset, params.Search)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve departments", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))

	return utils.PaginatedResponseBuilder(c, "Departments retrieved successfully", fiber.Map{
		"departments": departments,
	}, pagination)
}

func (h *OrgHandler) GetPositions(c *fiber.Ctx) error {
	orgID, err := strconv.ParseInt(c.Params("orgId"), 10, 64)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid organization ID", err)
	}

	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	positions, total, err := h.orgRepo.ListPositions(c.Context(), orgID, params.Limit, offset, params.Search)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve positions", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))

	return utils.PaginatedResponseBuilder(c, "Positions retrieved successfully", fiber.Map{
		"positions": positions,
	}, pagination)
}
