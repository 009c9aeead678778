package handler

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"orgstruct-web/internal/config"
	"orgstruct-web/internal/models"
	"orgstruct-web/internal/repository"
	"orgstruct-web/internal/service"
	"orgstruct-web/internal/utils"
)

type ImportHandler struct {
	sessionRepo  *repository.SessionRepository
	orgRepo      *repository.OrgRepository
	excelService *service.ExcelService
	detector     *service.DuplicateDetector
	asynqClient  *asynq.Client
	redisClient  *redis.Client
	cfg          *config.Config
}

func NewImportHandler(
	sessionRepo *repository.SessionRepository,
	orgRepo *repository.OrgRepository,
	excelService *service.ExcelService,
	detector *service.DuplicateDetector,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	cfg *config.Config,
) *ImportHandler {
	return &ImportHandler{
		sessionRepo:  sessionRepo,
		orgRepo:      orgRepo,
		excelService: excelService,
		detector:     detector,
		asynqClient:  asynqClient,
		redisClient:  redisClient,
		cfg:          cfg,
	}
}

// UploadWorkbook receives the workbook, parses both sheets, and returns a
// full preview: validation errors, duplicate groups with recommended
// resolutions, and the create/update split. Nothing is written to the
// organization yet; the preview belongs to the session until execute.
func (h *ImportHandler) UploadWorkbook(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)

	orgID, err := strconv.ParseInt(c.FormValue("organization_id"), 10, 64)
	if err != nil || orgID < 1 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Valid organization_id is required", err)
	}
	if _, err := h.orgRepo.FindOrganization(c.Context(), orgID); err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Organization not found", err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}

	ext := filepath.Ext(file.Filename)
	if ext != ".xlsx" && ext != ".xls" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only Excel files (.xlsx, .xls) are allowed", nil)
	}
	if file.Size > int64(h.cfg.UploadMaxSize) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds maximum limit", nil)
	}

	sessionCode := fmt.Sprintf("IMPORT-%s", uuid.New().String()[:8])

	filePath := filepath.Join(h.cfg.UploadPath, fmt.Sprintf("%s%s", sessionCode, ext))
	if err := c.SaveFile(file, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	parsed, err := h.excelService.ParseOrgWorkbook(filePath)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to parse Excel file", err)
	}

	detection := h.detector.DetectDuplicates(parsed.Rows)

	deptIDs, err := h.orgRepo.GetDepartmentCodes(c.Context(), orgID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read existing departments", err)
	}
	posIDs, err := h.orgRepo.GetPositionCodes(c.Context(), orgID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read existing positions", err)
	}
	service.ClassifyDepartments(parsed.Rows.Departments, deptIDs)
	service.ClassifyPositions(parsed.Rows.Positions, posIDs)

	session := &models.ImportSession{
		SessionCode:    sessionCode,
		OrganizationID: orgID,
		UserID:         userID,
		Filename:       file.Filename,
		FilePath:       filePath,
		DepartmentRows: len(parsed.Rows.Departments),
		PositionRows:   len(parsed.Rows.Positions),
		Status:         models.SessionStatusUploaded,
	}
	if err := h.sessionRepo.CreateSession(session); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create import session", err)
	}

	return utils.SuccessResponse(c, "File uploaded successfully", fiber.Map{
		"session":           session,
		"validation_errors": parsed.ValidationErrors,
		"duplicates":        detection,
		"classification":    classificationSummary(parsed.Rows),
	})
}

type executeRequest struct {
	Resolutions []models.DuplicateResolution `json:"resolutions"`
}

// ExecuteImport queues the background job that applies the session's rows
// to the organization. Duplicate resolutions chosen in the preview travel
// with the session.
func (h *ImportHandler) ExecuteImport(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session ID", err)
	}

	session, err := h.sessionRepo.GetSessionByID(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	switch session.Status {
	case models.SessionStatusProcessing:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Session is already being processed", nil)
	case models.SessionStatusCompleted:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Session is already completed", nil)
	case models.SessionStatusCanceled:
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Session was canceled", nil)
	}

	// Refuse before any state change; a session marked processing with no
	// queued task behind it could never be executed or canceled again.
	if h.asynqClient == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background job processing is not available (Redis not connected)", nil)
	}

	var req executeRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
	}

	resolutionsJSON, err := json.Marshal(req.Resolutions)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encode resolutions", err)
	}
	if err := h.sessionRepo.SetSessionResolutions(id, string(resolutionsJSON)); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store resolutions", err)
	}

	if err := h.sessionRepo.UpdateSessionStatus(id, models.SessionStatusProcessing); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update session status", err)
	}

	payload, _ := json.Marshal(fiber.Map{
		"session_id":   session.ID,
		"session_code": session.SessionCode,
	})

	task := asynq.NewTask("orgimport:execute", payload)
	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		// Release the session so execute can be retried once the queue is back.
		if revertErr := h.sessionRepo.UpdateSessionStatus(id, models.SessionStatusUploaded); revertErr != nil {
			utils.GetLogger().WithField("session_code", session.SessionCode).
				Warnf("failed to release session after enqueue error: %v", revertErr)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to queue import task", err)
	}

	return utils.SuccessResponse(c, "Import started", fiber.Map{
		"job_id":  info.ID,
		"session": session,
	})
}

func (h *ImportHandler) GetSessions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(int)
	role := c.Locals("role").(string)

	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	// Admins see all sessions, users only their own.
	filterUserID := 0
	if role != "admin" {
		filterUserID = userID
	}

	sessions, total, err := h.sessionRepo.GetSessions(params.Limit, offset, filterUserID)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve sessions", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))

	return utils.PaginatedResponseBuilder(c, "Sessions retrieved successfully", fiber.Map{
		"sessions": sessions,
	}, pagination)
}

func (h *ImportHandler) GetSessionDetail(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session ID", err)
	}

	session, err := h.sessionRepo.GetSessionByID(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	return utils.SuccessResponse(c, "Session retrieved successfully", session)
}

func (h *ImportHandler) GetSessionResult(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session ID", err)
	}

	session, err := h.sessionRepo.GetSessionByID(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}
	if !session.ResultJSON.Valid {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No result available for this session", nil)
	}

	var result models.ImportResult
	if err := json.Unmarshal([]byte(session.ResultJSON.String), &result); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to decode stored result", err)
	}

	return utils.SuccessResponse(c, "Result retrieved successfully", fiber.Map{
		"session": session,
		"result":  result,
	})
}

// GetProgress reads the worker's progress key. Before the worker has
// written anything the percentage is reported as 0.
func (h *ImportHandler) GetProgress(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session ID", err)
	}

	session, err := h.sessionRepo.GetSessionByID(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	progress := 0
	if h.redisClient != nil {
		key := fmt.Sprintf("import:progress:%s", session.SessionCode)
		if val, err := h.redisClient.Get(c.Context(), key).Int(); err == nil {
			progress = val
		}
	}

	return utils.SuccessResponse(c, "Progress retrieved successfully", fiber.Map{
		"session_code": session.SessionCode,
		"status":       session.Status,
		"progress":     progress,
	})
}

// CancelSession marks an uploaded session canceled. A session that the
// worker already picked up runs to completion; cancel only blocks jobs
// that have not started.
func (h *ImportHandler) CancelSession(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session ID", err)
	}

	session, err := h.sessionRepo.GetSessionByID(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	if session.Status != models.SessionStatusUploaded {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only uploaded sessions can be canceled", nil)
	}

	if err := h.sessionRepo.UpdateSessionStatus(id, models.SessionStatusCanceled); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel session", err)
	}

	return utils.SuccessResponse(c, "Session canceled", nil)
}

func (h *ImportHandler) DownloadTemplate(c *fiber.Ctx) error {
	fileName := "org_import_template.xlsx"
	filePath := filepath.Join(h.cfg.UploadPath, fileName)

	if err := h.excelService.GenerateOrgTemplate(filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}

	return c.Download(filePath, fileName)
}

func (h *ImportHandler) DownloadErrorReport(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid session ID", err)
	}

	session, err := h.sessionRepo.GetSessionByID(id)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Session not found", err)
	}

	parsed, err := h.excelService.ParseOrgWorkbook(session.FilePath)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to re-read workbook", err)
	}

	fileName := fmt.Sprintf("errors_%s_%s.xlsx", session.SessionCode, time.Now().Format("20060102_150405"))
	filePath := filepath.Join(h.cfg.UploadPath, fileName)
	if err := h.excelService.GenerateImportErrorReport(parsed, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate error report", err)
	}

	return c.Download(filePath, fileName)
}

func classificationSummary(rows models.ImportRows) fiber.Map {
	var deptCreates, deptUpdates, posCreates, posUpdates int
	for _, r := range rows.Departments {
		if r.Operation == models.OperationUpdate {
			deptUpdates++
		} else {
			deptCreates++
		}
	}
	for _, r := range rows.Positions {
		if r.Operation == models.OperationUpdate {
			posUpdates++
		} else {
			posCreates++
		}
	}
	return fiber.Map{
		"departments": fiber.Map{"create": deptCreates, "update": deptUpdates},
		"positions":   fiber.Map{"create": posCreates, "update": posUpdates},
	}
}
