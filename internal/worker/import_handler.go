package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"orgstruct-web/internal/config"
	"orgstruct-web/internal/models"
	"orgstruct-web/internal/repository"
	"orgstruct-web/internal/service"
	"orgstruct-web/internal/utils"
)

// ImportTaskHandler runs one queued import end to end: re-parse the
// uploaded workbook, apply the duplicate resolutions stored on the
// session, classify against the current store state, and execute.
type ImportTaskHandler struct {
	redis        *redis.Client
	cfg          *config.Config
	sessionRepo  *repository.SessionRepository
	orgRepo      *repository.OrgRepository
	excelService *service.ExcelService
	detector     *service.DuplicateDetector
	log          *logrus.Entry
}

func NewImportTaskHandler(db *sqlx.DB, redis *redis.Client, cfg *config.Config) *ImportTaskHandler {
	orgRepo := repository.NewOrgRepository(db)
	orgRepo.InsertBatchSize = cfg.ImportBatchSize

	return &ImportTaskHandler{
		redis:        redis,
		cfg:          cfg,
		sessionRepo:  repository.NewSessionRepository(db),
		orgRepo:      orgRepo,
		excelService: service.NewExcelService(),
		detector:     service.NewDuplicateDetector(),
		log:          utils.GetLogger(),
	}
}

type ImportTaskPayload struct {
	SessionID   int    `json:"session_id"`
	SessionCode string `json:"session_code"`
}

func (h *ImportTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ImportTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	log := h.log.WithFields(logrus.Fields{
		"session_id":   payload.SessionID,
		"session_code": payload.SessionCode,
	})
	log.Info("starting import")

	session, err := h.sessionRepo.GetSessionByID(payload.SessionID)
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	// A canceled or already-finished session is not an error; the task
	// just has nothing left to do.
	switch session.Status {
	case models.SessionStatusCanceled:
		log.Info("session canceled, skipping")
		return nil
	case models.SessionStatusCompleted, models.SessionStatusFailed:
		log.WithField("status", session.Status).Info("session already finished, skipping")
		return nil
	}

	parsed, err := h.excelService.ParseOrgWorkbook(session.FilePath)
	if err != nil {
		h.failSession(session.ID, fmt.Sprintf("failed to read workbook: %v", err))
		return fmt.Errorf("failed to read workbook: %w", err)
	}

	var resolutions []models.DuplicateResolution
	if session.ResolutionsJSON.Valid && session.ResolutionsJSON.String != "" {
		if err := json.Unmarshal([]byte(session.ResolutionsJSON.String), &resolutions); err != nil {
			h.failSession(session.ID, fmt.Sprintf("invalid stored resolutions: %v", err))
			return fmt.Errorf("invalid stored resolutions: %w", err)
		}
	}
	rows := h.detector.ApplyResolutions(parsed.Rows, resolutions)

	deptIDs, err := h.orgRepo.GetDepartmentCodes(ctx, session.OrganizationID)
	if err != nil {
		h.failSession(session.ID, fmt.Sprintf("failed to read department codes: %v", err))
		return err
	}
	posIDs, err := h.orgRepo.GetPositionCodes(ctx, session.OrganizationID)
	if err != nil {
		h.failSession(session.ID, fmt.Sprintf("failed to read position codes: %v", err))
		return err
	}
	service.ClassifyDepartments(rows.Departments, deptIDs)
	service.ClassifyPositions(rows.Positions, posIDs)

	executor := service.NewImportExecutor(h.orgRepo)
	executor.OnProgress = h.progressWriter(ctx, session.SessionCode, len(rows.Departments), len(rows.Positions))

	result, err := executor.ExecuteImport(ctx, session.OrganizationID, rows.Departments, rows.Positions)
	if err != nil {
		return h.recordFailure(session.ID, result, err, log)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		h.failSession(session.ID, fmt.Sprintf("failed to encode result: %v", err))
		return err
	}
	if err := h.sessionRepo.SetSessionResult(session.ID, string(resultJSON)); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	h.setProgress(ctx, session.SessionCode, 100)

	log.WithFields(logrus.Fields{
		"departments_created": result.DepartmentsCreated,
		"departments_updated": result.DepartmentsUpdated,
		"positions_created":   result.PositionsCreated,
		"positions_updated":   result.PositionsUpdated,
		"failures":            len(result.Failures),
	}).Info("import completed")

	return nil
}

// recordFailure persists whatever the executor managed to do before the
// error. Validation errors are terminal and carry no partial result.
func (h *ImportTaskHandler) recordFailure(sessionID int, result *models.ImportResult, err error, log *logrus.Entry) error {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		log.WithError(err).Warn("import rejected by reference validation")
		h.failSession(sessionID, verr.Error())
		return nil // retrying cannot fix the workbook
	}

	log.WithError(err).Error("import failed")
	h.failSession(sessionID, err.Error())

	// Keep the partial counters queryable alongside the failure status.
	var ierr *service.ImportError
	partial := result
	if errors.As(err, &ierr) && ierr.Partial != nil {
		partial = ierr.Partial
	}
	if partial != nil {
		if partialJSON, merr := json.Marshal(partial); merr == nil {
			if serr := h.sessionRepo.SetSessionPartialResult(sessionID, string(partialJSON)); serr != nil {
				h.log.WithError(serr).Warn("failed to store partial result")
			}
		}
	}

	return err
}

func (h *ImportTaskHandler) failSession(sessionID int, message string) {
	if err := h.sessionRepo.SetSessionError(sessionID, message); err != nil {
		h.log.WithError(err).Warn("failed to mark session failed")
	}
}

// progressWriter maps stage progress onto one overall percentage keyed by
// session code. Departments and positions weigh by their row counts.
func (h *ImportTaskHandler) progressWriter(ctx context.Context, sessionCode string, deptTotal, posTotal int) func(stage string, done, total int) {
	total := deptTotal + posTotal
	if total == 0 {
		total = 1
	}
	stageDone := map[string]int{}
	return func(stage string, done, _ int) {
		stageDone[stage] = done
		sum := 0
		for _, d := range stageDone {
			sum += d
		}
		percent := sum * 100 / total
		if percent > 100 {
			percent = 100
		}
		h.setProgress(ctx, sessionCode, percent)
	}
}

func (h *ImportTaskHandler) setProgress(ctx context.Context, sessionCode string, percent int) {
	if h.redis == nil {
		return
	}
	key := fmt.Sprintf("import:progress:%s", sessionCode)
	if err := h.redis.Set(ctx, key, percent, 0).Err(); err != nil {
		h.log.WithError(err).Warn("failed to write progress key")
	}
}
