package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orgstruct-web/internal/config"
	"orgstruct-web/internal/models"
	"orgstruct-web/internal/repository"
	"orgstruct-web/internal/service"
)

func newExecuteTestApp(t *testing.T, client *asynq.Client) (*fiber.App, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	sdb := sqlx.NewDb(db, "mysql")

	h := NewImportHandler(
		repository.NewSessionRepository(sdb),
		repository.NewOrgRepository(sdb),
		service.NewExcelService(),
		service.NewDuplicateDetector(),
		client,
		nil,
		&config.Config{},
	)

	app := fiber.New()
	app.Post("/imports/:id/execute", h.ExecuteImport)
	return app, mock
}

func uploadedSessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "session_code", "organization_id", "user_id", "filename", "file_path",
		"department_rows", "position_rows", "status", "resolutions_json", "result_json",
		"error_message", "created_at", "updated_at",
	}).AddRow(7, "IMPORT-abc12345", 1, 1, "org.xlsx", "/tmp/org.xlsx", 3, 2,
		models.SessionStatusUploaded, nil, nil, "", time.Now(), time.Now())
}

func TestExecuteImportWithoutQueueLeavesSessionExecutable(t *testing.T) {
	app, mock := newExecuteTestApp(t, nil)

	// Only the lookup may hit the database. Any status write here would
	// wedge the session: processing sessions reject both execute and cancel.
	mock.ExpectQuery("SELECT \\* FROM import_sessions WHERE id").
		WithArgs(7).
		WillReturnRows(uploadedSessionRows())

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/imports/7/execute", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteImportEnqueueFailureReleasesSession(t *testing.T) {
	// A client pointed at a closed port fails on enqueue, after the session
	// was already moved to processing.
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })

	app, mock := newExecuteTestApp(t, client)

	mock.ExpectQuery("SELECT \\* FROM import_sessions WHERE id").
		WithArgs(7).
		WillReturnRows(uploadedSessionRows())
	mock.ExpectExec("UPDATE import_sessions SET resolutions_json").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE import_sessions SET status").
		WithArgs(models.SessionStatusProcessing, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE import_sessions SET status").
		WithArgs(models.SessionStatusUploaded, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/imports/7/execute", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteImportRejectsProcessingSession(t *testing.T) {
	app, mock := newExecuteTestApp(t, nil)

	rows := sqlmock.NewRows([]string{
		"id", "session_code", "organization_id", "user_id", "filename", "file_path",
		"department_rows", "position_rows", "status", "resolutions_json", "result_json",
		"error_message", "created_at", "updated_at",
	}).AddRow(7, "IMPORT-abc12345", 1, 1, "org.xlsx", "/tmp/org.xlsx", 3, 2,
		models.SessionStatusProcessing, nil, nil, "", time.Now(), time.Now())

	mock.ExpectQuery("SELECT \\* FROM import_sessions WHERE id").
		WithArgs(7).
		WillReturnRows(rows)

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/imports/7/execute", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}
