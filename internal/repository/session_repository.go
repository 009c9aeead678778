package repository

import (
	"orgstruct-web/internal/models"

	"github.com/jmoiron/sqlx"
)

type SessionRepository struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) CreateSession(session *models.ImportSession) error {
	query := `INSERT INTO import_sessions (session_code, organization_id, user_id, filename,
	          file_path, department_rows, position_rows, status)
	          VALUES (:session_code, :organization_id, :user_id, :filename,
	          :file_path, :department_rows, :position_rows, :status)`
	result, err := r.db.NamedExec(query, session)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	session.ID = int(id)
	return nil
}

func (r *SessionRepository) GetSessionByID(id int) (*models.ImportSession, error) {
	var session models.ImportSession
	query := "SELECT * FROM import_sessions WHERE id = ? LIMIT 1"
	err := r.db.Get(&session, query, id)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetSessionByCode(code string) (*models.ImportSession, error) {
	var session models.ImportSession
	query := "SELECT * FROM import_sessions WHERE session_code = ? LIMIT 1"
	err := r.db.Get(&session, query, code)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) GetSessions(limit, offset int, userID int) ([]models.ImportSession, int, error) {
	var sessions []models.ImportSession
	var total int

	whereClause := ""
	args := []interface{}{}

	if userID > 0 {
		whereClause = "WHERE user_id = ?"
		args = append(args, userID)
	}

	countQuery := "SELECT COUNT(*) FROM import_sessions " + whereClause
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM import_sessions " + whereClause + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)
	if err := r.db.Select(&sessions, query, args...); err != nil {
		return nil, 0, err
	}

	return sessions, total, nil
}

func (r *SessionRepository) UpdateSessionStatus(id int, status string) error {
	query := "UPDATE import_sessions SET status = ? WHERE id = ?"
	_, err := r.db.Exec(query, status, id)
	return err
}

// SetSessionResolutions stores the duplicate resolutions chosen at execute
// time so the background worker can apply them when it picks up the job.
func (r *SessionRepository) SetSessionResolutions(id int, resolutionsJSON string) error {
	query := "UPDATE import_sessions SET resolutions_json = ? WHERE id = ?"
	_, err := r.db.Exec(query, resolutionsJSON, id)
	return err
}

// SetSessionResult stores the final import summary and marks the session
// completed in one write.
func (r *SessionRepository) SetSessionResult(id int, resultJSON string) error {
	query := "UPDATE import_sessions SET status = ?, result_json = ? WHERE id = ?"
	_, err := r.db.Exec(query, models.SessionStatusCompleted, resultJSON, id)
	return err
}

// SetSessionPartialResult stores an incomplete summary without touching
// the session status; used when an import aborts mid-run.
func (r *SessionRepository) SetSessionPartialResult(id int, resultJSON string) error {
	query := "UPDATE import_sessions SET result_json = ? WHERE id = ?"
	_, err := r.db.Exec(query, resultJSON, id)
	return err
}

func (r *SessionRepository) SetSessionError(id int, message string) error {
	query := "UPDATE import_sessions SET status = ?, error_message = ? WHERE id = ?"
	_, err := r.db.Exec(query, models.SessionStatusFailed, message, id)
	return err
}
