package models

import (
	"database/sql"
	"time"
)

const (
	SessionStatusUploaded   = "uploaded"
	SessionStatusProcessing = "processing"
	SessionStatusCompleted  = "completed"
	SessionStatusFailed     = "failed"
	SessionStatusCanceled   = "canceled"
)

type ImportSession struct {
	ID              int            `db:"id" json:"id"`
	SessionCode     string         `db:"session_code" json:"session_code"`
	OrganizationID  int64          `db:"organization_id" json:"organization_id"`
	UserID          int            `db:"user_id" json:"user_id"`
	Filename        string         `db:"filename" json:"filename"`
	FilePath        string         `db:"file_path" json:"file_path"`
	DepartmentRows  int            `db:"department_rows" json:"department_rows"`
	PositionRows    int            `db:"position_rows" json:"position_rows"`
	Status          string         `db:"status" json:"status"`
	ResolutionsJSON sql.NullString `db:"resolutions_json" json:"-"`
	ResultJSON      sql.NullString `db:"result_json" json:"-"`
	ErrorMessage    string         `db:"error_message" json:"error_message"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}
