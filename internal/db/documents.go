package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/auto-apply/internal/types"
)

// documentColumns is the select list shared by the candidate-document queries.
const documentColumns = `id, user_id, job_id, company, kind, path, created_at`

// DocumentForJob returns the document generated for this exact job, if any.
func (db *DB) DocumentForJob(ctx context.Context, userID, jobID uuid.UUID) (*types.CandidateDocument, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+`
		 FROM candidate_documents
		 WHERE user_id = $1 AND job_id = $2
		 ORDER BY created_at DESC LIMIT 1`,
		userID, jobID,
	)
	return scanDocument(row)
}

// recentForEmployerQuery matches the employer name case-insensitively but
// never as a pattern, so names carrying % or _ stay literal.
const recentForEmployerQuery = `SELECT ` + documentColumns + `
	 FROM candidate_documents
	 WHERE user_id = $1 AND lower(company) = lower($2) AND kind = $3 AND created_at >= $4
	 ORDER BY created_at DESC LIMIT 1`

// RecentForEmployer returns the newest document tailored for the given
// employer created at or after the cutoff, if any.
func (db *DB) RecentForEmployer(ctx context.Context, userID uuid.UUID, company string, since time.Time) (*types.CandidateDocument, error) {
	row := db.pool.QueryRow(ctx, recentForEmployerQuery,
		userID, company, types.DocumentGenerated, since,
	)
	return scanDocument(row)
}

// GenericUpload returns the newest user-uploaded document, if any.
func (db *DB) GenericUpload(ctx context.Context, userID uuid.UUID) (*types.CandidateDocument, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+`
		 FROM candidate_documents
		 WHERE user_id = $1 AND kind = $2
		 ORDER BY created_at DESC LIMIT 1`,
		userID, types.DocumentUploaded,
	)
	return scanDocument(row)
}

// LatestGenerated returns the newest generated document for the user
// regardless of employer, if any.
func (db *DB) LatestGenerated(ctx context.Context, userID uuid.UUID) (*types.CandidateDocument, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+documentColumns+`
		 FROM candidate_documents
		 WHERE user_id = $1 AND kind = $2
		 ORDER BY created_at DESC LIMIT 1`,
		userID, types.DocumentGenerated,
	)
	return scanDocument(row)
}

// SaveGenerated stores a newly generated document and returns its ID.
func (db *DB) SaveGenerated(ctx context.Context, doc *types.CandidateDocument) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO candidate_documents (user_id, job_id, company, kind, path)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		doc.UserID, doc.JobID, doc.Company, types.DocumentGenerated, doc.Path,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to save generated document: %w", err)
	}
	return id, nil
}

// GetUserProfile loads the user profile used to fill forms. Returns nil if
// the user does not exist.
func (db *DB) GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error) {
	var profile types.UserProfile
	var phone, location, linkedin, website, workAuth *string
	err := db.pool.QueryRow(ctx,
		`SELECT id, full_name, email, phone, location, linkedin, website,
		        work_auth, mailbox_linked
		 FROM user_profiles WHERE id = $1`,
		userID,
	).Scan(&profile.UserID, &profile.FullName, &profile.Email, &phone,
		&location, &linkedin, &website, &workAuth, &profile.MailboxLinked)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}
	if phone != nil {
		profile.Phone = *phone
	}
	if location != nil {
		profile.Location = *location
	}
	if linkedin != nil {
		profile.LinkedIn = *linkedin
	}
	if website != nil {
		profile.Website = *website
	}
	if workAuth != nil {
		profile.WorkAuth = *workAuth
	}
	return &profile, nil
}

func scanDocument(row pgx.Row) (*types.CandidateDocument, error) {
	var doc types.CandidateDocument
	var company *string
	err := row.Scan(&doc.ID, &doc.UserID, &doc.JobID, &company, &doc.Kind, &doc.Path, &doc.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan document: %w", err)
	}
	if company != nil {
		doc.Company = *company
	}
	return &doc, nil
}
