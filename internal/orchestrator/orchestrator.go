// Package orchestrator runs one application end to end: resolve the
// artifact, acquire a browser session, drive the interaction cycle, and
// persist the durable record with its evidence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/auto-apply/internal/artifact"
	"github.com/jonathan/auto-apply/internal/browser"
	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/cycle"
	"github.com/jonathan/auto-apply/internal/db"
	"github.com/jonathan/auto-apply/internal/types"
)

// applyMethod tags records produced by the automated browser flow.
const applyMethod = "auto_browser"

// RecordStore is the persistence surface the orchestrator needs.
type RecordStore interface {
	CreateRecord(ctx context.Context, req types.ApplicationRequest) (uuid.UUID, error)
	UpdateRecord(ctx context.Context, id uuid.UUID, patch db.RecordPatch) error
	GetRecord(ctx context.Context, id uuid.UUID) (*types.ApplicationRecord, error)
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.UserProfile, error)
}

// ArtifactResolver resolves the document to attach. Forget scopes the
// resolver's idempotency cache to one run.
type ArtifactResolver interface {
	Resolve(ctx context.Context, profile *types.UserProfile, job types.JobContext) (*artifact.Resolved, error)
	Forget(userID, jobID uuid.UUID)
}

// SessionAcquirer obtains a navigated browser session.
type SessionAcquirer interface {
	Acquire(ctx context.Context, targetURL, seed string) (browser.Session, error)
}

// CycleRunner drives the form interaction loop.
type CycleRunner interface {
	Run(ctx context.Context, session browser.Session, req cycle.Request) (cycle.Outcome, error)
}

// Orchestrator coordinates one application run.
type Orchestrator struct {
	store    RecordStore
	resolver ArtifactResolver
	acquirer SessionAcquirer
	runner   CycleRunner
	cfg      *config.Config
	log      *zap.Logger
}

// New creates an Orchestrator.
func New(store RecordStore, resolver ArtifactResolver, acquirer SessionAcquirer, runner CycleRunner, cfg *config.Config, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		store:    store,
		resolver: resolver,
		acquirer: acquirer,
		runner:   runner,
		cfg:      cfg,
		log:      log,
	}
}

// Run executes one application request to a terminal record state.
//
// Business failures (no artifact, no session, rejected submission) land in
// the returned record as FAILED with a typed error and a nil error return.
// A non-nil error return means infrastructure failed, typically persistence,
// and the record state is whatever was last written.
func (o *Orchestrator) Run(ctx context.Context, req types.ApplicationRequest) (*types.ApplicationRecord, error) {
	recordID := req.RecordID
	if recordID == uuid.Nil {
		id, err := o.store.CreateRecord(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to create record: %w", err)
		}
		recordID = id
	} else {
		// A request carrying a record ID may be a queue redelivery. A record
		// that cannot enter APPLYING is already terminal or mid-run; return
		// it untouched instead of running again.
		existing, err := o.store.GetRecord(ctx, recordID)
		if err != nil {
			return nil, fmt.Errorf("failed to load record: %w", err)
		}
		if existing == nil {
			return nil, fmt.Errorf("record not found: %s", recordID)
		}
		if !existing.Status.CanTransitionTo(types.StatusApplying) {
			o.log.Info("record not runnable, skipping",
				zap.String("record_id", recordID.String()),
				zap.String("status", string(existing.Status)))
			return existing, nil
		}
	}
	log := o.log.With(
		zap.String("record_id", recordID.String()),
		zap.String("job_url", req.Job.URL))

	profile, err := o.store.GetUserProfile(ctx, req.UserID)
	if err != nil {
		if persistErr := o.failRecord(ctx, recordID, types.ErrKindProcessing, fmt.Sprintf("failed to load profile: %v", err), nil); persistErr != nil {
			return nil, persistErr
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return o.finishFailed(ctx, recordID, types.ErrKindProcessing, "user profile not found", nil)
	}
	if err := profile.Validate(); err != nil {
		return o.finishFailed(ctx, recordID, types.ErrKindProcessing, err.Error(), nil)
	}

	startedAt := time.Now()
	applying := types.StatusApplying
	if err := o.store.UpdateRecord(ctx, recordID, db.RecordPatch{
		Status:    &applying,
		StartedAt: &startedAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to mark record applying: %w", err)
	}
	log.Info("application run started")

	// Artifact resolution and session acquisition are independent; run them
	// in parallel and abort the slower one on first failure. The resolution
	// cache lives only as long as this run.
	defer o.resolver.Forget(req.UserID, req.Job.JobID)
	g, gCtx := errgroup.WithContext(ctx)

	var resolved *artifact.Resolved
	var session browser.Session
	var mu sync.Mutex

	g.Go(func() error {
		r, err := o.resolver.Resolve(gCtx, profile, req.Job)
		if err != nil {
			if errors.Is(err, artifact.ErrNoArtifactAvailable) {
				return &types.RecordError{Kind: types.ErrKindNoArtifact, Message: err.Error()}
			}
			return &types.RecordError{Kind: types.ErrKindProcessing, Message: err.Error()}
		}
		mu.Lock()
		resolved = r
		mu.Unlock()
		return nil
	})

	g.Go(func() error {
		s, err := o.acquirer.Acquire(gCtx, req.Job.URL, recordID.String())
		if err != nil {
			return &types.RecordError{Kind: types.ErrKindSessionAcquisition, Message: err.Error()}
		}
		mu.Lock()
		session = s
		mu.Unlock()
		return nil
	})

	err = g.Wait()

	// The run owns the session from here. One close on every exit path; a
	// session acquired by the losing branch of a failed wait included.
	if session != nil {
		defer session.Close()
	}

	if err != nil {
		var recErr *types.RecordError
		if !errors.As(err, &recErr) {
			recErr = &types.RecordError{Kind: types.ErrKindProcessing, Message: err.Error()}
		}
		log.Warn("preparation failed", zap.String("kind", string(recErr.Kind)))
		return o.finishFailed(ctx, recordID, recErr.Kind, recErr.Message, nil)
	}

	outcome, err := o.runner.Run(ctx, session, cycle.Request{
		Profile:    profile,
		Job:        req.Job,
		ResumePath: resolved.Document.Path,
	})
	if err != nil {
		evidence := o.buildEvidence(ctx, session, resolved, outcome)
		if persistErr := o.failRecord(ctx, recordID, types.ErrKindProcessing, err.Error(), evidence); persistErr != nil {
			return nil, persistErr
		}
		return nil, fmt.Errorf("cycle failed: %w", err)
	}

	evidence := o.buildEvidence(ctx, session, resolved, outcome)
	return o.finish(ctx, recordID, outcome, evidence, log)
}

// finish persists the terminal state for a completed cycle and returns the
// final record.
func (o *Orchestrator) finish(ctx context.Context, recordID uuid.UUID, outcome cycle.Outcome, evidence *types.Evidence, log *zap.Logger) (*types.ApplicationRecord, error) {
	now := time.Now()
	method := applyMethod
	patch := db.RecordPatch{
		Method:      &method,
		Evidence:    evidence,
		CompletedAt: &now,
	}

	var status types.Status
	switch outcome.Disposition {
	case cycle.DispositionSubmitted:
		status = types.StatusSubmitted
		patch.SubmittedAt = &now
	case cycle.DispositionManualRequired:
		status = types.StatusManualRequired
	default:
		status = types.StatusFailed
		if outcome.Err != nil {
			patch.Error = outcome.Err
		} else {
			patch.Error = &types.RecordError{Kind: types.ErrKindProcessing, Message: "cycle failed without detail"}
		}
	}
	patch.Status = &status

	if err := o.store.UpdateRecord(ctx, recordID, patch); err != nil {
		return nil, fmt.Errorf("failed to persist terminal state: %w", err)
	}

	log.Info("application run finished",
		zap.String("status", string(status)),
		zap.Int("attempts", outcome.Attempts))

	record, err := o.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload record: %w", err)
	}
	return record, nil
}

// finishFailed persists a FAILED terminal state and returns the record with
// a nil error; the failure is a business outcome, not an infra error.
func (o *Orchestrator) finishFailed(ctx context.Context, recordID uuid.UUID, kind types.ErrorKind, message string, evidence *types.Evidence) (*types.ApplicationRecord, error) {
	if err := o.failRecord(ctx, recordID, kind, message, evidence); err != nil {
		return nil, err
	}
	record, err := o.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload record: %w", err)
	}
	return record, nil
}

// failRecord writes the FAILED terminal patch.
func (o *Orchestrator) failRecord(ctx context.Context, recordID uuid.UUID, kind types.ErrorKind, message string, evidence *types.Evidence) error {
	now := time.Now()
	failed := types.StatusFailed
	err := o.store.UpdateRecord(ctx, recordID, db.RecordPatch{
		Status:      &failed,
		Error:       &types.RecordError{Kind: kind, Message: message},
		Evidence:    evidence,
		CompletedAt: &now,
	})
	if err != nil {
		return fmt.Errorf("failed to persist failure: %w", err)
	}
	return nil
}

// buildEvidence assembles the terminal evidence blob: screenshot, final
// URL, fill counts, confidence, and verification outcome. Evidence capture
// is best effort and never fails the run.
func (o *Orchestrator) buildEvidence(ctx context.Context, session browser.Session, resolved *artifact.Resolved, outcome cycle.Outcome) *types.Evidence {
	evidence := &types.Evidence{
		FieldsExtracted: outcome.Fill.FieldsExtracted,
		FieldsFilled:    outcome.Fill.FieldsFilled,
		Attempts:        outcome.Attempts,
		Verification:    outcome.Verification,
	}
	if resolved != nil {
		evidence.Provenance = resolved.Provenance
	}
	if outcome.LastVerdict != nil {
		evidence.Confidence = outcome.LastVerdict.Confidence
	}
	if session == nil {
		return evidence
	}

	if url, err := session.Page().URL(ctx); err == nil {
		evidence.FinalURL = url
	}

	if shot, err := session.Screenshot(ctx); err == nil {
		path := filepath.Join(o.cfg.ScreenshotDir, fmt.Sprintf("record_%d.png", time.Now().UnixNano()))
		if err := os.WriteFile(path, shot, 0o644); err == nil {
			evidence.ScreenshotPath = path
		} else {
			o.log.Debug("failed to write screenshot", zap.Error(err))
		}
	}
	return evidence
}
