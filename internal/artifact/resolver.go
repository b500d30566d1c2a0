// Package artifact resolves the application document (resume) for a run:
// reuse an existing artifact when policy allows, generate a fresh one when
// it does not, fall back to uploads, and fail when nothing is available.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/types"
)

// ErrNoArtifactAvailable means every step of the resolution policy came up
// empty. The application cannot proceed.
var ErrNoArtifactAvailable = errors.New("no application artifact available")

// Store is the document lookup surface the resolver needs.
type Store interface {
	DocumentForJob(ctx context.Context, userID, jobID uuid.UUID) (*types.CandidateDocument, error)
	RecentForEmployer(ctx context.Context, userID uuid.UUID, company string, since time.Time) (*types.CandidateDocument, error)
	GenericUpload(ctx context.Context, userID uuid.UUID) (*types.CandidateDocument, error)
	LatestGenerated(ctx context.Context, userID uuid.UUID) (*types.CandidateDocument, error)
	SaveGenerated(ctx context.Context, doc *types.CandidateDocument) (uuid.UUID, error)
}

// Generator produces a fresh tailored document for a job, returning the
// local path of the rendered file.
type Generator interface {
	Generate(ctx context.Context, profile *types.UserProfile, job types.JobContext) (string, error)
}

// Resolved is a resolution outcome: the document to attach and where it
// came from.
type Resolved struct {
	Document   *types.CandidateDocument
	Provenance types.Provenance
}

// Resolver applies the artifact resolution policy.
type Resolver struct {
	store     Store
	generator Generator
	cfg       *config.Config
	log       *zap.Logger

	// cache keeps per-job resolutions so that repeated resolution within one
	// run returns the same artifact. The orchestrator forgets the entry when
	// its run finishes. One resolver serves every worker in the pool, so the
	// cache is mutex-guarded.
	mu    sync.Mutex
	cache map[string]*Resolved
}

// NewResolver creates a Resolver. The generator may be nil, in which case
// the generation step is skipped.
func NewResolver(store Store, generator Generator, cfg *config.Config, log *zap.Logger) *Resolver {
	return &Resolver{
		store:     store,
		generator: generator,
		cfg:       cfg,
		log:       log,
		cache:     make(map[string]*Resolved),
	}
}

// Resolve walks the policy in order:
//
//  1. a document generated for this exact job
//  2. a document tailored for the same employer within the reuse window
//  3. a freshly generated document (persisted before returning)
//  4. the user's generic uploaded document
//  5. the user's latest generated document, any employer
//
// The first step that yields a document wins. Re-resolving the same user
// and job returns the cached result.
func (r *Resolver) Resolve(ctx context.Context, profile *types.UserProfile, job types.JobContext) (*Resolved, error) {
	key := cacheKey(profile.UserID, job.JobID)
	r.mu.Lock()
	cached, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return cached, nil
	}

	resolved, err := r.resolve(ctx, profile, job)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	// A concurrent resolution of the same key may have finished first; the
	// stored result wins so every caller sees one artifact.
	if prior, ok := r.cache[key]; ok {
		resolved = prior
	} else {
		r.cache[key] = resolved
	}
	r.mu.Unlock()
	r.log.Info("artifact resolved",
		zap.String("provenance", string(resolved.Provenance)),
		zap.String("path", resolved.Document.Path))
	return resolved, nil
}

// Forget drops the cached resolution for a user and job. Called when a run
// finishes so a later application re-runs the policy instead of reusing a
// resolution from a previous run.
func (r *Resolver) Forget(userID, jobID uuid.UUID) {
	r.mu.Lock()
	delete(r.cache, cacheKey(userID, jobID))
	r.mu.Unlock()
}

func cacheKey(userID, jobID uuid.UUID) string {
	return userID.String() + "/" + jobID.String()
}

func (r *Resolver) resolve(ctx context.Context, profile *types.UserProfile, job types.JobContext) (*Resolved, error) {
	doc, err := r.store.DocumentForJob(ctx, profile.UserID, job.JobID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up job document: %w", err)
	}
	if doc != nil {
		return &Resolved{Document: doc, Provenance: types.ProvenanceExistingForJob}, nil
	}

	if job.Company != "" {
		cutoff := time.Now().Add(-r.cfg.ReuseWindow())
		doc, err = r.store.RecentForEmployer(ctx, profile.UserID, job.Company, cutoff)
		if err != nil {
			return nil, fmt.Errorf("failed to look up employer document: %w", err)
		}
		if doc != nil {
			return &Resolved{Document: doc, Provenance: types.ProvenanceRecentForEmployer}, nil
		}
	}

	if r.generator != nil {
		path, err := r.generator.Generate(ctx, profile, job)
		if err != nil {
			// Generation failure falls through to the upload fallbacks.
			r.log.Warn("artifact generation failed, trying fallbacks", zap.Error(err))
		} else {
			generated := &types.CandidateDocument{
				UserID:    profile.UserID,
				JobID:     &job.JobID,
				Company:   job.Company,
				Kind:      types.DocumentGenerated,
				Path:      path,
				CreatedAt: time.Now(),
			}
			id, err := r.store.SaveGenerated(ctx, generated)
			if err != nil {
				return nil, fmt.Errorf("failed to persist generated document: %w", err)
			}
			generated.ID = id
			return &Resolved{Document: generated, Provenance: types.ProvenanceNewlyGenerated}, nil
		}
	}

	doc, err = r.store.GenericUpload(ctx, profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up uploaded document: %w", err)
	}
	if doc != nil {
		return &Resolved{Document: doc, Provenance: types.ProvenanceGenericUpload}, nil
	}

	doc, err = r.store.LatestGenerated(ctx, profile.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up latest generated document: %w", err)
	}
	if doc != nil {
		return &Resolved{Document: doc, Provenance: types.ProvenanceLatestGenerated}, nil
	}

	return nil, ErrNoArtifactAvailable
}
