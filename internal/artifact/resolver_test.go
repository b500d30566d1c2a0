package artifact

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/auto-apply/internal/config"
	"github.com/jonathan/auto-apply/internal/types"
)

type fakeStore struct {
	forJob      *types.CandidateDocument
	forEmployer *types.CandidateDocument
	upload      *types.CandidateDocument
	latest      *types.CandidateDocument

	employerCutoff time.Time
	saved          []*types.CandidateDocument
}

func (s *fakeStore) DocumentForJob(ctx context.Context, userID, jobID uuid.UUID) (*types.CandidateDocument, error) {
	return s.forJob, nil
}

func (s *fakeStore) RecentForEmployer(ctx context.Context, userID uuid.UUID, company string, since time.Time) (*types.CandidateDocument, error) {
	s.employerCutoff = since
	return s.forEmployer, nil
}

func (s *fakeStore) GenericUpload(ctx context.Context, userID uuid.UUID) (*types.CandidateDocument, error) {
	return s.upload, nil
}

func (s *fakeStore) LatestGenerated(ctx context.Context, userID uuid.UUID) (*types.CandidateDocument, error) {
	return s.latest, nil
}

func (s *fakeStore) SaveGenerated(ctx context.Context, doc *types.CandidateDocument) (uuid.UUID, error) {
	s.saved = append(s.saved, doc)
	return uuid.New(), nil
}

type fakeGenerator struct {
	path  string
	err   error
	calls int
}

func (g *fakeGenerator) Generate(ctx context.Context, profile *types.UserProfile, job types.JobContext) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.path, nil
}

func testProfile() *types.UserProfile {
	return &types.UserProfile{UserID: uuid.New(), FullName: "Ada Lovelace", Email: "ada@example.com"}
}

func testJob() types.JobContext {
	return types.JobContext{JobID: uuid.New(), Company: "Acme", Title: "Engineer", URL: "https://acme.com/jobs/1"}
}

func newTestResolver(store Store, gen Generator) *Resolver {
	cfg := config.Defaults()
	return NewResolver(store, gen, &cfg, zap.NewNop())
}

func TestResolve_ExistingForJobWins(t *testing.T) {
	store := &fakeStore{
		forJob: &types.CandidateDocument{ID: uuid.New(), Path: "/docs/job.pdf"},
		upload: &types.CandidateDocument{ID: uuid.New(), Path: "/docs/generic.pdf"},
	}
	gen := &fakeGenerator{path: "/docs/new.txt"}

	resolved, err := newTestResolver(store, gen).Resolve(context.Background(), testProfile(), testJob())
	require.NoError(t, err)

	assert.Equal(t, types.ProvenanceExistingForJob, resolved.Provenance)
	assert.Equal(t, "/docs/job.pdf", resolved.Document.Path)
	assert.Zero(t, gen.calls, "generation is skipped when a job document exists")
}

func TestResolve_RecentEmployerWithinWindow(t *testing.T) {
	store := &fakeStore{
		forEmployer: &types.CandidateDocument{ID: uuid.New(), Path: "/docs/acme.pdf"},
	}

	resolver := newTestResolver(store, &fakeGenerator{path: "/docs/new.txt"})
	resolved, err := resolver.Resolve(context.Background(), testProfile(), testJob())
	require.NoError(t, err)

	assert.Equal(t, types.ProvenanceRecentForEmployer, resolved.Provenance)
	// Cutoff reflects the configured reuse window (7 days by default).
	expected := time.Now().Add(-7 * 24 * time.Hour)
	assert.WithinDuration(t, expected, store.employerCutoff, time.Minute)
}

func TestResolve_GeneratesAndPersists(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{path: "/docs/generated.txt"}
	profile := testProfile()
	job := testJob()

	resolved, err := newTestResolver(store, gen).Resolve(context.Background(), profile, job)
	require.NoError(t, err)

	assert.Equal(t, types.ProvenanceNewlyGenerated, resolved.Provenance)
	assert.Equal(t, "/docs/generated.txt", resolved.Document.Path)
	assert.NotEqual(t, uuid.Nil, resolved.Document.ID)
	require.Len(t, store.saved, 1)
	assert.Equal(t, profile.UserID, store.saved[0].UserID)
	require.NotNil(t, store.saved[0].JobID)
	assert.Equal(t, job.JobID, *store.saved[0].JobID)
}

func TestResolve_GenerationFailureFallsBackToUpload(t *testing.T) {
	store := &fakeStore{
		upload: &types.CandidateDocument{ID: uuid.New(), Path: "/docs/generic.pdf"},
	}
	gen := &fakeGenerator{err: errors.New("quota exceeded")}

	resolved, err := newTestResolver(store, gen).Resolve(context.Background(), testProfile(), testJob())
	require.NoError(t, err)

	assert.Equal(t, types.ProvenanceGenericUpload, resolved.Provenance)
	assert.Equal(t, 1, gen.calls)
}

func TestResolve_LatestGeneratedIsLastFallback(t *testing.T) {
	store := &fakeStore{
		latest: &types.CandidateDocument{ID: uuid.New(), Path: "/docs/old.pdf"},
	}

	resolved, err := newTestResolver(store, nil).Resolve(context.Background(), testProfile(), testJob())
	require.NoError(t, err)
	assert.Equal(t, types.ProvenanceLatestGenerated, resolved.Provenance)
}

func TestResolve_NothingAvailable(t *testing.T) {
	_, err := newTestResolver(&fakeStore{}, nil).Resolve(context.Background(), testProfile(), testJob())
	assert.ErrorIs(t, err, ErrNoArtifactAvailable)
}

func TestResolve_Idempotent(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{path: "/docs/generated.txt"}
	resolver := newTestResolver(store, gen)
	profile := testProfile()
	job := testJob()

	first, err := resolver.Resolve(context.Background(), profile, job)
	require.NoError(t, err)
	second, err := resolver.Resolve(context.Background(), profile, job)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, gen.calls, "repeat resolution must not regenerate")
}

func TestResolve_ForgetScopesCacheToRun(t *testing.T) {
	store := &fakeStore{}
	gen := &fakeGenerator{path: "/docs/generated.txt"}
	resolver := newTestResolver(store, gen)
	profile := testProfile()
	job := testJob()

	_, err := resolver.Resolve(context.Background(), profile, job)
	require.NoError(t, err)

	resolver.Forget(profile.UserID, job.JobID)

	_, err = resolver.Resolve(context.Background(), profile, job)
	require.NoError(t, err)
	assert.Equal(t, 2, gen.calls, "a later run re-runs the policy")
}

func TestResolve_ConcurrentCallersShareTheCache(t *testing.T) {
	store := &fakeStore{
		forJob: &types.CandidateDocument{ID: uuid.New(), Path: "/docs/job.pdf"},
	}
	resolver := newTestResolver(store, nil)
	profile := testProfile()
	shared := testJob()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			own := testJob()
			for j := 0; j < 50; j++ {
				for _, job := range []types.JobContext{shared, own} {
					resolved, err := resolver.Resolve(context.Background(), profile, job)
					assert.NoError(t, err)
					assert.NotNil(t, resolved)
				}
			}
		}()
	}
	wg.Wait()
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "acme_corp", sanitize("Acme Corp"))
	assert.Equal(t, "unknown", sanitize(""))
	assert.Equal(t, "unknown", sanitize("株式会社"))
}
