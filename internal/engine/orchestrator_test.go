package engine

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipway-sh/slipway/internal/core/domain"
	"github.com/slipway-sh/slipway/internal/core/infra"
	"github.com/slipway-sh/slipway/internal/core/profile"
	"github.com/slipway-sh/slipway/internal/shell/gitfetch"
	"github.com/slipway-sh/slipway/internal/shell/store"
	"github.com/slipway-sh/slipway/internal/shell/terraform"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Fakes
// =============================================================================

type fakeFetcher struct {
	dir     string
	commit  string
	err     error
	cleaned bool
}

func (f *fakeFetcher) Fetch(context.Context, string, string) (*gitfetch.Checkout, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &gitfetch.Checkout{Dir: f.dir, CommitHash: f.commit}, nil
}

func (f *fakeFetcher) Cleanup(*gitfetch.Checkout) error {
	f.cleaned = true
	return nil
}

type fakeBuilder struct {
	err      error
	profiles []domain.AppProfile
	tags     []string
}

func (f *fakeBuilder) Build(_ context.Context, _ string, p domain.AppProfile, tag string) (*domain.BuildArtifact, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.profiles = append(f.profiles, p)
	f.tags = append(f.tags, tag)
	return &domain.BuildArtifact{LocalTag: tag, BuildLogRef: "/tmp/build.log"}, nil
}

type fakePublisher struct {
	err    error
	pushed []string
}

func (f *fakePublisher) Publish(_ context.Context, artifact domain.BuildArtifact, repo string) (domain.ImageReference, error) {
	if f.err != nil {
		return domain.ImageReference{}, f.err
	}
	f.pushed = append(f.pushed, artifact.LocalTag)
	return domain.ImageReference{
		RegistryURI: "123456789012.dkr.ecr.us-east-1.amazonaws.com",
		Repository:  repo,
		Tag:         "abc1234",
	}, nil
}

type fakeIdentity struct {
	account string
	err     error
}

func (f *fakeIdentity) AccountID(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.account, nil
}

type fakeExecutor struct {
	applyErr   error
	destroyErr error
	applied    []*infra.Config
	destroyed  []*infra.Config
	outputs    terraform.Outputs
}

func (f *fakeExecutor) Apply(_ context.Context, cfg *infra.Config) (terraform.Outputs, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.applied = append(f.applied, cfg)
	return f.outputs, nil
}

func (f *fakeExecutor) Destroy(_ context.Context, cfg *infra.Config) error {
	if f.destroyErr != nil {
		return f.destroyErr
	}
	f.destroyed = append(f.destroyed, cfg)
	return nil
}

// memStore is an in-memory Store for pipeline tests.
type memStore struct {
	records map[string]*domain.StateRecord
}

func newMemStore() *memStore {
	return &memStore{records: map[string]*domain.StateRecord{}}
}

func (m *memStore) CreateRecord(_ context.Context, r *domain.StateRecord) error {
	if _, ok := m.records[r.ID]; ok {
		return store.ErrDuplicateID
	}
	clone := *r
	m.records[r.ID] = &clone
	return nil
}

func (m *memStore) GetRecord(_ context.Context, id string) (*domain.StateRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *memStore) UpdateRecord(_ context.Context, r *domain.StateRecord) error {
	if _, ok := m.records[r.ID]; !ok {
		return store.ErrNotFound
	}
	clone := *r
	m.records[r.ID] = &clone
	return nil
}

func (m *memStore) ListRecords(context.Context) ([]domain.StateRecord, error) {
	var out []domain.StateRecord
	for _, r := range m.records {
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

// =============================================================================
// Harness
// =============================================================================

type harness struct {
	orch      *Orchestrator
	fetcher   *fakeFetcher
	builder   *fakeBuilder
	publisher *fakePublisher
	executor  *fakeExecutor
	store     *memStore
}

// newHarness wires an orchestrator over fakes, with a real flask working
// copy on disk and the real profiler.
func newHarness(t *testing.T) *harness {
	t.Helper()

	repoDir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(repoDir, "app.py"),
		[]byte("from flask import Flask\napp = Flask(__name__)\n"), 0o644))
	require.NoError(t, os.WriteFile(
		filepath.Join(repoDir, "requirements.txt"),
		[]byte("Flask==3.0.0\n"), 0o644))

	h := &harness{
		fetcher:   &fakeFetcher{dir: repoDir, commit: "abc1234"},
		builder:   &fakeBuilder{},
		publisher: &fakePublisher{},
		executor: &fakeExecutor{outputs: terraform.Outputs{
			"service_url": "https://abc.us-east-1.awsapprunner.com",
		}},
		store: newMemStore(),
	}
	h.orch = NewOrchestrator(
		h.fetcher,
		func(fsys fs.FS) domain.AppProfile { return profile.Detect(fsys) },
		h.builder,
		h.publisher,
		&fakeIdentity{account: "123456789012"},
		h.executor,
		h.store,
		t.TempDir(),
		testLogger(),
	)
	return h
}

func deployReq() DeployRequest {
	return DeployRequest{
		RepoURL:     "https://github.com/acme/shop.git",
		Prompt:      "deploy this flask app to aws",
		ECRRepoName: "demo",
		AWSRegion:   "us-east-1",
	}
}

// =============================================================================
// Deploy Tests
// =============================================================================

func TestDeploy_FlaskEndToEnd(t *testing.T) {
	h := newHarness(t)

	url, err := h.orch.Deploy(context.Background(), deployReq())
	require.NoError(t, err)
	assert.Equal(t, "https://abc.us-east-1.awsapprunner.com", url)

	// Profiler classified the repo and the builder saw the profile.
	require.Len(t, h.builder.profiles, 1)
	assert.Equal(t, domain.RuntimePythonFlask, h.builder.profiles[0].Runtime)
	assert.False(t, h.builder.profiles[0].HasDockerfile)
	assert.Equal(t, []string{"demo:abc1234"}, h.builder.tags)

	// The record is keyed by the derived identifier and is active.
	id := domain.DeriveDeploymentID("https://github.com/acme/shop.git", "demo", "us-east-1")
	rec, err := h.store.GetRecord(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, rec.Status)
	assert.Equal(t, "auto-deployed-shop", rec.ServiceName)
	assert.Equal(t, "123456789012.dkr.ecr.us-east-1.amazonaws.com/demo:abc1234", rec.ImageRef)

	// Rendered parameters cover the template exactly.
	require.Len(t, h.executor.applied, 1)
	assert.Equal(t, "auto-deployed-shop", h.executor.applied[0].Params["service_name"])
	assert.Equal(t, "123456789012", h.executor.applied[0].Params["aws_account_id"])

	assert.True(t, h.fetcher.cleaned)
}

func TestDeploy_UnsupportedPromptAbortsBeforeAnyWork(t *testing.T) {
	h := newHarness(t)

	req := deployReq()
	req.Prompt = "deploy my flask app to azure"
	_, err := h.orch.Deploy(context.Background(), req)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedTarget)
	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageTarget, serr.Stage)

	assert.Empty(t, h.builder.profiles)
	assert.Empty(t, h.executor.applied)
}

func TestDeploy_PublishFailureLeavesNoRecord(t *testing.T) {
	h := newHarness(t)
	h.publisher.err = errors.New("push demo: denied")

	_, err := h.orch.Deploy(context.Background(), deployReq())
	require.Error(t, err)

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StagePublish, serr.Stage)

	// No apply attempted, no record reached the store.
	assert.Empty(t, h.executor.applied)
	assert.Empty(t, h.store.records)
}

func TestDeploy_ApplyFailurePersistsFailedRecord(t *testing.T) {
	h := newHarness(t)
	h.executor.applyErr = errors.New("AccessDeniedException: not authorized")

	_, err := h.orch.Deploy(context.Background(), deployReq())
	require.Error(t, err)

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageApply, serr.Stage)

	id := domain.DeriveDeploymentID("https://github.com/acme/shop.git", "demo", "us-east-1")
	rec, gerr := h.store.GetRecord(context.Background(), id)
	require.NoError(t, gerr)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Contains(t, rec.StatusDetail, "AccessDeniedException")
}

func TestDeploy_RedeployReusesServiceName(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Deploy(ctx, deployReq())
	require.NoError(t, err)

	// Make the stored service name distinguishable from a fresh mint.
	id := domain.DeriveDeploymentID("https://github.com/acme/shop.git", "demo", "us-east-1")
	rec := h.store.records[id]
	rec.ServiceName = "auto-deployed-shop-renamed"

	url, err := h.orch.Deploy(ctx, deployReq())
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	require.Len(t, h.executor.applied, 2)
	assert.Equal(t, "auto-deployed-shop-renamed", h.executor.applied[1].Params["service_name"])
	assert.Equal(t, domain.StatusActive, h.store.records[id].Status)
}

func TestDeploy_FetchFailure(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = &gitfetch.FetchError{Op: "Fetch", Message: "could not resolve host", Err: gitfetch.ErrCloneFailed}

	_, err := h.orch.Deploy(context.Background(), deployReq())

	var serr *StageError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StageFetch, serr.Stage)
	assert.ErrorIs(t, err, gitfetch.ErrCloneFailed)
}

// =============================================================================
// Destroy Tests
// =============================================================================

func TestDestroy_AfterDeploy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Deploy(ctx, deployReq())
	require.NoError(t, err)

	err = h.orch.Destroy(ctx, "https://github.com/acme/shop.git", "demo", "us-east-1")
	require.NoError(t, err)

	// Destroy re-rendered from the stored parameters.
	require.Len(t, h.executor.destroyed, 1)
	assert.Equal(t, "auto-deployed-shop", h.executor.destroyed[0].Params["service_name"])

	id := domain.DeriveDeploymentID("https://github.com/acme/shop.git", "demo", "us-east-1")
	rec, err := h.store.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDestroyed, rec.Status)
}

func TestDestroy_UnknownDeployment(t *testing.T) {
	h := newHarness(t)

	err := h.orch.Destroy(context.Background(), "https://github.com/acme/never-deployed.git", "demo", "us-east-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, h.executor.destroyed)
}

func TestDestroy_AlreadyDestroyed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Deploy(ctx, deployReq())
	require.NoError(t, err)
	require.NoError(t, h.orch.Destroy(ctx, "https://github.com/acme/shop.git", "demo", "us-east-1"))

	err = h.orch.Destroy(ctx, "https://github.com/acme/shop.git", "demo", "us-east-1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDestroy_FailureRetainsRecordForRetry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Deploy(ctx, deployReq())
	require.NoError(t, err)

	h.executor.destroyErr = errors.New("DependencyViolation: resource in use")
	err = h.orch.Destroy(ctx, "https://github.com/acme/shop.git", "demo", "us-east-1")
	require.Error(t, err)

	id := domain.DeriveDeploymentID("https://github.com/acme/shop.git", "demo", "us-east-1")
	rec, gerr := h.store.GetRecord(ctx, id)
	require.NoError(t, gerr)
	assert.Equal(t, domain.StatusFailed, rec.Status)

	// The operator retries against the same identifier and succeeds.
	h.executor.destroyErr = nil
	require.NoError(t, h.orch.Destroy(ctx, "https://github.com/acme/shop.git", "demo", "us-east-1"))
	rec, gerr = h.store.GetRecord(ctx, id)
	require.NoError(t, gerr)
	assert.Equal(t, domain.StatusDestroyed, rec.Status)
}

// seedProvisioningRecord persists a record as an apply interrupted by
// process death would leave it.
func seedProvisioningRecord(t *testing.T, h *harness) string {
	t.Helper()
	id := domain.DeriveDeploymentID("https://github.com/acme/shop.git", "demo", "us-east-1")
	require.NoError(t, h.store.CreateRecord(context.Background(), &domain.StateRecord{
		ID:          id,
		RepoURL:     "https://github.com/acme/shop.git",
		ServiceName: "auto-deployed-shop",
		ImageRef:    "123456789012.dkr.ecr.us-east-1.amazonaws.com/demo:abc1234",
		TemplateID:  infra.TemplateAppRunner,
		InfraParams: map[string]string{
			"service_name":     "auto-deployed-shop",
			"image_identifier": "123456789012.dkr.ecr.us-east-1.amazonaws.com/demo:abc1234",
			"aws_region":       "us-east-1",
			"aws_account_id":   "123456789012",
			"ecr_repo_name":    "demo",
		},
		Status: domain.StatusProvisioning,
	}))
	return id
}

func TestDestroy_InterruptedProvisioningRecord(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := seedProvisioningRecord(t, h)

	// A record stranded at provisioning may have orphaned infrastructure
	// behind it; destroy must be able to pick it up.
	err := h.orch.Destroy(ctx, "https://github.com/acme/shop.git", "demo", "us-east-1")
	require.NoError(t, err)

	require.Len(t, h.executor.destroyed, 1)
	rec, err := h.store.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDestroyed, rec.Status)
}

func TestDeploy_InterruptedProvisioningRecordIsRecovered(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := seedProvisioningRecord(t, h)

	url, err := h.orch.Deploy(ctx, deployReq())
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	rec, err := h.store.GetRecord(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, rec.Status)
}

func TestDeploy_AfterDestroyStartsNewLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orch.Deploy(ctx, deployReq())
	require.NoError(t, err)
	require.NoError(t, h.orch.Destroy(ctx, "https://github.com/acme/shop.git", "demo", "us-east-1"))

	url, err := h.orch.Deploy(ctx, deployReq())
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	id := domain.DeriveDeploymentID("https://github.com/acme/shop.git", "demo", "us-east-1")
	assert.Equal(t, domain.StatusActive, h.store.records[id].Status)
}
