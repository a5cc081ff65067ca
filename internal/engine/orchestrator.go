package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/slipway-sh/slipway/internal/core/domain"
	"github.com/slipway-sh/slipway/internal/core/infra"
	"github.com/slipway-sh/slipway/internal/shell/store"
)

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator sequences the deployment pipeline. It is the sole owner of
// deployment state records; no other component reads or writes them.
//
// Pipeline runs are strictly sequential: each stage's output is the next
// stage's input, and the provisioning engine is not re-entrant against one
// working directory. Serializing concurrent runs against the same deployment
// identifier is the caller's responsibility.
type Orchestrator struct {
	fetcher   Fetcher
	profiler  Profiler
	builder   Builder
	publisher Publisher
	identity  Identity
	executor  Executor
	store     store.Store
	infraRoot string
	logger    *slog.Logger
}

// NewOrchestrator wires a pipeline. infraRoot is where rendered
// infrastructure working directories are materialized.
func NewOrchestrator(
	fetcher Fetcher,
	profiler Profiler,
	builder Builder,
	publisher Publisher,
	identity Identity,
	executor Executor,
	st store.Store,
	infraRoot string,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		profiler:  profiler,
		builder:   builder,
		publisher: publisher,
		identity:  identity,
		executor:  executor,
		store:     st,
		infraRoot: infraRoot,
		logger:    logger.With("component", "orchestrator"),
	}
}

// DeployRequest are the operator inputs of one deploy invocation.
type DeployRequest struct {
	RepoURL     string
	Ref         string
	Prompt      string
	ECRRepoName string
	AWSRegion   string
}

// =============================================================================
// Deploy
// =============================================================================

// Deploy runs the full pipeline and returns the public service URL.
//
// The pipeline aborts on the first failing stage. Failures before the
// provisioning stage leave no state record beyond provisioning, since no
// infrastructure exists yet; a failed apply persists status=failed so the
// operator can inspect and retry deliberately.
func (o *Orchestrator) Deploy(ctx context.Context, req DeployRequest) (string, error) {
	target, err := domain.RecognizeTarget(req.Prompt)
	if err != nil {
		return "", stageErr(StageTarget, err)
	}

	deploymentID := domain.DeriveDeploymentID(req.RepoURL, req.ECRRepoName, req.AWSRegion)
	o.logger.Info("starting deployment",
		"deployment_id", deploymentID,
		"repo_url", req.RepoURL,
		"ecr_repo", req.ECRRepoName,
		"region", req.AWSRegion,
	)

	// A redeploy reuses the existing service name so the provisioning
	// engine updates the service in place instead of creating a sibling.
	serviceName := domain.ServiceName(req.RepoURL, req.ECRRepoName)
	existing, err := o.store.GetRecord(ctx, deploymentID)
	switch {
	case err == nil:
		if existing.Status == domain.StatusActive {
			o.logger.Info("existing active deployment, redeploying", "service_name", existing.ServiceName)
			serviceName = existing.ServiceName
		}
	case errors.Is(err, store.ErrNotFound):
		existing = nil
	default:
		return "", stageErr(StageState, err)
	}

	accountID, err := o.identity.AccountID(ctx)
	if err != nil {
		return "", stageErr(StageIdentity, err)
	}
	o.logger.Info("resolved cloud identity", "account_id", accountID, "region", req.AWSRegion)

	checkout, err := o.fetcher.Fetch(ctx, req.RepoURL, req.Ref)
	if err != nil {
		return "", stageErr(StageFetch, err)
	}
	defer func() {
		if cerr := o.fetcher.Cleanup(checkout); cerr != nil {
			o.logger.Warn("could not clean up working copy", "error", cerr)
		}
	}()

	appProfile := o.profiler(os.DirFS(checkout.Dir))
	o.logger.Info("application profiled",
		"runtime", appProfile.Runtime,
		"entry_point", appProfile.EntryPoint,
		"port", appProfile.ListenPort,
		"has_dockerfile", appProfile.HasDockerfile,
	)
	if target.RuntimeHint != "" && target.RuntimeHint != appProfile.Runtime {
		o.logger.Warn("prompt runtime differs from detected runtime",
			"prompt", target.RuntimeHint, "detected", appProfile.Runtime)
	}

	tag := domain.ImageTag(req.ECRRepoName, checkout.CommitHash)
	artifact, err := o.builder.Build(ctx, checkout.Dir, appProfile, tag)
	if err != nil {
		return "", stageErr(StageBuild, err)
	}

	imageRef, err := o.publisher.Publish(ctx, *artifact, req.ECRRepoName)
	if err != nil {
		return "", stageErr(StagePublish, err)
	}

	params := map[string]string{
		"service_name":     serviceName,
		"image_identifier": imageRef.String(),
		"aws_region":       req.AWSRegion,
		"aws_account_id":   accountID,
		"ecr_repo_name":    req.ECRRepoName,
	}
	cfg, err := infra.Render(infra.TemplateAppRunner, params)
	if err != nil {
		return "", stageErr(StageRender, err)
	}
	workDir := filepath.Join(o.infraRoot, "infra-"+deploymentID)
	if err := cfg.Materialize(workDir); err != nil {
		return "", stageErr(StageRender, err)
	}

	record, err := o.beginProvisioning(ctx, existing, deploymentID, req, serviceName, imageRef, cfg)
	if err != nil {
		return "", stageErr(StageState, err)
	}

	outputs, err := o.executor.Apply(ctx, cfg)
	if err != nil {
		o.failRecord(ctx, record, err)
		return "", stageErr(StageApply, err)
	}

	if terr := record.Transition(domain.StatusActive); terr != nil {
		return "", stageErr(StageState, terr)
	}
	record.StatusDetail = ""
	if err := o.store.UpdateRecord(ctx, record); err != nil {
		return "", stageErr(StageState, err)
	}

	serviceURL := outputs.ServiceURL()
	if serviceURL == "" {
		o.logger.Warn("apply succeeded but no service_url output was found")
	}
	o.logger.Info("deployment succeeded", "deployment_id", deploymentID, "service_url", serviceURL)
	return serviceURL, nil
}

// beginProvisioning creates or refreshes the state record at the start of
// infrastructure provisioning.
func (o *Orchestrator) beginProvisioning(
	ctx context.Context,
	existing *domain.StateRecord,
	deploymentID string,
	req DeployRequest,
	serviceName string,
	imageRef domain.ImageReference,
	cfg *infra.Config,
) (*domain.StateRecord, error) {
	now := time.Now().UTC()

	if existing != nil {
		if existing.Status == domain.StatusDestroyed {
			// A deploy after a completed destroy starts a new lifecycle
			// under the same identifier.
			existing.Status = domain.StatusProvisioning
			existing.CreatedAt = now
			existing.UpdatedAt = now
		} else if err := existing.Transition(domain.StatusProvisioning); err != nil {
			return nil, fmt.Errorf("record %s is %s: %w", deploymentID, existing.Status, err)
		}
		existing.ServiceName = serviceName
		existing.ImageRef = imageRef.String()
		existing.TemplateID = cfg.TemplateID
		existing.InfraParams = cfg.Params
		existing.WorkDir = cfg.WorkDir
		existing.StatusDetail = ""
		return existing, o.store.UpdateRecord(ctx, existing)
	}

	record := &domain.StateRecord{
		ID:          deploymentID,
		RepoURL:     req.RepoURL,
		ServiceName: serviceName,
		ImageRef:    imageRef.String(),
		TemplateID:  cfg.TemplateID,
		InfraParams: cfg.Params,
		WorkDir:     cfg.WorkDir,
		Status:      domain.StatusProvisioning,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return record, o.store.CreateRecord(ctx, record)
}

// =============================================================================
// Destroy
// =============================================================================

// Destroy tears down the infrastructure of a previously created deployment.
//
// The infrastructure configuration is re-rendered from the stored
// parameters, never from fresh operator input, so destroy targets exactly
// what deploy created. The record is retained on failure so destroy can be
// retried against the same identifier.
func (o *Orchestrator) Destroy(ctx context.Context, repoURL, ecrRepoName, awsRegion string) error {
	deploymentID := domain.DeriveDeploymentID(repoURL, ecrRepoName, awsRegion)
	o.logger.Info("starting teardown", "deployment_id", deploymentID, "repo_url", repoURL)

	record, err := o.store.GetRecord(ctx, deploymentID)
	if err != nil {
		return stageErr(StageState, err)
	}
	if record.Status == domain.StatusDestroyed {
		return stageErr(StageState, fmt.Errorf("deployment %s: %w", deploymentID, store.ErrNotFound))
	}
	if err := record.Validate(); err != nil {
		return stageErr(StageState, err)
	}

	cfg, err := infra.Render(record.TemplateID, record.InfraParams)
	if err != nil {
		return stageErr(StageRender, err)
	}
	workDir := filepath.Join(o.infraRoot, "infra-"+deploymentID)
	if err := cfg.Materialize(workDir); err != nil {
		return stageErr(StageRender, err)
	}

	if err := record.Transition(domain.StatusDestroying); err != nil {
		return stageErr(StageState, err)
	}
	if err := o.store.UpdateRecord(ctx, record); err != nil {
		return stageErr(StageState, err)
	}

	if err := o.executor.Destroy(ctx, cfg); err != nil {
		o.failRecord(ctx, record, err)
		return stageErr(StageDestroy, err)
	}

	if err := record.Transition(domain.StatusDestroyed); err != nil {
		return stageErr(StageState, err)
	}
	record.StatusDetail = ""
	if err := o.store.UpdateRecord(ctx, record); err != nil {
		return stageErr(StageState, err)
	}

	o.logger.Info("teardown succeeded", "deployment_id", deploymentID)
	return nil
}

// =============================================================================
// Listing
// =============================================================================

// Deployments returns every known state record, newest first.
func (o *Orchestrator) Deployments(ctx context.Context) ([]domain.StateRecord, error) {
	return o.store.ListRecords(ctx)
}

// failRecord marks a record failed, keeping the engine diagnostic as the
// status detail. A failure to persist the failure is logged, not returned;
// the original error is the one the operator needs.
func (o *Orchestrator) failRecord(ctx context.Context, record *domain.StateRecord, cause error) {
	if terr := record.Transition(domain.StatusFailed); terr != nil {
		o.logger.Error("could not mark record failed", "error", terr)
		return
	}
	record.StatusDetail = cause.Error()
	if uerr := o.store.UpdateRecord(ctx, record); uerr != nil {
		o.logger.Error("could not persist failed record", "error", uerr)
	}
}
