package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/slipway-sh/slipway/internal/engine"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		usage()
		return ExitConfigError
	}

	switch args[0] {
	case "deploy":
		return runDeploy(args[1:])
	case "destroy":
		return runDestroy(args[1:])
	case "list":
		return runList(args[1:])
	case "version", "-version", "--version":
		fmt.Printf("slipway %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	case "help", "-h", "-help", "--help":
		usage()
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		usage()
		return ExitConfigError
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `Usage: slipway <command> [flags]

Commands:
  deploy   Deploy a repository to AWS App Runner
  destroy  Tear down a previously created deployment
  list     List known deployments
  version  Print version and exit

Run 'slipway <command> -h' for command flags.
`)
}

// =============================================================================
// deploy
// =============================================================================

func runDeploy(args []string) int {
	fs := flag.NewFlagSet("deploy", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	repoURL := fs.String("repo-url", "", "Git repository URL to deploy (required)")
	ref := fs.String("ref", "", "Branch or tag to deploy (default: repository default branch)")
	prompt := fs.String("prompt", "", "Deployment instruction, e.g. \"deploy this flask app to aws\" (required)")
	ecrRepo := fs.String("ecr-repo-name", "", "ECR repository for the built image (default from config)")
	region := fs.String("aws-region", "", "AWS region (default from config)")
	fs.Parse(args)

	if *repoURL == "" || *prompt == "" {
		fmt.Fprintln(os.Stderr, "deploy requires -repo-url and -prompt")
		fs.Usage()
		return ExitConfigError
	}

	cfg, logger, code := setup(*configPath)
	if code != ExitSuccess {
		return code
	}
	if *ecrRepo == "" {
		*ecrRepo = cfg.AWS.ECRRepoName
	}
	if *region == "" {
		*region = cfg.AWS.Region
	}

	ctx := context.Background()
	pipeline, err := NewPipeline(ctx, cfg, *region, logger)
	if err != nil {
		return reportWiringError(logger, err)
	}
	defer pipeline.Close()

	serviceURL, err := pipeline.Orchestrator.Deploy(ctx, engine.DeployRequest{
		RepoURL:     *repoURL,
		Ref:         *ref,
		Prompt:      *prompt,
		ECRRepoName: *ecrRepo,
		AWSRegion:   *region,
	})
	if err != nil {
		var serr *engine.StageError
		if errors.As(err, &serr) {
			logger.Error("deployment failed", "stage", serr.Stage, "error", serr.Err)
		} else {
			logger.Error("deployment failed", "error", err)
		}
		return ExitPipelineError
	}

	fmt.Println(serviceURL)
	return ExitSuccess
}

// =============================================================================
// destroy
// =============================================================================

func runDestroy(args []string) int {
	fs := flag.NewFlagSet("destroy", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	repoURL := fs.String("repo-url", "", "Git repository URL of the deployment (required)")
	ecrRepo := fs.String("ecr-repo-name", "", "ECR repository the deployment was published to (default from config)")
	region := fs.String("aws-region", "", "AWS region (default from config)")
	fs.Parse(args)

	if *repoURL == "" {
		fmt.Fprintln(os.Stderr, "destroy requires -repo-url")
		fs.Usage()
		return ExitConfigError
	}

	cfg, logger, code := setup(*configPath)
	if code != ExitSuccess {
		return code
	}
	if *ecrRepo == "" {
		*ecrRepo = cfg.AWS.ECRRepoName
	}
	if *region == "" {
		*region = cfg.AWS.Region
	}

	ctx := context.Background()
	pipeline, err := NewPipeline(ctx, cfg, *region, logger)
	if err != nil {
		return reportWiringError(logger, err)
	}
	defer pipeline.Close()

	if err := pipeline.Orchestrator.Destroy(ctx, *repoURL, *ecrRepo, *region); err != nil {
		var serr *engine.StageError
		if errors.As(err, &serr) {
			logger.Error("teardown failed", "stage", serr.Stage, "error", serr.Err)
		} else {
			logger.Error("teardown failed", "error", err)
		}
		return ExitPipelineError
	}

	fmt.Println("destroyed")
	return ExitSuccess
}

// =============================================================================
// list
// =============================================================================

func runList(args []string) int {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	cfg, logger, code := setup(*configPath)
	if code != ExitSuccess {
		return code
	}

	// Listing only needs the state store, not the daemon or the cloud.
	st, err := newStore(cfg)
	if err != nil {
		logger.Error("could not open state store", "error", err)
		return ExitDatabaseError
	}
	defer st.Close()

	records, err := st.ListRecords(context.Background())
	if err != nil {
		logger.Error("could not list deployments", "error", err)
		return ExitDatabaseError
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSERVICE\tSTATUS\tIMAGE\tUPDATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.ServiceName, r.Status, r.ImageRef, r.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	w.Flush()
	return ExitSuccess
}

// =============================================================================
// Shared setup
// =============================================================================

func setup(configPath string) (*Config, *slog.Logger, int) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return nil, nil, ExitConfigError
	}
	logger := SetupLogger(cfg)
	return cfg, logger, ExitSuccess
}

func reportWiringError(logger *slog.Logger, err error) int {
	var perr *PipelineError
	if errors.As(err, &perr) {
		logger.Error("could not assemble pipeline", "operation", perr.Op, "error", perr.Err)
		return perr.ExitCode
	}
	logger.Error("could not assemble pipeline", "error", err)
	return ExitConfigError
}
