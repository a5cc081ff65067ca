package registry

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	smithy "github.com/aws/smithy-go"
	dockerregistry "github.com/docker/docker/api/types/registry"
)

// =============================================================================
// ECR Client
// =============================================================================

// Credentials optionally pins static AWS credentials. When empty, the
// default credential chain (environment, shared config, instance role) is
// used.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
}

// ECRClient resolves the AWS account identity and produces registry
// authorizations for ECR pushes.
type ECRClient struct {
	ecr    *ecr.Client
	sts    *sts.Client
	logger *slog.Logger
}

// NewECRClient creates an ECR client for the given region.
func NewECRClient(ctx context.Context, region string, creds Credentials, logger *slog.Logger) (*ECRClient, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if creds.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS configuration: %w", err)
	}

	return &ECRClient{
		ecr:    ecr.NewFromConfig(cfg),
		sts:    sts.NewFromConfig(cfg),
		logger: logger.With("component", "registry"),
	}, nil
}

// AccountID resolves the AWS account ID of the current credentials.
func (c *ECRClient) AccountID(ctx context.Context) (string, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrIdentity, apiErrorMessage(err))
	}
	return *out.Account, nil
}

// =============================================================================
// Registry Authorization
// =============================================================================

// Authorization is a decoded ECR login: the registry endpoint plus the
// encoded credential the Docker daemon expects on push.
type Authorization struct {
	RegistryURI string
	Username    string
	Password    string
}

// Encoded returns the base64 auth payload for the Docker daemon.
func (a Authorization) Encoded() string {
	payload, _ := json.Marshal(dockerregistry.AuthConfig{
		Username:      a.Username,
		Password:      a.Password,
		ServerAddress: a.RegistryURI,
	})
	return base64.URLEncoding.EncodeToString(payload)
}

// Authorize obtains a fresh ECR authorization token.
func (c *ECRClient) Authorize(ctx context.Context) (*Authorization, error) {
	out, err := c.ecr.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, &AuthError{Op: "Authorize", Message: apiErrorMessage(err), Err: ErrAuthRejected}
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return nil, &AuthError{Op: "Authorize", Message: "empty authorization data", Err: ErrAuthRejected}
	}

	data := out.AuthorizationData[0]
	username, password, err := decodeAuthToken(*data.AuthorizationToken)
	if err != nil {
		return nil, &AuthError{Op: "Authorize", Message: err.Error(), Err: ErrAuthRejected}
	}

	uri := ""
	if data.ProxyEndpoint != nil {
		uri = trimRegistryScheme(*data.ProxyEndpoint)
	}

	c.logger.Debug("registry authorization obtained", "registry", uri)
	return &Authorization{RegistryURI: uri, Username: username, Password: password}, nil
}

// EnsureRepository creates the ECR repository when it does not already
// exist. Creation of an existing repository is not an error.
func (c *ECRClient) EnsureRepository(ctx context.Context, name string) error {
	_, err := c.ecr.CreateRepository(ctx, &ecr.CreateRepositoryInput{RepositoryName: &name})
	if err != nil {
		var exists *ecrtypes.RepositoryAlreadyExistsException
		if errors.As(err, &exists) {
			return nil
		}
		return &PublishError{Ref: name, Message: apiErrorMessage(err), Err: ErrPushRejected}
	}
	c.logger.Info("created ECR repository", "repository", name)
	return nil
}

// =============================================================================
// Helpers
// =============================================================================

// decodeAuthToken splits an ECR authorization token into its username and
// password halves. ECR tokens are base64("AWS:<password>").
func decodeAuthToken(token string) (username, password string, err error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", "", fmt.Errorf("decode authorization token: %w", err)
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed authorization token")
	}
	return parts[0], parts[1], nil
}

// trimRegistryScheme strips the https:// scheme from a proxy endpoint; image
// references never carry one.
func trimRegistryScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimPrefix(endpoint, "http://")
}

// apiErrorMessage extracts the service error code and message when the error
// is an AWS API error, keeping diagnostics compact but complete.
func apiErrorMessage(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}
