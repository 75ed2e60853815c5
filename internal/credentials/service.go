// Package credentials implements the encrypted credential write path
// used by the upsert endpoint and consumed read-only by the ingestor.
package credentials

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"go.uber.org/zap"

	"github.com/ady24s/Cloud9/pkg/types"
)

// Encrypter seals plaintext credential fields before they reach storage
type Encrypter interface {
	EncryptString(plaintext string) (string, error)
}

// Repository is the credential persistence surface the service needs
type Repository interface {
	Upsert(ctx context.Context, cred *types.Credential) error
	ListForUser(ctx context.Context, userID string) ([]*types.Credential, error)
	Delete(ctx context.Context, userID string, provider types.Provider) error
}

// Verifier checks that submitted credential material is usable.
// Verification is best-effort advice for the caller; storage does not
// depend on it.
type Verifier interface {
	VerifyAWS(ctx context.Context, accessKey, secretKey string) error
}

// UpsertInput carries plaintext secret material from the caller
type UpsertInput struct {
	Provider  types.Provider
	AccessKey string
	SecretKey string
	ExtraJSON string
}

// Service encrypts and stores per-user cloud credentials
type Service struct {
	repo     Repository
	box      Encrypter
	verifier Verifier
	log      *zap.Logger
}

// NewService creates a credential service. verifier may be nil.
func NewService(repo Repository, box Encrypter, verifier Verifier, log *zap.Logger) *Service {
	return &Service{repo: repo, box: box, verifier: verifier, log: log}
}

// Upsert encrypts the submitted material and creates or replaces the
// (user, provider) credential record. Returns whether verification
// passed; a failed verification still stores the credential, matching
// the revoke-is-explicit policy.
func (s *Service) Upsert(ctx context.Context, userID string, in UpsertInput) (*types.Credential, bool, error) {
	if !in.Provider.Valid() {
		return nil, false, fmt.Errorf("provider must be aws, azure or gcp")
	}

	verified := true
	if s.verifier != nil && in.Provider == types.ProviderAWS && in.AccessKey != "" && in.SecretKey != "" {
		if err := s.verifier.VerifyAWS(ctx, in.AccessKey, in.SecretKey); err != nil {
			s.log.Warn("aws credential verification failed",
				zap.String("user_id", userID), zap.Error(err))
			verified = false
		}
	}

	cred := &types.Credential{
		ID:       types.GenerateCredentialID(),
		UserID:   userID,
		Provider: in.Provider,
	}

	var err error
	if cred.AccessKeyEnc, err = s.box.EncryptString(in.AccessKey); err != nil {
		return nil, false, fmt.Errorf("encrypt access key: %w", err)
	}
	if cred.SecretKeyEnc, err = s.box.EncryptString(in.SecretKey); err != nil {
		return nil, false, fmt.Errorf("encrypt secret key: %w", err)
	}
	if cred.ExtraJSONEnc, err = s.box.EncryptString(in.ExtraJSON); err != nil {
		return nil, false, fmt.Errorf("encrypt extra json: %w", err)
	}

	if err := s.repo.Upsert(ctx, cred); err != nil {
		return nil, false, err
	}

	return cred, verified, nil
}

// List returns the user's credential records, ciphertext and all;
// callers expose only the metadata.
func (s *Service) List(ctx context.Context, userID string) ([]*types.Credential, error) {
	return s.repo.ListForUser(ctx, userID)
}

// Revoke deletes the (user, provider) credential
func (s *Service) Revoke(ctx context.Context, userID string, provider types.Provider) error {
	if !provider.Valid() {
		return fmt.Errorf("provider must be aws, azure or gcp")
	}
	return s.repo.Delete(ctx, userID, provider)
}

// STSVerifier verifies AWS key pairs with a GetCallerIdentity call
type STSVerifier struct {
	Region string
}

// VerifyAWS builds a throwaway STS client from the submitted key pair
func (v *STSVerifier) VerifyAWS(ctx context.Context, accessKey, secretKey string) error {
	region := v.Region
	if region == "" {
		region = "us-east-1"
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		),
	)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	client := sts.NewFromConfig(cfg)
	if _, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return fmt.Errorf("get caller identity: %w", err)
	}
	return nil
}
