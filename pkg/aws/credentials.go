package aws

import (
	"context"

	awsV2 "github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

const defaultRoleSessionName = "cpudash"

// CredentialConfig describes how the provider clients authenticate. Left
// empty, the SDK default chain (env, shared files, instance role) is used.
type CredentialConfig struct {
	Region      string `toml:"region"`
	AccessKey   string `toml:"access_key"`
	SecretKey   string `toml:"secret_key"`
	RoleARN     string `toml:"role_arn"`
	Profile     string `toml:"profile"`
	Filename    string `toml:"shared_credential_file"`
	Token       string `toml:"token"`
	EndpointURL string `toml:"endpoint_url"`

	RoleSessionName string `toml:"role_session_name"`
	ExternalID      string `toml:"external_id"`
}

// Credentials leaves the config's HTTP client to the SDK, which is what lets
// AWS_CA_BUNDLE apply. Service clients bring their own through their options.
func (c *CredentialConfig) Credentials() (awsV2.Config, error) {
	if c.RoleARN != "" {
		return c.assumeCredentials()
	}
	return c.rootCredentials()
}

func (c *CredentialConfig) rootCredentials() (awsV2.Config, error) {
	options := []func(*awsConfig.LoadOptions) error{}

	if c.Region != "" {
		options = append(options, awsConfig.WithRegion(c.Region))
	}
	if c.Profile != "" {
		options = append(options, awsConfig.WithSharedConfigProfile(c.Profile))
	}
	if c.Filename != "" {
		options = append(options, awsConfig.WithSharedCredentialsFiles([]string{c.Filename}))
	}
	if c.AccessKey != "" || c.SecretKey != "" {
		provider := credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, c.Token)
		options = append(options, awsConfig.WithCredentialsProvider(provider))
	}
	if c.EndpointURL != "" {
		endpoint := func(service, region string) (awsV2.Endpoint, error) {
			return awsV2.Endpoint{
				URL:               c.EndpointURL,
				SigningRegion:     region,
				HostnameImmutable: true,
			}, nil
		}
		resolver := awsV2.EndpointResolverWithOptionsFunc(
			func(service, region string, _ ...interface{}) (awsV2.Endpoint, error) {
				return endpoint(service, region)
			})
		options = append(options, awsConfig.WithEndpointResolverWithOptions(resolver))
		// older service clients (cloudwatch) only consult the legacy resolver
		options = append(options, awsConfig.WithEndpointResolver(awsV2.EndpointResolverFunc(endpoint)))
	}
	return awsConfig.LoadDefaultConfig(context.Background(), options...)
}

func (c *CredentialConfig) assumeCredentials() (awsV2.Config, error) {
	rootCredentials, err := c.rootCredentials()
	if err != nil {
		return awsV2.Config{}, err
	}

	stsService := sts.NewFromConfig(rootCredentials)
	provider := stscreds.NewAssumeRoleProvider(stsService, c.RoleARN, func(options *stscreds.AssumeRoleOptions) {
		options.RoleSessionName = c.RoleSessionName
		if options.RoleSessionName == "" {
			options.RoleSessionName = defaultRoleSessionName
		}
		if c.ExternalID != "" {
			options.ExternalID = awsV2.String(c.ExternalID)
		}
	})

	rootCredentials.Credentials = awsV2.NewCredentialsCache(provider)
	return rootCredentials, nil
}
