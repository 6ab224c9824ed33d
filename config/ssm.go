package config

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// ParameterGetter is the slice of the SSM client used for secret lookup.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveSecrets fills secrets that are configured as SSM parameter names.
// It is a no-op when no parameter names are set, so local runs never touch AWS.
func ResolveSecrets(ctx context.Context, cfg *Config) error {
	if cfg.Telegram.BotTokenParameter == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.AWS.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.AWS.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	return resolveSecrets(ctx, ssm.NewFromConfig(awsCfg), cfg)
}

func resolveSecrets(ctx context.Context, client ParameterGetter, cfg *Config) error {
	token, err := getParameterStoreValue(ctx, client, cfg.Telegram.BotTokenParameter, true)
	if err != nil {
		return fmt.Errorf("resolve telegram.bot_token_parameter: %w", err)
	}
	cfg.Telegram.BotToken = token
	return nil
}

func getParameterStoreValue(ctx context.Context, client ParameterGetter, parameterName string, decrypt bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           &parameterName,
		WithDecryption: &decrypt,
	}

	result, err := client.GetParameter(ctx, input)
	if err != nil {
		return "", err
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s has no value", parameterName)
	}

	return *result.Parameter.Value, nil
}
