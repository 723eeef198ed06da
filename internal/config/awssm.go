package config

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// resolveAWSSecretsManager reads a password from AWS Secrets Manager.
// Format: secret-name, or secret-name#key for JSON secrets such as the
// ones RDS generates ({"username": ..., "password": ...}).
func resolveAWSSecretsManager(ref string) (string, error) {
	name, key, err := splitRef(ref, true)
	if err != nil {
		return "", err
	}

	ctx := context.Background()
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	client := secretsmanager.NewFromConfig(cfg)
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value (binary secrets not supported)", name)
	}

	return secretField(*out.SecretString, key, name)
}

// secretField returns the whole secret string, or one field of it when the
// secret is a JSON object and key is set.
func secretField(secret, key, name string) (string, error) {
	if key == "" {
		return secret, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(secret), &data); err != nil {
		return "", fmt.Errorf("secret %q is not a JSON object: %w", name, err)
	}
	return lookupKey(data, key, fmt.Sprintf("secret %q", name))
}
