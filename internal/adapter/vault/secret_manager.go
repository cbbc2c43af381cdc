package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Secrets holds the credentials the service may keep in Vault instead of
// its config file. Empty fields mean the secret was not present.
type Secrets struct {
	DatabaseURL  string
	VisionAPIKey string
	OCRAPIKey    string
	JWTSecret    string
}

// SecretManager reads KV version 2 secrets under a mount, "secret" by default.
type SecretManager struct {
	client *api.Client
	mount  string
	log    *zap.Logger
}

func NewSecretManager(address, token, mount string, log *zap.Logger) (*SecretManager, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(token)

	if mount == "" {
		mount = "secret"
	}
	return &SecretManager{client: client, mount: mount, log: log}, nil
}

// Field returns one string field of the secret at path. A missing secret or
// field yields "" without error.
func (sm *SecretManager) Field(ctx context.Context, path, key string) (string, error) {
	secret, err := sm.client.Logical().ReadWithContext(ctx, fmt.Sprintf("%s/data/%s", sm.mount, path))
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", nil
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", nil
	}
	value, ok := data[key].(string)
	if !ok {
		return "", nil
	}
	return value, nil
}

// Load reads every secret the service knows about.
func (sm *SecretManager) Load(ctx context.Context) (*Secrets, error) {
	s := &Secrets{}
	fields := []struct {
		path, key string
		dst       *string
	}{
		{"database", "connection_string", &s.DatabaseURL},
		{"recognition/vision", "api_key", &s.VisionAPIKey},
		{"recognition/ocr", "api_key", &s.OCRAPIKey},
		{"jwt", "secret", &s.JWTSecret},
	}

	for _, f := range fields {
		v, err := sm.Field(ctx, f.path, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}

	sm.log.Info("Loaded secrets from Vault",
		zap.Bool("database_url", s.DatabaseURL != ""),
		zap.Bool("vision_api_key", s.VisionAPIKey != ""),
		zap.Bool("ocr_api_key", s.OCRAPIKey != ""),
		zap.Bool("jwt_secret", s.JWTSecret != ""),
	)
	return s, nil
}
