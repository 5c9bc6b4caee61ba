// Package secrets overlays credentials held in a HashiCorp Vault KV engine
// onto the process environment before configuration is loaded, so keys such
// as DATABASE_PASSWORD or REDIS_PASSWORD never need to live in a config file.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/olumydee/healthcare-readmission-risk-dashboard/pkg/errors"
)

// VaultSource locates one secret in Vault.
type VaultSource struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	// Overwrite replaces variables that are already set.
	Overwrite bool
}

// Result reports which variables a Vault overlay set.
type Result struct {
	Enabled bool
	Path    string
	Loaded  []string
	Skipped []string
}

// VaultSourceFromEnv reads the VAULT_* variables. Vault is off unless
// VAULT_ENABLED=true.
func VaultSourceFromEnv() VaultSource {
	src := VaultSource{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     envOr("VAULT_MOUNT", "secret"),
		Path:      os.Getenv("VAULT_PATH"),
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		src.KVVersion = v
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil && v > 0 {
		src.Timeout = time.Duration(v) * time.Millisecond
	}
	return src
}

// Apply fetches the secret and exports each of its keys as an environment
// variable. A disabled source is a no-op.
func Apply(ctx context.Context, src VaultSource) (Result, error) {
	res := Result{Enabled: src.Enabled, Path: src.Path}
	if !src.Enabled {
		return res, nil
	}
	if src.Addr == "" || src.Token == "" || src.Path == "" {
		return res, apperrors.NewValidationError("vault is enabled but VAULT_ADDR, VAULT_TOKEN or VAULT_PATH is empty")
	}

	data, err := fetch(ctx, src)
	if err != nil {
		return res, err
	}

	for key, value := range data {
		if !src.Overwrite && os.Getenv(key) != "" {
			res.Skipped = append(res.Skipped, key)
			continue
		}
		if err := os.Setenv(key, stringify(value)); err != nil {
			return res, apperrors.NewInternalError("set "+key, err)
		}
		res.Loaded = append(res.Loaded, key)
	}
	return res, nil
}

func fetch(ctx context.Context, src VaultSource) (map[string]interface{}, error) {
	endpoint, err := secretURL(src)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("vault request: %v", err))
	}
	req.Header.Set("X-Vault-Token", src.Token)
	if src.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", src.Namespace)
	}

	client := &http.Client{Timeout: src.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperrors.NewExternalError("vault", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewExternalError("vault", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewExternalError("vault", fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body))))
	}

	var payload struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, apperrors.NewExternalError("vault", fmt.Errorf("decode response: %w", err))
	}
	if payload.Data == nil {
		return nil, apperrors.NewExternalError("vault", fmt.Errorf("response for %s has no data", src.Path))
	}
	if src.KVVersion == 1 {
		return payload.Data, nil
	}

	// KV v2 nests the secret under data.data next to its metadata.
	inner, ok := payload.Data["data"].(map[string]interface{})
	if !ok {
		return nil, apperrors.NewExternalError("vault", fmt.Errorf("KV v2 response for %s has no data.data", src.Path))
	}
	return inner, nil
}

func secretURL(src VaultSource) (string, error) {
	mount := strings.Trim(src.Mount, "/")
	path := strings.Trim(src.Path, "/")
	if mount == "" || path == "" {
		return "", apperrors.NewValidationError("vault mount and path must be set")
	}
	elems := []string{"v1", mount}
	if src.KVVersion != 1 {
		elems = append(elems, "data")
	}
	elems = append(elems, strings.Split(path, "/")...)

	endpoint, err := url.JoinPath(src.Addr, elems...)
	if err != nil {
		return "", apperrors.NewValidationError(fmt.Sprintf("invalid VAULT_ADDR %q: %v", src.Addr, err))
	}
	return endpoint, nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
