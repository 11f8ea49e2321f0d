package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/fora-sh/fora/pkg/models"
)

var requiredKeys = []string{
	"ADMIN_EMAIL",
	"ADMIN_PASSWORD",
	"PUBLIC_IP",
	"PORT",
	"FLARUM_VERSION",
	"DB_ROOT_PASSWORD",
	"DB_USER",
	"DB_PASSWORD",
}

// Load builds the validated DeploymentConfig from the env file at envPath
// plus the optional fora.toml at tomlPath (empty path or missing file means
// no overlay). The env file always wins for keys present in both.
func Load(envPath, tomlPath string) (models.DeploymentConfig, error) {
	var cfg models.DeploymentConfig

	values, err := parseEnvFile(envPath)
	if err != nil {
		return cfg, err
	}

	missing := []string{}
	for _, key := range requiredKeys {
		if values[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return cfg, fmt.Errorf("missing required keys in %s: %s", envPath, strings.Join(missing, ", "))
	}

	port, err := strconv.Atoi(values["PORT"])
	if err != nil || port < 1 || port > 65535 {
		return cfg, fmt.Errorf("invalid PORT %q: must be a number between 1 and 65535", values["PORT"])
	}

	cfg = models.DeploymentConfig{
		AdminEmail:      values["ADMIN_EMAIL"],
		AdminPassword:   values["ADMIN_PASSWORD"],
		PublicIP:        values["PUBLIC_IP"],
		Port:            port,
		Version:         values["FLARUM_VERSION"],
		DBRootPassword:  values["DB_ROOT_PASSWORD"],
		DBUser:          values["DB_USER"],
		DBPassword:      values["DB_PASSWORD"],
		Domain:          values["DOMAIN"],
		Extensions:      splitExtensionList(values["EXTENSIONS"]),
		LanguagePackURL: values["LANGUAGE_PACK_URL"],
		Locale:          values["LOCALE"],
		Timezone:        values["TIMEZONE"],
		OverlayDir:      values["OVERLAY_DIR"],
	}

	if tomlPath != "" {
		if err := applyOverlay(&cfg, tomlPath); err != nil {
			return cfg, err
		}
	}

	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.LanguagePackURL != "" && cfg.Locale == "" {
		return cfg, fmt.Errorf("LANGUAGE_PACK_URL is set but LOCALE is empty")
	}
	if !strings.Contains(cfg.AdminEmail, "@") {
		return cfg, fmt.Errorf("invalid ADMIN_EMAIL %q", cfg.AdminEmail)
	}

	return cfg, nil
}

// applyOverlay fills optional fields from fora.toml without overriding
// anything the env file already set. A missing file is not an error.
func applyOverlay(cfg *models.DeploymentConfig, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	var overlay models.ForaConfig
	if _, err := toml.DecodeFile(path, &overlay); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	forum := overlay.Forum
	if cfg.Domain == "" {
		cfg.Domain = forum.Domain
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = forum.Extensions
	}
	if cfg.LanguagePackURL == "" {
		cfg.LanguagePackURL = forum.LanguagePackURL
	}
	if cfg.Locale == "" {
		cfg.Locale = forum.Locale
	}
	if cfg.Timezone == "" {
		cfg.Timezone = forum.Timezone
	}
	if cfg.OverlayDir == "" {
		cfg.OverlayDir = forum.OverlayDir
	}

	return nil
}

// parseEnvFile reads key=value lines; blank lines and #-comments are
// ignored, values may be single- or double-quoted.
func parseEnvFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	values := map[string]string{}
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			return nil, fmt.Errorf("malformed line %d in %s: %q", i+1, path, line)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, nil
}

// splitExtensionList splits the newline-delimited extension list; the env
// file is line-based so embedded newlines arrive as literal \n escapes.
func splitExtensionList(raw string) []string {
	if raw == "" {
		return nil
	}

	raw = strings.ReplaceAll(raw, "\\n", "\n")
	var specs []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			specs = append(specs, line)
		}
	}

	return specs
}
