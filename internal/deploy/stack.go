package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/pkg/models"
)

const DefaultStackDir = "/opt/flarum"

const webImage = "mondedie/flarum"

// stackTemplate is the compose definition for the three fixed containers.
// Credentials stay out of it; they live in the env file next to it.
const stackTemplate = `services:
  web:
    image: {{IMAGE}}
    container_name: flarum_web
    restart: unless-stopped
    env_file: .env
    ports:
      - "{{PORT}}:8888"
    volumes:
      - ./assets:/flarum/app/public/assets
      - ./extensions:/flarum/app/extensions
    depends_on:
      - db
    healthcheck:
      test: ["CMD", "curl", "-sf", "http://localhost:8888/"]
      interval: 15s
      timeout: 5s
      retries: 10

  db:
    image: mariadb:11.4
    container_name: flarum_db
    restart: unless-stopped
    environment:
      MARIADB_ROOT_PASSWORD: "${DB_ROOT_PASSWORD}"
      MARIADB_DATABASE: flarum
      MARIADB_USER: "${DB_USER}"
      MARIADB_PASSWORD: "${DB_PASSWORD}"
    volumes:
      - ./mysql:/var/lib/mysql
    healthcheck:
      test: ["CMD", "healthcheck.sh", "--connect", "--innodb_initialized"]
      interval: 10s
      timeout: 5s
      retries: 12

  cron:
    image: {{IMAGE}}
    container_name: flarum_cron
    restart: unless-stopped
    env_file: .env
    entrypoint: ["/bin/sh", "-c", "while true; do php /flarum/app/flarum schedule:run; sleep 60; done"]
    volumes:
      - ./assets:/flarum/app/public/assets
      - ./extensions:/flarum/app/extensions
    depends_on:
      - db
`

func ImageRef(version string) string {
	return webImage + ":" + version
}

// WriteStackFiles lays down the stack directory: data directories, the
// compose definition and the environment file the containers read their
// credentials from.
func WriteStackFiles(stackDir string, cfg models.DeploymentConfig) error {
	for _, dir := range []string{"assets", "extensions", "mysql"} {
		if err := os.MkdirAll(filepath.Join(stackDir, dir), 0o755); err != nil {
			return fmt.Errorf("failed to create data directory %s: %w", dir, err)
		}
	}

	compose := strings.NewReplacer(
		"{{IMAGE}}", ImageRef(cfg.Version),
		"{{PORT}}", strconv.Itoa(cfg.Port),
	).Replace(stackTemplate)
	if err := os.WriteFile(filepath.Join(stackDir, docker.ComposeFileName), []byte(compose), 0o644); err != nil {
		return fmt.Errorf("failed to write stack definition: %w", err)
	}

	forumURL := "http://" + cfg.PublicIP + ":" + strconv.Itoa(cfg.Port)
	if cfg.Domain != "" {
		forumURL = "https://" + cfg.Domain
	}

	env := strings.Join([]string{
		"# generated by fora, do not edit by hand",
		"FORUM_URL=" + forumURL,
		"DB_HOST=" + docker.DBContainer,
		"DB_NAME=flarum",
		"DB_USER=" + cfg.DBUser,
		"DB_PASS=" + cfg.DBPassword,
		"DB_ROOT_PASSWORD=" + cfg.DBRootPassword,
		"DB_PASSWORD=" + cfg.DBPassword,
		"FLARUM_ADMIN_USER=admin",
		"FLARUM_ADMIN_PASS=" + cfg.AdminPassword,
		"FLARUM_ADMIN_MAIL=" + cfg.AdminEmail,
		"TZ=" + cfg.Timezone,
		"",
	}, "\n")
	if err := os.WriteFile(filepath.Join(stackDir, ".env"), []byte(env), 0o600); err != nil {
		return fmt.Errorf("failed to write environment file: %w", err)
	}

	return nil
}
