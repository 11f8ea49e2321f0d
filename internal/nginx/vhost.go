package nginx

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fora-sh/fora/internal/executor"
)

const (
	DefaultAvailableDir = "/etc/nginx/sites-available"
	DefaultEnabledDir   = "/etc/nginx/sites-enabled"
)

// vhostTemplate proxies the domain to the stack's published port. The two
// placeholders are substituted in memory; the content never passes through
// a shell, which would reinterpret quoting inside the template.
const vhostTemplate = `server {
    listen 80;
    listen [::]:80;
    server_name {{DOMAIN}};

    client_max_body_size 64m;

    location / {
        proxy_set_header Host $host;
        proxy_set_header X-Real-IP $remote_addr;
        proxy_set_header X-Forwarded-For $proxy_add_x_forwarded_for;
        proxy_set_header X-Forwarded-Proto $scheme;
        proxy_pass http://localhost:{{PORT}};
    }
}
`

// VhostWriter writes the reverse-proxy virtual host for a domain. Every
// filesystem step uses direct primitives; the only shell involvement is
// the nginx syntax test and the reload at the end.
type VhostWriter struct {
	exec         executor.Executor
	availableDir string
	enabledDir   string
	out          io.Writer
}

func NewVhostWriter(exec executor.Executor, out io.Writer) *VhostWriter {
	return &VhostWriter{
		exec:         exec,
		availableDir: DefaultAvailableDir,
		enabledDir:   DefaultEnabledDir,
		out:          out,
	}
}

func (w *VhostWriter) VhostPath(domain string) string {
	return filepath.Join(w.availableDir, domain)
}

// WriteVhost renders, writes and activates the vhost for domain. No reader
// ever observes a partial file at the final path: content is written to a
// temp path, verified byte for byte, then atomically renamed into place.
func (w *VhostWriter) WriteVhost(ctx context.Context, domain string, port int) error {
	content := strings.NewReplacer(
		"{{DOMAIN}}", domain,
		"{{PORT}}", strconv.Itoa(port),
	).Replace(vhostTemplate)

	finalPath := w.VhostPath(domain)
	tmpPath := finalPath + ".tmp"

	fmt.Fprintf(w.out, "  --> writing vhost for %s...\n", domain)
	if err := os.WriteFile(tmpPath, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write vhost temp file: %w", err)
	}

	written, err := os.ReadFile(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to re-read vhost temp file: %w", err)
	}
	if len(written) != len(content) || countLines(string(written)) != countLines(content) {
		os.Remove(tmpPath)
		return fmt.Errorf("vhost temp file does not match generated content (%d bytes written, %d generated)",
			len(written), len(content))
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move vhost into place: %w", err)
	}

	if err := VerifyVhost(finalPath, "proxy_pass http://localhost:"+strconv.Itoa(port)+";"); err != nil {
		return err
	}

	enabledPath := filepath.Join(w.enabledDir, domain)
	if err := os.Remove(enabledPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale enabled-site link: %w", err)
	}
	if err := os.Symlink(finalPath, enabledPath); err != nil {
		return fmt.Errorf("failed to enable site: %w", err)
	}

	if _, err := w.exec.Run(ctx, executor.Command{
		Name: "nginx",
		Args: []string{"-t"},
	}); err != nil {
		return fmt.Errorf("nginx configuration test failed: %w", err)
	}

	if _, err := w.exec.Run(ctx, executor.Command{
		Name: "systemctl",
		Args: []string{"reload", "nginx"},
	}); err != nil {
		return fmt.Errorf("failed to reload nginx: %w", err)
	}

	fmt.Fprintf(w.out, "  [done] vhost for %s active\n", domain)
	return nil
}

// VerifyVhost checks that the file at path contains the mandatory
// directive and still ends with the closing brace. Used both after the
// atomic write and after certbot rewrites the file for TLS.
func VerifyVhost(path, directive string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read vhost %s: %w", path, err)
	}

	content := string(data)
	if !strings.Contains(content, directive) {
		return fmt.Errorf("vhost %s is missing %q", path, directive)
	}

	trimmed := strings.TrimRight(content, " \t\n")
	if !strings.HasSuffix(trimmed, "}") {
		return fmt.Errorf("vhost %s is truncated: does not end with }", path)
	}

	return nil
}

func countLines(s string) int {
	return strings.Count(s, "\n")
}
