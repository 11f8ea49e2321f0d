package ssl

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/internal/nginx"
)

const certbotTimeout = 3 * time.Minute

// CertManager obtains TLS certificates for the vhost the writer already
// put in place. Re-runs are idempotent: an existing certificate makes a
// failed issuance benign.
type CertManager struct {
	exec     executor.Executor
	vhostDir string
	out      io.Writer
}

func NewCertManager(exec executor.Executor, vhostDir string, out io.Writer) *CertManager {
	return &CertManager{
		exec:     exec,
		vhostDir: vhostDir,
		out:      out,
	}
}

func (m *CertManager) vhostPath(domain string) string {
	return filepath.Join(m.vhostDir, domain)
}

// IssueCertificate asks certbot for a certificate covering domain and lets
// its nginx plugin rewrite the vhost for TLS. A reported failure is
// re-checked against the certificate store before being propagated, since
// "already issued" comes back as an error from some certbot versions.
func (m *CertManager) IssueCertificate(ctx context.Context, domain, email string) error {
	fmt.Fprintf(m.out, "  --> requesting certificate for %s...\n", domain)

	result, err := m.exec.Run(ctx, executor.Command{
		Name: "certbot",
		Args: []string{
			"--nginx",
			"-d", domain,
			"-m", email,
			"--agree-tos",
			"--non-interactive",
			"--redirect",
		},
		Timeout:      certbotTimeout,
		AllowFailure: true,
	})
	if err != nil {
		return err
	}

	if !result.Success {
		if m.certificateExists(ctx, domain) {
			fmt.Fprintf(m.out, "  [info] certificate for %s already issued, continuing\n", domain)
		} else {
			return fmt.Errorf("certificate issuance for %s failed:\n%s", domain, result.Output)
		}
	}

	// certbot rewrites the vhost in place; make sure it did not truncate it
	if err := nginx.VerifyVhost(m.vhostPath(domain), "listen 443 ssl"); err != nil {
		return fmt.Errorf("vhost damaged by certificate setup: %w", err)
	}

	fmt.Fprintf(m.out, "  [done] certificate for %s active\n", domain)
	return nil
}

func (m *CertManager) certificateExists(ctx context.Context, domain string) bool {
	result, err := m.exec.Run(ctx, executor.Command{
		Name:         "certbot",
		Args:         []string{"certificates", "-d", domain},
		Timeout:      certbotTimeout,
		AllowFailure: true,
	})
	if err != nil || !result.Success {
		return false
	}

	return strings.Contains(result.Output, "Certificate Name: "+domain)
}
