package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lucsky/cuid"

	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/internal/extensions"
	"github.com/fora-sh/fora/pkg/models"
)

const (
	dbHealthBudget  = 180 * time.Second
	webHealthBudget = 300 * time.Second
)

type composeRunner interface {
	RecreateContainers(ctx context.Context) error
	ContainerExec(ctx context.Context, name string, allowFailure bool, argv ...string) (models.ProcessResult, error)
	ComposePath() string
}

type healthWaiter interface {
	WaitForHealthy(ctx context.Context, name string, timeout time.Duration) bool
}

type imagePuller interface {
	PullImage(image string, w io.Writer) error
}

type stateInspector interface {
	IsInstalled() bool
	NeedsUpdate(targetVersion string) (bool, error)
}

type extensionInstaller interface {
	InstallAll(ctx context.Context, lines []string) models.InstallReport
	InstallLanguagePack(ctx context.Context, rawURL, locale string) error
}

type vhostWriter interface {
	WriteVhost(ctx context.Context, domain string, port int) error
}

type certIssuer interface {
	IssueCertificate(ctx context.Context, domain, email string) error
}

// Orchestrator is the top-level state machine: an uninstalled host goes
// through the install flow, an installed-but-stale one through the update
// flow. Critical steps abort the run; best-effort steps log and continue.
type Orchestrator struct {
	cfg       models.DeploymentConfig
	inspector stateInspector
	compose   composeRunner
	waiter    healthWaiter
	puller    imagePuller
	installer extensionInstaller
	vhosts    vhostWriter
	certs     certIssuer

	stackDir string
	runID    string
	out      io.Writer

	// setImageTag is swappable for tests; defaults to docker.SetImageTag.
	setImageTag func(path, service, image string) error
}

func NewOrchestrator(
	cfg models.DeploymentConfig,
	inspector stateInspector,
	compose composeRunner,
	waiter healthWaiter,
	puller imagePuller,
	installer extensionInstaller,
	vhosts vhostWriter,
	certs certIssuer,
	stackDir string,
	out io.Writer,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		inspector:   inspector,
		compose:     compose,
		waiter:      waiter,
		puller:      puller,
		installer:   installer,
		vhosts:      vhosts,
		certs:       certs,
		stackDir:    stackDir,
		runID:       cuid.Slug(),
		out:         out,
		setImageTag: docker.SetImageTag,
	}
}

// Run converges the host: install when nothing is there, update when the
// running version differs from the target, nothing otherwise.
func (o *Orchestrator) Run(ctx context.Context) error {
	fmt.Fprintf(o.out, "==> deployment run %s\n", o.runID)

	if !o.inspector.IsInstalled() {
		return o.install(ctx)
	}

	needsUpdate, err := o.inspector.NeedsUpdate(o.cfg.Version)
	if err != nil {
		return fmt.Errorf("failed to determine running version: %w", err)
	}
	if !needsUpdate {
		return nil
	}

	return o.update(ctx)
}

func (o *Orchestrator) install(ctx context.Context) error {
	fmt.Fprintf(o.out, "--> installing forum %s into %s\n", o.cfg.Version, o.stackDir)

	if err := WriteStackFiles(o.stackDir, o.cfg); err != nil {
		return err
	}

	if err := o.compose.RecreateContainers(ctx); err != nil {
		return fmt.Errorf("failed to start stack: %w", err)
	}

	if err := o.waitForStack(ctx); err != nil {
		return err
	}

	fmt.Fprintln(o.out, "  --> running first-run installation...")
	result, err := o.compose.ContainerExec(ctx, docker.WebContainer, false,
		"php", "flarum", "install", "--no-interaction")
	if err != nil {
		return fmt.Errorf("first-run installation failed: %w\n%s", err, result.Output)
	}

	o.clearCache(ctx)
	o.fixAssetAccess()
	o.installConfiguredExtensions(ctx)
	o.applyOverlay()
	o.clearCache(ctx)

	if err := o.configureDomain(ctx); err != nil {
		return err
	}

	fmt.Fprintf(o.out, "[done] forum %s installed\n", o.cfg.Version)
	return nil
}

func (o *Orchestrator) update(ctx context.Context) error {
	fmt.Fprintf(o.out, "--> updating forum to %s\n", o.cfg.Version)

	ref := ImageRef(o.cfg.Version)
	fmt.Fprintf(o.out, "  --> pulling %s...\n", ref)
	if err := o.puller.PullImage(ref, o.out); err != nil {
		return err
	}

	for _, service := range []string{"web", "cron"} {
		if err := o.setImageTag(o.compose.ComposePath(), service, ref); err != nil {
			return err
		}
	}

	if err := o.compose.RecreateContainers(ctx); err != nil {
		return fmt.Errorf("failed to restart stack: %w", err)
	}

	if err := o.waitForStack(ctx); err != nil {
		return err
	}

	o.clearCache(ctx)
	o.applyOverlay()
	o.clearCache(ctx)

	fmt.Fprintf(o.out, "[done] forum updated to %s\n", o.cfg.Version)
	return nil
}

func (o *Orchestrator) waitForStack(ctx context.Context) error {
	if !o.waiter.WaitForHealthy(ctx, docker.DBContainer, dbHealthBudget) {
		return fmt.Errorf("database container never became healthy")
	}
	if !o.waiter.WaitForHealthy(ctx, docker.WebContainer, webHealthBudget) {
		return fmt.Errorf("web container never became healthy")
	}
	return nil
}

func (o *Orchestrator) configureDomain(ctx context.Context) error {
	if o.cfg.Domain == "" {
		return nil
	}

	// the vhost must be fully in place before certbot reads it
	if err := o.vhosts.WriteVhost(ctx, o.cfg.Domain, o.cfg.Port); err != nil {
		return err
	}
	return o.certs.IssueCertificate(ctx, o.cfg.Domain, o.cfg.AdminEmail)
}

func (o *Orchestrator) installConfiguredExtensions(ctx context.Context) {
	if len(o.cfg.Extensions) > 0 {
		report := o.installer.InstallAll(ctx, o.cfg.Extensions)
		if report.Failed > 0 {
			fmt.Fprintf(o.out, "  [warn] %d extension(s) failed to install\n", report.Failed)
		}
	}

	if o.cfg.LanguagePackURL != "" {
		if err := o.installer.InstallLanguagePack(ctx, o.cfg.LanguagePackURL, o.cfg.Locale); err != nil {
			fmt.Fprintf(o.out, "  [warn] language pack install failed: %v\n", err)
		}
	}
}

func (o *Orchestrator) clearCache(ctx context.Context) {
	result, err := o.compose.ContainerExec(ctx, docker.WebContainer, true,
		"php", "flarum", "cache:clear")
	if err != nil || !result.Success {
		fmt.Fprintf(o.out, "  [warn] cache clear failed\n%s\n", result.Output)
	}
}

// fixAssetAccess removes stale .htaccess files that older images left in
// the assets directory; they block the web server from serving published
// assets. Best-effort.
func (o *Orchestrator) fixAssetAccess() {
	assetsDir := filepath.Join(o.stackDir, "assets")
	err := filepath.Walk(assetsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && info.Name() == ".htaccess" {
			if err := os.Remove(path); err != nil {
				return err
			}
			fmt.Fprintf(o.out, "  [info] removed %s\n", path)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(o.out, "  [warn] asset access fix failed: %v\n", err)
	}
}

// applyOverlay copies the bundled visual customization over the assets
// directory. Cosmetic, so failures never abort the run.
func (o *Orchestrator) applyOverlay() {
	if o.cfg.OverlayDir == "" {
		return
	}

	if err := extensions.CopyTree(o.cfg.OverlayDir, filepath.Join(o.stackDir, "assets")); err != nil {
		fmt.Fprintf(o.out, "  [warn] customization overlay failed: %v\n", err)
		return
	}
	fmt.Fprintln(o.out, "  [done] customization overlay applied")
}
