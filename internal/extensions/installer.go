package extensions

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/pkg/models"
)

// ContainerExecer runs commands inside the stack's containers; satisfied
// by *docker.ComposeManager.
type ContainerExecer interface {
	ContainerExec(ctx context.Context, name string, allowFailure bool, argv ...string) (models.ProcessResult, error)
}

// Installer installs extensions into the running stack. Each item of a
// batch is processed independently: one failure is logged and counted,
// the rest are still attempted.
type Installer struct {
	exec          executor.Executor
	compose       ContainerExecer
	downloader    *Downloader
	extensionsDir string
	tmpRoot       string
	runID         string
	out           io.Writer
}

func NewInstaller(exec executor.Executor, compose ContainerExecer, extensionsDir, runID string, out io.Writer) *Installer {
	return &Installer{
		exec:          exec,
		compose:       compose,
		downloader:    NewDownloader(),
		extensionsDir: extensionsDir,
		tmpRoot:       os.TempDir(),
		runID:         runID,
		out:           out,
	}
}

// InstallAll processes the extension list and reports aggregate counts.
// The batch never aborts early.
func (i *Installer) InstallAll(ctx context.Context, lines []string) models.InstallReport {
	var report models.InstallReport

	for _, line := range lines {
		spec, err := ResolveSpec(line)
		if err == nil {
			err = i.installOne(ctx, spec)
		}

		if err != nil {
			report.Failed++
			report.Failures = append(report.Failures, fmt.Sprintf("%s: %v", line, err))
			fmt.Fprintf(i.out, "  [warn] extension %s failed: %v\n", line, err)
			continue
		}

		report.Installed++
		fmt.Fprintf(i.out, "  [done] extension %s installed\n", line)
	}

	fmt.Fprintf(i.out, "  --> extensions: %d installed, %d failed\n", report.Installed, report.Failed)
	return report
}

// InstallLanguagePack installs a language pack archive and enables it for
// the locale. Failures are reported but, like all cosmetic steps, callers
// treat them as best-effort.
func (i *Installer) InstallLanguagePack(ctx context.Context, rawURL, locale string) error {
	spec, err := ResolveSpec(rawURL)
	if err != nil {
		return err
	}
	spec.Directory = "lang-" + locale

	if err := i.installOne(ctx, spec); err != nil {
		return err
	}

	i.compose.ContainerExec(ctx, docker.WebContainer, true,
		"php", "flarum", "extension:enable", "flarum-lang-"+locale)
	return nil
}

func (i *Installer) installOne(ctx context.Context, spec models.ExtensionSpec) error {
	i.clearCache(ctx)

	var err error
	if spec.FromRegistry() {
		err = i.installFromRegistry(ctx, spec)
	} else {
		err = i.installFromArchive(ctx, spec)
	}
	if err != nil {
		return err
	}

	i.register(ctx, ExtensionID(spec))
	i.clearCache(ctx)
	return nil
}

func (i *Installer) installFromRegistry(ctx context.Context, spec models.ExtensionSpec) error {
	fmt.Fprintf(i.out, "  --> requiring %s...\n", spec.Registry)
	result, err := i.compose.ContainerExec(ctx, docker.WebContainer, false,
		"composer", "require", spec.Registry)
	if err != nil {
		return fmt.Errorf("composer require failed:\n%s", result.Output)
	}
	return nil
}

func (i *Installer) installFromArchive(ctx context.Context, spec models.ExtensionSpec) error {
	// deterministic temp path so a crashed prior attempt gets cleaned up
	// on retry instead of leaking
	tmpDir := filepath.Join(i.tmpRoot, "fora-ext-"+spec.Directory)
	if err := os.RemoveAll(tmpDir); err != nil {
		return fmt.Errorf("failed to clean leftover temp dir: %w", err)
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	archivePath := filepath.Join(tmpDir, "extension.zip")
	fmt.Fprintf(i.out, "  --> downloading %s...\n", spec.URL)
	if err := i.downloader.Download(ctx, spec.URL, spec.Token, archivePath); err != nil {
		return err
	}

	if err := ValidateArchive(archivePath); err != nil {
		os.Remove(archivePath)
		return err
	}

	unpackDir := filepath.Join(tmpDir, "unpacked")
	if err := ExtractArchive(archivePath, unpackDir); err != nil {
		return err
	}

	srcDir := unpackDir
	if spec.Wrapped {
		var err error
		if srcDir, err = ContentRoot(unpackDir); err != nil {
			return err
		}
	}

	target := filepath.Join(i.extensionsDir, spec.Directory)
	if _, err := os.Stat(target); err == nil {
		// upgrade in place, last write wins
		if err := os.RemoveAll(target); err != nil {
			return fmt.Errorf("failed to remove previous version: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create extensions dir: %w", err)
	}

	if err := os.Rename(srcDir, target); err != nil {
		if err := CopyTree(srcDir, target); err != nil {
			return fmt.Errorf("failed to install extension files: %w", err)
		}
	}

	// ownership fix is best-effort; the container may remap users anyway
	i.exec.Run(ctx, executor.Command{
		Name:         "chown",
		Args:         []string{"-R", "www-data:www-data", target},
		AllowFailure: true,
	})

	return nil
}

// register tells the application about the new extension. The files are
// already on disk, so neither the registration nor the lighter fallback
// aborts the item on failure; a later cache clear may still pick it up.
func (i *Installer) register(ctx context.Context, id string) {
	result, err := i.compose.ContainerExec(ctx, docker.WebContainer, true,
		"php", "flarum", "extension:enable", id)
	if err == nil && result.Success {
		return
	}
	fmt.Fprintf(i.out, "  [warn] failed to enable %s, trying asset publish\n%s\n", id, result.Output)

	result, err = i.compose.ContainerExec(ctx, docker.WebContainer, true,
		"php", "flarum", "assets:publish")
	if err != nil || !result.Success {
		fmt.Fprintf(i.out, "  [warn] asset publish failed for %s\n%s\n", id, result.Output)
	}
}

func (i *Installer) clearCache(ctx context.Context) {
	result, err := i.compose.ContainerExec(ctx, docker.WebContainer, true,
		"php", "flarum", "cache:clear")
	if err != nil || !result.Success {
		fmt.Fprintf(i.out, "  [warn] cache clear failed\n%s\n", result.Output)
	}
}
