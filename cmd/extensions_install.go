package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucsky/cuid"
	"github.com/spf13/cobra"

	"github.com/fora-sh/fora/internal/deploy"
	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/internal/extensions"
)

var extensionsInstallCmd = &cobra.Command{
	Use:   "install [spec...]",
	Short: "Install extensions into the running forum",
	Long: `Install one or more extensions. A spec is either a composer reference
like "fof/polls:*" or a zip archive URL. Archive URLs accept query
parameters: ?directory=<name> to name the install directory and
?token=<token> for private repositories.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runExtensionsInstall,
}

var extensionsStackDir string

func init() {
	extensionsCmd.AddCommand(extensionsInstallCmd)

	extensionsInstallCmd.Flags().StringVar(&extensionsStackDir, "stack-dir", deploy.DefaultStackDir, "Directory the stack is deployed into")
}

func runExtensionsInstall(cmd *cobra.Command, args []string) {
	fmt.Println(titleStyle.Render("==> installing extensions"))
	fmt.Println()

	dockerClient, err := docker.NewClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to connect to docker: %v", err)))
		os.Exit(1)
	}
	defer dockerClient.Close()

	webInfo, err := dockerClient.ContainerInfo(docker.WebContainer)
	if err != nil || !webInfo.Running() {
		fmt.Fprintln(os.Stderr, errorStyle.Render("[error] the forum web container is not running"))
		fmt.Fprintln(os.Stderr, dimStyle.Render("  run 'fora deploy' first"))
		os.Exit(1)
	}

	exec := executor.NewLocal()
	out := os.Stdout
	compose := docker.NewComposeManager(exec, dockerClient, extensionsStackDir, out)
	installer := extensions.NewInstaller(exec, compose,
		filepath.Join(extensionsStackDir, "extensions"), cuid.Slug(), out)

	report := installer.InstallAll(context.Background(), args)

	fmt.Println()
	if report.Failed > 0 {
		fmt.Println(errorStyle.Render(fmt.Sprintf("  [error] %d extension(s) failed", report.Failed)))
		for _, failure := range report.Failures {
			fmt.Printf("    %s %s\n", dimStyle.Render("•"), dimStyle.Render(failure))
		}
		os.Exit(1)
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("  [done] %d extension(s) installed", report.Installed)))
}
