package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucsky/cuid"
	"github.com/spf13/cobra"

	"github.com/fora-sh/fora/internal/config"
	"github.com/fora-sh/fora/internal/deploy"
	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/internal/extensions"
	"github.com/fora-sh/fora/internal/nginx"
	"github.com/fora-sh/fora/internal/runtime"
	"github.com/fora-sh/fora/internal/ssl"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Install or update the forum stack",
	Long:  "Converge this host to the configured forum version: fresh installation when nothing is deployed, in-place update when the running version is stale",
	Run:   runDeploy,
}

var (
	deployEnvFile    string
	deployConfigFile string
	deployStackDir   string
)

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringVar(&deployEnvFile, "env-file", ".env", "Environment file with deployment settings")
	deployCmd.Flags().StringVar(&deployConfigFile, "config", "fora.toml", "Optional config file overlaying the environment")
	deployCmd.Flags().StringVar(&deployStackDir, "stack-dir", deploy.DefaultStackDir, "Directory the stack is deployed into")
}

func runDeploy(cmd *cobra.Command, args []string) {
	fmt.Println(titleStyle.Render("==> fora deploy"))
	fmt.Println()

	cfg, err := config.Load(deployEnvFile, deployConfigFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] invalid configuration: %v", err)))
		os.Exit(1)
	}

	ctx := context.Background()
	exec := executor.NewLocal()

	if err := runtime.RequireStackTools(ctx, exec, cfg.Domain != ""); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		fmt.Fprintln(os.Stderr, dimStyle.Render("  run 'fora doctor' for details"))
		os.Exit(1)
	}

	dockerClient, err := docker.NewClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to connect to docker: %v", err)))
		os.Exit(1)
	}
	defer dockerClient.Close()

	out := os.Stdout
	compose := docker.NewComposeManager(exec, dockerClient, deployStackDir, out)
	waiter := docker.NewHealthWaiter(dockerClient, exec, deployStackDir, out)
	inspector := deploy.NewStateInspector(dockerClient, deployStackDir, out)
	installer := extensions.NewInstaller(exec, compose,
		filepath.Join(deployStackDir, "extensions"), cuid.Slug(), out)
	vhosts := nginx.NewVhostWriter(exec, out)
	certs := ssl.NewCertManager(exec, nginx.DefaultAvailableDir, out)

	orch := deploy.NewOrchestrator(cfg, inspector, compose, waiter, dockerClient,
		installer, vhosts, certs, deployStackDir, out)

	if err := orch.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] deployment failed: %v", err)))
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  [done] host is up to date"))
	if cfg.Domain != "" {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  forum is available at https://%s", cfg.Domain)))
	} else {
		fmt.Println(dimStyle.Render(fmt.Sprintf("  forum is available at http://%s:%d", cfg.PublicIP, cfg.Port)))
	}
}
