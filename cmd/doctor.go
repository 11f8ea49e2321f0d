package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/internal/runtime"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check host dependencies",
	Long:  "Verify that the host has everything a deployment needs: docker with the compose plugin, nginx and certbot for domain setups",
	Run:   runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) {
	fmt.Println(titleStyle.Render("==> checking host dependencies"))
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	allGood := true

	fmt.Println(labelStyle.Render("  host tools"))
	for _, status := range runtime.ProbeHost(ctx, executor.NewLocal()) {
		if status.Available {
			fmt.Printf("    %s %s\n", successStyle.Render("[ok]"), valueStyle.Render(status.Name))
			fmt.Printf("      %s %s\n", dimStyle.Render("version:"), dimStyle.Render(status.Version))
		} else {
			fmt.Printf("    %s %s\n", errorStyle.Render("[missing]"), valueStyle.Render(status.Name))
			fmt.Printf("      %s\n", dimStyle.Render(status.Detail))
			allGood = false
		}
	}
	fmt.Println()

	allGood = checkDaemon() && allGood

	fmt.Println()
	if allGood {
		fmt.Println(successStyle.Render("  [done] all checks passed"))
		fmt.Println()
		fmt.Println(dimStyle.Render("  this host is ready for 'fora deploy'"))
	} else {
		fmt.Println(errorStyle.Render("  [error] some checks failed"))
		fmt.Println()
		fmt.Println(dimStyle.Render("  fix the issues above before deploying"))
		os.Exit(1)
	}
}

func checkDaemon() bool {
	fmt.Println(labelStyle.Render("  docker daemon"))

	dockerClient, err := docker.NewClient()
	if err != nil {
		fmt.Printf("    %s daemon not responding\n", errorStyle.Render("[missing]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return false
	}
	defer dockerClient.Close()

	info, err := dockerClient.ContainerInfo(docker.WebContainer)
	if err != nil {
		fmt.Printf("    %s daemon not responding\n", errorStyle.Render("[missing]"))
		fmt.Printf("      %s\n", dimStyle.Render(err.Error()))
		return false
	}

	fmt.Printf("    %s daemon responding\n", successStyle.Render("[ok]"))
	fmt.Printf("      %s %s\n", dimStyle.Render("forum web container:"), dimStyle.Render(string(info.Status)))

	return true
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
