package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/fora-sh/fora/internal/deploy"
	"github.com/fora-sh/fora/internal/docker"
	"github.com/fora-sh/fora/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show forum stack status",
	Long:  "Display the state and health of every stack container on this host",
	Run:   runStatus,
}

var statusStackDir string

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusStackDir, "stack-dir", deploy.DefaultStackDir, "Directory the stack is deployed into")
}

func runStatus(cmd *cobra.Command, args []string) {
	dockerClient, err := docker.NewClient()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] failed to connect to docker: %v", err)))
		os.Exit(1)
	}
	defer dockerClient.Close()

	fmt.Println(titleStyle.Render("==> forum status"))
	fmt.Println()

	inspector := deploy.NewStateInspector(dockerClient, statusStackDir, os.Stdout)
	if !inspector.IsInstalled() {
		fmt.Println(dimStyle.Render("  no forum installation found"))
		fmt.Println(dimStyle.Render("  run 'fora deploy' to install one"))
		fmt.Println()
		return
	}

	fmt.Println(labelStyle.Render("  containers:"))
	for _, name := range docker.StackContainers() {
		info, err := dockerClient.ContainerInfo(name)
		if err != nil {
			fmt.Printf("    %s %s - %s\n", dimStyle.Render("•"), valueStyle.Render(name), errorStyle.Render("unknown"))
			continue
		}
		fmt.Printf("    %s %s - %s%s\n", dimStyle.Render("•"), valueStyle.Render(name),
			renderStatus(info), renderHealth(info))
	}
	fmt.Println()

	webInfo, err := dockerClient.ContainerInfo(docker.WebContainer)
	if err == nil && webInfo.Image != "" {
		fmt.Println(labelStyle.Render("  deployment:"))
		fmt.Printf("    %s %s\n", dimStyle.Render("image:"), valueStyle.Render(webInfo.Image))

		if port, err := dockerClient.PublishedPort(docker.WebContainer, 8888); err == nil && port != "" {
			fmt.Printf("    %s %s\n", dimStyle.Render("published port:"), valueStyle.Render(port))
		}
		fmt.Println()
	}
}

func renderStatus(info models.ContainerInfo) string {
	color := "240"
	if info.Status == models.ContainerStatusRunning {
		color = "10"
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(string(info.Status))
}

func renderHealth(info models.ContainerInfo) string {
	switch info.Health {
	case models.HealthAbsent:
		return ""
	case models.HealthHealthy:
		return " " + successStyle.Render("(healthy)")
	case models.HealthStarting:
		return " " + dimStyle.Render("(starting)")
	default:
		return " " + errorStyle.Render("(" + string(info.Health) + ")")
	}
}
