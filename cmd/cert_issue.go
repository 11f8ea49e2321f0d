package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fora-sh/fora/internal/executor"
	"github.com/fora-sh/fora/internal/nginx"
	"github.com/fora-sh/fora/internal/runtime"
	"github.com/fora-sh/fora/internal/ssl"
)

var certIssueCmd = &cobra.Command{
	Use:   "issue [domain]",
	Short: "Issue a TLS certificate for a domain",
	Long:  "Write the nginx vhost for the domain and obtain a certificate through certbot. Safe to re-run; an already issued certificate is kept.",
	Args:  cobra.ExactArgs(1),
	Run:   runCertIssue,
}

var (
	certEmail string
	certPort  int
)

func init() {
	certCmd.AddCommand(certIssueCmd)

	certIssueCmd.Flags().StringVar(&certEmail, "email", "", "Contact email for certificate registration (required)")
	certIssueCmd.Flags().IntVar(&certPort, "port", 8080, "Host port the forum listens on")
	certIssueCmd.MarkFlagRequired("email")
}

func runCertIssue(cmd *cobra.Command, args []string) {
	domain := args[0]

	fmt.Println(titleStyle.Render(fmt.Sprintf("==> issuing certificate for %s", domain)))
	fmt.Println()

	ctx := context.Background()
	exec := executor.NewLocal()

	if err := runtime.RequireStackTools(ctx, exec, true); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
		os.Exit(1)
	}

	out := os.Stdout
	vhosts := nginx.NewVhostWriter(exec, out)
	if err := vhosts.WriteVhost(ctx, domain, certPort); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] vhost setup failed: %v", err)))
		os.Exit(1)
	}

	certs := ssl.NewCertManager(exec, nginx.DefaultAvailableDir, out)
	if err := certs.IssueCertificate(ctx, domain, certEmail); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] certificate setup failed: %v", err)))
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("  [done] certificate in place"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("  https://%s now serves the forum", domain)))
}
