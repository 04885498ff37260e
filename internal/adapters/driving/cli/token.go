package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var (
	tokenSubject string
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an API token",
	Long: `Signs a bearer token with the configured JWT secret. Ingester tokens may
trigger ingestion through POST /api/v1/ingest.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for http.admin_password_hash",
	Args:  cobra.ExactArgs(1),
	RunE:  runHashPassword,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "cli", "token subject")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(domain.RoleReader), "token role (reader or ingester)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime, 0 uses http.token_ttl")
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	resp, err := svc.Auth().Mint(tokenSubject, domain.Role(tokenRole), tokenTTL)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), resp.Token)
	return err
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	if args[0] == "" {
		return errors.New("password must not be empty")
	}
	hash, err := svc.PasswordHasher().HashPassword(args[0])
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}
