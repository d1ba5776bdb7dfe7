package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aria/internal/config"
	"aria/internal/service"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "caller the token is issued to (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime; 0 issues a token without expiry")
	_ = tokenCmd.MarkFlagRequired("subject")
}

// tokenCmd issues API service tokens
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a service token for the extraction API",
	Long: `Issue a bearer token signed with ARIA_AUTH_SECRET.

Examples:
  aria-extract token --subject booking-bot --ttl 720h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		token, err := service.NewTokenService(cfg.Auth).Issue(tokenSubject, tokenTTL)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
		return err
	},
}
