package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/prn-tf/timebucket/internal/service"
)

func init() {
	sessionsCmd := &cobra.Command{Use: "session", Short: "Session operations"}

	// issue
	var email string
	var ttl time.Duration
	issueCmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue a session token for a user",
		Long:  "Issue a session token for a user. The token is printed once and stored only as a keyed hash.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(30*time.Second, func(ctx context.Context, a *app) error {
				user, err := a.userByEmail(ctx, email)
				if err != nil {
					return err
				}
				issued, err := a.sessions.Issue(ctx, service.IssueSessionInput{
					UserID:    user.ID,
					UserAgent: "timebucket-admin",
					TTL:       ttl,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"token":      issued.Token,
					"user_id":    user.ID,
					"expires_at": issued.Session.ExpiresAt,
				})
			})
		},
	}
	issueCmd.Flags().StringVarP(&email, "email", "e", "", "User email (required)")
	issueCmd.Flags().DurationVar(&ttl, "ttl", 0, "Session lifetime (defaults to auth.session_ttl)")
	_ = issueCmd.MarkFlagRequired("email")
	sessionsCmd.AddCommand(issueCmd)

	// purge
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(5*time.Minute, func(ctx context.Context, a *app) error {
				n, err := a.sessions.PurgeExpired(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired sessions\n", n)
				return nil
			})
		},
	}
	sessionsCmd.AddCommand(purgeCmd)

	rootCmd.AddCommand(sessionsCmd)
}
