package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/repository"
	"github.com/prn-tf/timebucket/internal/service"
)

func init() {
	usersCmd := &cobra.Command{Use: "user", Short: "User operations"}

	// create
	var email, birthdate, tz string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.CreateUserInput{
				Email:    email,
				Timezone: tz,
				Provider: "admin",
				UID:      strings.ToLower(strings.TrimSpace(email)),
			}
			if birthdate != "" {
				b, err := domain.ParseDate(birthdate)
				if err != nil {
					return fmt.Errorf("--birthdate: %w", err)
				}
				input.Birthdate = &b
			}

			return withApp(30*time.Second, func(ctx context.Context, a *app) error {
				user, err := a.users.Create(ctx, input)
				if err != nil {
					return describe(err)
				}
				profile, err := a.users.GetProfile(ctx, user.ID)
				if err != nil {
					return err
				}
				return printProfile(cmd.OutOrStdout(), profile)
			})
		},
	}
	createCmd.Flags().StringVarP(&email, "email", "e", "", "User email (required)")
	createCmd.Flags().StringVarP(&birthdate, "birthdate", "b", "", "Birthdate as YYYY-MM-DD")
	createCmd.Flags().StringVarP(&tz, "timezone", "t", "", "IANA time zone (defaults to "+domain.DefaultTimezone+")")
	_ = createCmd.MarkFlagRequired("email")
	usersCmd.AddCommand(createCmd)

	// show
	var showEmail string
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show a user's profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(30*time.Second, func(ctx context.Context, a *app) error {
				user, err := a.userByEmail(ctx, showEmail)
				if err != nil {
					return err
				}
				profile, err := a.users.GetProfile(ctx, user.ID)
				if err != nil {
					return err
				}
				return printProfile(cmd.OutOrStdout(), profile)
			})
		},
	}
	showCmd.Flags().StringVarP(&showEmail, "email", "e", "", "User email (required)")
	_ = showCmd.MarkFlagRequired("email")
	usersCmd.AddCommand(showCmd)

	// list
	var limit, offset int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(30*time.Second, func(ctx context.Context, a *app) error {
				page, err := a.users.List(ctx, repository.ListOptions{Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"users":  page.Items,
					"total":  page.Total,
					"limit":  page.Limit,
					"offset": page.Offset,
				})
			})
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "l", 100, "Maximum users to return")
	listCmd.Flags().IntVarP(&offset, "offset", "o", 0, "Users to skip")
	usersCmd.AddCommand(listCmd)

	rootCmd.AddCommand(usersCmd)
}

func printProfile(w io.Writer, p *service.Profile) error {
	return printJSON(w, map[string]any{
		"user":        p.User,
		"birth_year":  p.BirthYear,
		"current_age": p.CurrentAge,
	})
}
