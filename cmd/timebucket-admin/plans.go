package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/prn-tf/timebucket/internal/domain"
	"github.com/prn-tf/timebucket/internal/service"
)

func init() {
	templateCmd := &cobra.Command{Use: "template", Short: "Plan template operations"}

	// generate
	var email, granularity string
	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the age-range template for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(30*time.Second, func(ctx context.Context, a *app) error {
				user, err := a.userByEmail(ctx, email)
				if err != nil {
					return err
				}
				out, err := a.timeBuckets.GenerateTemplate(ctx, user.ID, domain.Granularity(granularity))
				if err != nil {
					return describe(err)
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"created": out.Created,
					"count":   len(out.Buckets),
					"buckets": out.Buckets,
				})
			})
		},
	}
	generateCmd.Flags().StringVarP(&email, "email", "e", "", "User email (required)")
	generateCmd.Flags().StringVarP(&granularity, "granularity", "g", string(domain.Granularity10Years), "Template granularity: 5y, 10y or 20y")
	_ = generateCmd.MarkFlagRequired("email")
	templateCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(templateCmd)

	// export
	var exportEmail string
	var dryRun bool
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export a user's plan snapshot to object storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(2*time.Minute, func(ctx context.Context, a *app) error {
				user, err := a.userByEmail(ctx, exportEmail)
				if err != nil {
					return err
				}
				if dryRun {
					snapshot, err := a.exports.Build(ctx, user.ID)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), snapshot)
				}

				result, err := a.exports.Export(ctx, user.ID)
				if errors.Is(err, service.ErrExportDisabled) {
					return errors.New("export is disabled; set export.enabled or use --dry-run")
				}
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"key":      result.Key,
					"location": result.Location,
					"size":     result.Size,
				})
			})
		},
	}
	exportCmd.Flags().StringVarP(&exportEmail, "email", "e", "", "User email (required)")
	exportCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the snapshot instead of uploading it")
	_ = exportCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(exportCmd)
}
