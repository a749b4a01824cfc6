package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/service"
)

var (
	claimsStatus   string
	claimsCategory string
	claimsOrigin   string
	claimsLimit    int
	claimsOffset   int
	claimsSimilar  string
)

var claimsCmd = &cobra.Command{
	Use:   "claims",
	Short: "List stored claims",
	Long: `Claims lists verified claims from the claim store, newest first.

With --similar the claim index is searched instead (requires qdrant.enabled).`,
	Args: cobra.NoArgs,
	RunE: runClaims,
}

func init() {
	rootCmd.AddCommand(claimsCmd)

	claimsCmd.Flags().StringVar(&claimsStatus, "status", "", "filter by verification status")
	claimsCmd.Flags().StringVar(&claimsCategory, "category", "", "filter by category")
	claimsCmd.Flags().StringVar(&claimsOrigin, "origin-url", "", "filter by origin URL")
	claimsCmd.Flags().IntVar(&claimsLimit, "limit", 20, "maximum number of claims")
	claimsCmd.Flags().IntVar(&claimsOffset, "offset", 0, "number of claims to skip")
	claimsCmd.Flags().StringVar(&claimsSimilar, "similar", "", "search claims similar to this text")
}

func runClaims(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	a, err := loadApp(ctx, "veris-cli")
	if err != nil {
		return err
	}
	defer a.Close()

	filter := domain.ClaimFilter{
		OriginURL: claimsOrigin,
		Limit:     claimsLimit,
		Offset:    claimsOffset,
	}
	if claimsStatus != "" {
		status, ok := domain.ParseStatus(claimsStatus)
		if !ok {
			return fmt.Errorf("unknown status %q", claimsStatus)
		}
		filter.Status = status
	}
	if claimsCategory != "" {
		filter.Category = domain.ParseCategory(claimsCategory)
	}

	if claimsSimilar != "" {
		if a.Index == nil {
			return fmt.Errorf("--similar requires qdrant.enabled")
		}
		results, err := a.Index.Similar(ctx, &service.SimilarQuery{
			Query:    claimsSimilar,
			TopK:     claimsLimit,
			Category: filter.Category,
			Status:   filter.Status,
		})
		if err != nil {
			return err
		}
		return printJSON(results)
	}

	claims, err := a.Claims.List(ctx, filter)
	if err != nil {
		return err
	}
	return printJSON(claims)
}
