package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timmy/veris/internal/service"
)

var (
	checkText   string
	checkFile   string
	checkURL    string
	checkPage   string
	checkKind   string
	checkOrigin string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one submission through the pipeline and print the result",
	Long: `Check submits exactly one of --text, --file, --url or --page.

--page fetches the article text of a web page and checks it as text.
The PipelineResult is printed as JSON.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkText, "text", "", "raw text to check")
	checkCmd.Flags().StringVar(&checkFile, "file", "", "image or video file to upload and check")
	checkCmd.Flags().StringVar(&checkURL, "url", "", "image or video URL to check")
	checkCmd.Flags().StringVar(&checkPage, "page", "", "web page whose article text is checked")
	checkCmd.Flags().StringVar(&checkKind, "kind", "", "content kind override: text, image or video")
	checkCmd.Flags().StringVar(&checkOrigin, "origin", "", "origin label recorded with the claims")
	checkCmd.MarkFlagsMutuallyExclusive("text", "file", "url", "page")
	checkCmd.MarkFlagsOneRequired("text", "file", "url", "page")
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := loadApp(ctx, "veris-cli")
	if err != nil {
		return err
	}
	defer a.Close()

	in := &service.SubmissionInput{
		OriginLabel: checkOrigin,
		Kind:        checkKind,
		Text:        checkText,
		URL:         checkURL,
	}

	switch {
	case checkFile != "":
		data, err := os.ReadFile(checkFile)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		in.Media = &service.MediaUpload{Name: filepath.Base(checkFile), Data: data}
	case checkPage != "":
		article, err := a.Fetcher.Fetch(ctx, checkPage)
		if err != nil {
			return fmt.Errorf("failed to fetch page: %w", err)
		}
		in.Kind = "text"
		in.Text = article.SubmissionText()
		in.OriginURL = checkPage
	}

	result, err := a.Coordinator.Process(ctx, in)
	if err != nil {
		return err
	}
	return printJSON(result)
}
