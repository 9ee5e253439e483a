package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/backend-developer-hojiakbar/mebel/internal/docstore"
	"github.com/backend-developer-hojiakbar/mebel/internal/fetch"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
)

var (
	analyzeURL    string
	analyzeFile   string
	analyzeImages []string
	analyzeLang   string
	analyzeJSON   bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "tender listing URL")
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "tender document file (txt, html)")
	analyzeCmd.Flags().StringArrayVar(&analyzeImages, "image", nil, "tender document image (repeatable)")
	analyzeCmd.Flags().StringVar(&analyzeLang, "lang", "uz", "analysis language (uz, ru, en)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "print the full result as JSON")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a tender document",
	Long:  `Runs the full analysis pipeline: extraction, supplier search, summary and scoring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		application, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		req := models.AnalysisRequest{
			Platform:   "cli",
			TenderType: "lot",
			SourceURL:  analyzeURL,
			Language:   analyzeLang,
		}

		if analyzeFile != "" {
			text, err := fetch.Document(analyzeFile)
			if err != nil {
				return err
			}
			req.Content = text
			req.FileName = filepath.Base(analyzeFile)
		}
		for _, imgPath := range analyzeImages {
			img, err := fetch.Image(imgPath)
			if err != nil {
				return err
			}
			req.Images = append(req.Images, img)
		}

		application.pipeline.WithProgress(func(p models.Progress) {
			fmt.Fprintf(os.Stderr, "[%s] %d/%d\n", p.Stage, p.Current, p.Total)
		})

		result, err := application.pipeline.Run(ctx, req)
		if err != nil {
			return err
		}

		if application.store != nil {
			if err := application.store.AppendAnalysis(ctx, result); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to persist analysis: %v\n", err)
			}
		}
		uploadSourceDocument(ctx, application, result, analyzeFile)

		if analyzeJSON {
			return json.NewEncoder(os.Stdout).Encode(result)
		}
		printResult(result)
		return nil
	},
}

// uploadSourceDocument stores the analyzed file in R2 when configured.
func uploadSourceDocument(ctx context.Context, application *app, result *models.AnalysisResult, filePath string) {
	if filePath == "" || application.cfg.R2AccountID == "" {
		return
	}
	docs, err := docstore.NewClient(
		application.cfg.R2AccountID,
		application.cfg.R2AccessKeyID,
		application.cfg.R2SecretAccessKey,
		application.cfg.R2Bucket,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: document storage unavailable: %v\n", err)
		return
	}
	f, err := os.Open(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot reopen document: %v\n", err)
		return
	}
	defer f.Close()
	if _, err := docs.SaveDocument(ctx, result.ID, filepath.Base(filePath), f, "text/plain"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to archive document: %v\n", err)
	}
}

// printResult renders a human-readable result.
func printResult(result *models.AnalysisResult) {
	fmt.Printf("=== Analysis %s ===\n", result.ID)
	fmt.Printf("Source:   %s\n", result.Source)
	fmt.Printf("Deadline: %s\n", result.Deadline)
	fmt.Println()
	fmt.Println(result.Summary)
	fmt.Println()

	for _, p := range result.Products {
		fmt.Printf("%s  (qty %g %s, starting price %s)\n", p.Name, p.Quantity, p.Unit, p.StartingPrice)
		if len(p.Suppliers) == 0 {
			fmt.Println("  no suppliers found")
		}
		for _, s := range p.Suppliers {
			fmt.Printf("  - %-30s %-20s %-13s %s\n", s.CompanyName, s.Price.String(), s.Region, s.Stock)
		}
	}

	if result.Score != nil {
		sc := result.Score
		fmt.Println()
		fmt.Printf("Opportunity: %.0f   Risk: %.0f   Win probability: %.2f%%   Potential: %d\n",
			sc.Opportunity, sc.Risk, sc.WinProbability, sc.PotentialScore)
		if sc.DaysRemaining >= 0 {
			fmt.Printf("Days remaining: %d\n", sc.DaysRemaining)
		} else {
			fmt.Println("Days remaining: unknown")
		}
	}
}
