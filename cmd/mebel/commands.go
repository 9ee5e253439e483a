package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/backend-developer-hojiakbar/mebel/internal/bid"
	"github.com/backend-developer-hojiakbar/mebel/internal/fetch"
	"github.com/backend-developer-hojiakbar/mebel/internal/httpapi"
	"github.com/backend-developer-hojiakbar/mebel/internal/models"
	"github.com/google/uuid"
)

var researchLang string

func init() {
	researchCmd.Flags().StringVar(&researchLang, "lang", "uz", "analysis language")
}

var researchCmd = &cobra.Command{
	Use:   "research [analysis-id] [product-id]",
	Short: "Re-run supplier research for one product",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		application, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		st, err := application.requireStore()
		if err != nil {
			return err
		}

		result, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return err
		}

		if err := application.pipeline.ReResearch(ctx, result, args[1], researchLang); err != nil {
			return err
		}

		if err := st.UpdateAnalysis(ctx, result); err != nil {
			return err
		}

		printResult(result)
		return nil
	},
}

var (
	bidLogistics  float64
	bidGuarantee  float64
	bidCommission float64
	bidFixed      float64
	bidMargin     float64
	bidSuppliers  []string
	bidLang       string
)

func init() {
	bidCmd.Flags().Float64Var(&bidLogistics, "logistics", 0, "logistics cost, UZS")
	bidCmd.Flags().Float64Var(&bidGuarantee, "guarantee", 0, "bank guarantee cost, UZS")
	bidCmd.Flags().Float64Var(&bidCommission, "commission", 0, "commission cost, UZS")
	bidCmd.Flags().Float64Var(&bidFixed, "fixed", 0, "fixed costs, UZS")
	bidCmd.Flags().Float64Var(&bidMargin, "margin", 10, "profit margin, percent")
	bidCmd.Flags().StringArrayVar(&bidSuppliers, "supplier", nil, "chosen supplier as productID=supplierID (repeatable)")
	bidCmd.Flags().StringVar(&bidLang, "lang", "uz", "narrative language")
}

var bidCmd = &cobra.Command{
	Use:   "bid [analysis-id]",
	Short: "Produce a bid recommendation for a stored analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		application, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		st, err := application.requireStore()
		if err != nil {
			return err
		}

		result, err := st.GetAnalysis(ctx, args[0])
		if err != nil {
			return err
		}

		selection := bid.Selection{}
		for _, pair := range bidSuppliers {
			productID, supplierID, ok := strings.Cut(pair, "=")
			if !ok || productID == "" || supplierID == "" {
				return fmt.Errorf("invalid --supplier value %q, expected productID=supplierID", pair)
			}
			selection[productID] = supplierID
		}

		costs := models.AdditionalCosts{
			Logistics:           bidLogistics,
			BankGuarantee:       bidGuarantee,
			Commission:          bidCommission,
			FixedCosts:          bidFixed,
			ProfitMarginPercent: bidMargin,
		}

		rec, err := application.bidEngine.Recommend(ctx, result, selection, costs, bidLang)
		if err != nil {
			return err
		}

		return json.NewEncoder(os.Stdout).Encode(rec)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		application, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		st, err := application.requireStore()
		if err != nil {
			return err
		}

		results, err := st.ListAnalyses(ctx, 50)
		if err != nil {
			return err
		}

		for _, r := range results {
			score := "-"
			if r.Score != nil {
				score = fmt.Sprintf("%d", r.Score.PotentialScore)
			}
			fmt.Printf("%s  %s  products=%d  potential=%s  %s\n",
				r.ID, r.CreatedAt.Format(time.RFC3339), len(r.Products), score, r.Source)
		}
		return nil
	},
}

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Knowledge-base contract operations",
}

func init() {
	contractsCmd.AddCommand(contractsAddCmd)
	contractsCmd.AddCommand(contractsListCmd)
}

var contractsAddCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Analyze a historical contract and add it to the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		application, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		st, err := application.requireStore()
		if err != nil {
			return err
		}

		text, err := fetch.Document(args[0])
		if err != nil {
			return err
		}

		contract := &models.Contract{
			ID:       uuid.NewString(),
			FileName: args[0],
			RawText:  text,
			Status:   models.ContractPending,
		}

		if err := application.analyzer.Analyze(ctx, contract); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}

		if err := st.SaveContract(ctx, contract); err != nil {
			return err
		}

		fmt.Printf("%s  %s  %s\n", contract.ID, contract.Status, contract.FileName)
		return nil
	},
}

var contractsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List knowledge-base contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		application, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		st, err := application.requireStore()
		if err != nil {
			return err
		}

		contracts, err := st.ListContracts(ctx)
		if err != nil {
			return err
		}
		for _, c := range contracts {
			fmt.Printf("%s  %-8s  %s\n", c.ID, c.Status, c.FileName)
		}
		return nil
	},
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides LISTEN_ADDR)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		application, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer application.close()

		addr := application.cfg.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}

		handlers := httpapi.New(application.pipeline, application.store, application.bidEngine, application.analyzer)
		router := httpapi.NewRouter(handlers)

		fmt.Printf("listening on %s\n", addr)
		return http.ListenAndServe(addr, router)
	},
}
