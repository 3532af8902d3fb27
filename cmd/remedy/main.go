package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"remedy/internal/api"
	"remedy/internal/catalog"
	"remedy/internal/config"
	"remedy/internal/errors"
	"remedy/internal/evidence"
	"remedy/internal/logging"
	"remedy/internal/recommend"
	"remedy/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:           "remedy",
		Short:         "Evidence-based product category recommender",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("db") || cfg.Database.Path == "" {
				cfg.Database.Path = dbPath
			}
			return logging.Initialize(cfg.Log.JSON, cfg.Log.Level)
		},
	}
	dbPath     string
	configPath string
	cfg        *config.Config
)

func main() {
	defer logging.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "remedy.db", "Path to the rules and catalog database (SQLite)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")

	recommendCmd.Flags().Bool("trace", false, "Print the mass functions and item scores")
	recommendCmd.Flags().Bool("json", false, "Print the recommendation as JSON")

	rulesAddCmd.Flags().String("observation", "", "Observation code")
	rulesAddCmd.Flags().StringSlice("categories", nil, "Category codes")
	rulesAddCmd.Flags().Float64("confidence", 0, "Confidence in [0,1]")
	_ = rulesAddCmd.MarkFlagRequired("observation")
	_ = rulesAddCmd.MarkFlagRequired("categories")
	_ = rulesAddCmd.MarkFlagRequired("confidence")

	rulesCmd.AddCommand(rulesAddCmd, rulesDeleteCmd)
	rootCmd.AddCommand(importCmd, rulesCmd, recommendCmd, serveCmd)
}

// initStore opens the configured SQLite store.
func initStore() (*storage.SQLiteStore, error) {
	return storage.NewSQLiteStore(cfg.Database.Path)
}

var importCmd = &cobra.Command{
	Use:   "import <catalog.yaml>",
	Short: "Validate a YAML catalog and load it into the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.Load(args[0])
		if err != nil {
			return err
		}

		store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ImportCatalog(cmd.Context(), c); err != nil {
			return errors.Wrap(err, "import failed")
		}
		logging.Logger.Infow("Catalog imported",
			"observations", len(c.Observations),
			"categories", len(c.Categories),
			"items", len(c.Items),
			"rules", len(c.Rules))
		fmt.Printf("✅ Imported %d observations, %d categories, %d items and %d rules into %s\n",
			len(c.Observations), len(c.Categories), len(c.Items), len(c.Rules), cfg.Database.Path)
		return nil
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the stored rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		rules, err := store.ListRules(cmd.Context())
		if err != nil {
			return err
		}
		if len(rules) == 0 {
			fmt.Println("No rules stored.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tOBSERVATION\tCATEGORIES\tCONFIDENCE")
		for _, r := range rules {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\n", r.ID, r.Observation, strings.Join(r.Categories, ","), r.Confidence)
		}
		return tw.Flush()
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a rule mapping an observation to categories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		obs, _ := cmd.Flags().GetString("observation")
		cats, _ := cmd.Flags().GetStringSlice("categories")
		conf, _ := cmd.Flags().GetFloat64("confidence")

		store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		known, err := knownCodes(cmd.Context(), store)
		if err != nil {
			return err
		}

		r := &catalog.Rule{
			Observation: catalog.CanonicalCode(obs),
			Categories:  catalog.CanonicalCodes(cats),
			Confidence:  conf,
		}
		if err := catalog.ValidateRule(*r, known.observations, known.categories); err != nil {
			return err
		}
		if err := store.SaveRule(cmd.Context(), r); err != nil {
			return err
		}
		fmt.Printf("✅ Rule %d: %s → %s (%.2f)\n", r.ID, r.Observation, strings.Join(r.Categories, ","), r.Confidence)
		return nil
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule by ID",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return errors.WithHint(errors.Newf("invalid rule id %q", args[0]), "run `remedy rules` to list rule IDs")
		}

		store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteRule(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("🗑️  Rule %d deleted\n", id)
		return nil
	},
}

type codeSets struct {
	observations map[string]bool
	categories   map[string]bool
}

func knownCodes(ctx context.Context, store storage.CatalogStore) (codeSets, error) {
	obs, err := store.ListObservations(ctx)
	if err != nil {
		return codeSets{}, err
	}
	cats, err := store.ListCategories(ctx)
	if err != nil {
		return codeSets{}, err
	}
	sets := codeSets{observations: map[string]bool{}, categories: map[string]bool{}}
	for _, o := range obs {
		sets.observations[o.Code] = true
	}
	for _, c := range cats {
		sets.categories[c.Code] = true
	}
	return sets, nil
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <observation>...",
	Short: "Recommend a category and its items for the given observations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withTrace, _ := cmd.Flags().GetBool("trace")
		asJSON, _ := cmd.Flags().GetBool("json")

		store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		svc := recommend.NewService(store, evidence.NewEngine(cfg.EngineOptions()), logging.Named("recommend"))
		rec, err := svc.Recommend(cmd.Context(), args, withTrace)
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		}
		printRecommendation(rec)
		return nil
	},
}

func printRecommendation(rec *recommend.Recommendation) {
	names := make([]string, len(rec.Observations))
	for i, o := range rec.Observations {
		names[i] = o.Name
	}
	fmt.Printf("🩺 Observations: %s\n", strings.Join(names, ", "))

	if t := rec.Trace; t != nil {
		fmt.Println("🔍 Trace")
		for _, o := range t.Observations {
			if o.NoRule {
				fmt.Printf("  %s: no rule\n", o.Code)
				continue
			}
			fmt.Printf("  %s → %s (%.2f): %s\n", o.Code, o.Label, o.Confidence, o.Mass)
		}
		for i, s := range t.Steps {
			if s.Result != nil {
				fmt.Printf("  step %d: K=%.4f → %s\n", i+1, s.Conflict, s.Result)
			} else {
				fmt.Printf("  step %d: K=%.4f → total conflict\n", i+1, s.Conflict)
			}
		}
		if t.Final != nil {
			fmt.Printf("  final: %s\n", t.Final)
		}
		for _, sc := range t.Scores {
			fmt.Printf("  score %s = %.4f\n", sc.Code, sc.Value)
		}
	}

	if rec.Outcome != evidence.Chosen {
		fmt.Printf("❌ %s\n", rec.Message)
		return
	}
	fmt.Printf("✅ Category: %s\n", strings.Join(rec.Categories, ", "))
	if rec.Message != "" {
		fmt.Printf("⚠️  %s\n", rec.Message)
	}
	for _, it := range rec.Items {
		fmt.Printf("  • %s [%s] %s\n", it.Name, it.Category, it.Dosage)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the recommendation HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := initStore()
		if err != nil {
			return err
		}
		defer store.Close()

		logger := logging.Named("api")
		svc := recommend.NewService(store, evidence.NewEngine(cfg.EngineOptions()), logging.Named("recommend"))
		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.NewHandler(svc, store, logger).Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			logger.Infow("Listening", "addr", srv.Addr, "db", cfg.Database.Path)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return errors.Wrap(err, "server failed")
			}
			return nil
		case <-ctx.Done():
		}

		logger.Infow("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
