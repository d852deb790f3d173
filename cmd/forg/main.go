package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"forg/internal/app"
	"forg/internal/config"
	"forg/internal/model"
	"forg/internal/organizer"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates an App. The caller must defer a.Close().
// command identifies the CLI command being run (e.g. "organize", "duplicates").
func newApp(command string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg, command)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// readPassphrase prompts on stderr and reads a passphrase without echo.
func readPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	passphrase, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(passphrase), nil
}

var rootCmd = &cobra.Command{
	Use:   "forg",
	Short: "File organizer with duplicate detection",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		hostID := uuid.New().String()
		cfg := config.NewConfig(hostID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Host ID: %s\n", hostID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Host ID:    %s\n", cfg.HostID)
		fmt.Printf("Base Dir:   %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Audit:      %s\n", cfg.Audit.Type)
		fmt.Printf("Embedding:  %s\n", cfg.Embedding.Type)
		fmt.Printf("Archive:    %s\n", cfg.Archive.Type)
		fmt.Printf("Encryption: %s\n", cfg.Encryption.Type)
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage archive encryption keys",
}

var configKeysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the archive encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("config keys init")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase for private key: ")
		if err != nil {
			return err
		}
		confirm, err := readPassphrase("Confirm passphrase: ")
		if err != nil {
			return err
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		if err := a.SetupEncryption(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}
		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// organize command
var organizeCmd = &cobra.Command{
	Use:   "organize SOURCE DEST",
	Short: "Classify files and move them into category directories",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("organize")
		if err != nil {
			return err
		}
		defer a.Close()

		// Config supplies the defaults; explicit flags override.
		opts := a.OrganizeOptions()
		if cmd.Flags().Changed("recursive") {
			opts.Recursive, _ = cmd.Flags().GetBool("recursive")
		}
		if cmd.Flags().Changed("no-duplicates") {
			noDuplicates, _ := cmd.Flags().GetBool("no-duplicates")
			opts.DetectDuplicates = !noDuplicates
		}
		if cmd.Flags().Changed("threshold") {
			opts.SimilarityThreshold, _ = cmd.Flags().GetFloat64("threshold")
		}
		if cmd.Flags().Changed("strategy") {
			strategy, _ := cmd.Flags().GetString("strategy")
			opts.Strategy = organizer.RetentionStrategy(strategy)
		}

		result, err := a.Organize(cmd.Context(), args[0], args[1], opts)
		if err != nil {
			return fmt.Errorf("organize failed: %w", err)
		}

		fmt.Printf("Organized %d of %d file(s) into %s\n", result.OrganizedFiles, result.TotalFiles, result.DestDir)
		if result.DuplicatesFound > 0 {
			fmt.Printf("Duplicates: %d found, %d removed\n", result.DuplicatesFound, result.DuplicatesRemoved)
		}
		if result.Errors > 0 {
			fmt.Printf("Errors: %d file(s) skipped\n", result.Errors)
		}
		return nil
	},
}

// classify command
var classifyCmd = &cobra.Command{
	Use:   "classify PATH",
	Short: "Classify a single file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("classify")
		if err != nil {
			return err
		}
		defer a.Close()

		cls, err := a.Classify(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s\t%s\t%.2f\t%s\n", cls.Path, cls.Category, cls.Confidence, cls.Method)
		return nil
	},
}

// duplicates command
var duplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "Find, analyze, and remove duplicate files",
}

var duplicatesFindCmd = &cobra.Command{
	Use:   "find DIR",
	Short: "List groups of byte-identical files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")

		a, err := newApp("duplicates find")
		if err != nil {
			return err
		}
		defer a.Close()

		groups, err := a.FindDuplicates(args[0], recursive)
		if err != nil {
			return err
		}

		if len(groups) == 0 {
			fmt.Println("No duplicates found.")
			return nil
		}

		for i, g := range groups {
			fmt.Printf("Group %d (%s):\n", i+1, g.Hash[:12])
			for _, m := range g.Members {
				fmt.Printf("  %s\t%d bytes\n", m.Path, m.Size)
			}
		}
		return nil
	},
}

var duplicatesSimilarCmd = &cobra.Command{
	Use:   "similar DIR",
	Short: "List pairs of near-duplicate files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		threshold, _ := cmd.Flags().GetFloat64("threshold")

		a, err := newApp("duplicates similar")
		if err != nil {
			return err
		}
		defer a.Close()

		pairs, _, err := a.FindSimilar(cmd.Context(), args[0], threshold, recursive)
		if err != nil {
			return err
		}

		if len(pairs) == 0 {
			fmt.Println("No similar files found.")
			return nil
		}

		rows := make([][]string, 0, len(pairs))
		for _, p := range pairs {
			rows = append(rows, []string{p.PathA, p.PathB, fmt.Sprintf("%.3f", p.Score)})
		}
		fmt.Println(renderTable(
			[]string{"File A", "File B", "Score"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight},
		))
		return nil
	},
}

var duplicatesRemoveCmd = &cobra.Command{
	Use:   "remove DIR",
	Short: "Remove duplicates, keeping one file per group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")
		strategy, _ := cmd.Flags().GetString("strategy")

		a, err := newApp("duplicates remove")
		if err != nil {
			return err
		}
		defer a.Close()

		removed, err := a.RemoveDuplicates(args[0], recursive, organizer.RetentionStrategy(strategy))
		if err != nil {
			return err
		}

		for _, p := range removed {
			fmt.Printf("removed %s\n", p)
		}
		fmt.Printf("Removed %d file(s)\n", len(removed))
		return nil
	},
}

var duplicatesAnalyzeCmd = &cobra.Command{
	Use:   "analyze DIR",
	Short: "Summarize duplicate groups and reclaimable space",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")

		a, err := newApp("duplicates analyze")
		if err != nil {
			return err
		}
		defer a.Close()

		stats, err := a.AnalyzeDuplicates(cmd.Context(), args[0], recursive)
		if err != nil {
			return err
		}

		fmt.Printf("Duplicate groups:   %d\n", stats.TotalGroups)
		fmt.Printf("Duplicate files:    %d\n", stats.TotalDuplicates)
		fmt.Printf("Reclaimable space:  %d bytes\n", stats.SpaceReclaimable)

		if len(stats.ByCategory) > 0 {
			categories := make([]model.Category, 0, len(stats.ByCategory))
			for c := range stats.ByCategory {
				categories = append(categories, c)
			}
			sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

			rows := make([][]string, 0, len(categories))
			for _, c := range categories {
				rows = append(rows, []string{string(c), strconv.Itoa(stats.ByCategory[c])})
			}
			fmt.Println(renderTable(
				[]string{"Category", "Duplicates"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
		}
		return nil
	},
}

// train command
var trainCmd = &cobra.Command{
	Use:   "train DIR",
	Short: "Train the text classifier from a labeled directory",
	Long: `Train the text classifier. Each immediate subdirectory of DIR names
a category, and every text file inside it is used as a training sample.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("train")
		if err != nil {
			return err
		}
		defer a.Close()

		count, err := a.Train(args[0])
		if err != nil {
			return fmt.Errorf("training failed: %w", err)
		}

		fmt.Printf("Trained on %d sample(s)\n", count)
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore CHECKSUM",
	Short: "Restore archived content by checksum",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("restore")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassphrase("Passphrase: ")
		if err != nil {
			return err
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()

		if err := a.Restore(args[0], passphrase, f); err != nil {
			return fmt.Errorf("restore failed: %w", err)
		}

		fmt.Printf("Restored %s to %s\n", args[0], output)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View recent operations from the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("history")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{
				e.Timestamp.Format("2006-01-02 15:04:05"),
				string(e.Type),
				e.SourcePath,
				string(e.Status),
				e.Details,
			})
		}
		fmt.Println(renderTable(
			[]string{"Time", "Operation", "Source", "Status", "Details"},
			rows,
			nil,
		))
		return nil
	},
}

// report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Aggregate audit operations by type and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		startStr, _ := cmd.Flags().GetString("start")
		endStr, _ := cmd.Flags().GetString("end")

		var start, end *time.Time
		if startStr != "" {
			t, err := time.Parse("2006-01-02", startStr)
			if err != nil {
				return fmt.Errorf("parsing --start: %w", err)
			}
			start = &t
		}
		if endStr != "" {
			t, err := time.Parse("2006-01-02", endStr)
			if err != nil {
				return fmt.Errorf("parsing --end: %w", err)
			}
			end = &t
		}

		a, err := newApp("report")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Report(start, end)
		if err != nil {
			return err
		}

		if report.TotalOperations == 0 {
			fmt.Println("No operations in the selected window.")
			return nil
		}

		rows := make([][]string, 0, len(report.Counts))
		for _, c := range report.Counts {
			rows = append(rows, []string{string(c.Type), string(c.Status), strconv.FormatInt(c.Count, 10)})
		}
		fmt.Println(renderTable(
			[]string{"Operation", "Status", "Count"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight},
		))
		fmt.Printf("\nTotal: %d  Success rate: %.1f%%\n", report.TotalOperations, report.SuccessRate*100)
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configKeysCmd)
	configKeysCmd.AddCommand(configKeysInitCmd)

	// organize
	organizeCmd.Flags().BoolP("recursive", "r", true, "Recurse into subdirectories")
	organizeCmd.Flags().Bool("no-duplicates", false, "Skip duplicate detection after organizing")
	organizeCmd.Flags().Float64("threshold", organizer.DefaultSimilarityThreshold, "Similarity threshold in [0,1]")
	organizeCmd.Flags().String("strategy", "newest", "Retention strategy: newest, oldest, largest, smallest")

	// duplicates subcommands
	duplicatesCmd.AddCommand(duplicatesFindCmd)
	duplicatesCmd.AddCommand(duplicatesSimilarCmd)
	duplicatesCmd.AddCommand(duplicatesRemoveCmd)
	duplicatesCmd.AddCommand(duplicatesAnalyzeCmd)
	duplicatesFindCmd.Flags().BoolP("recursive", "r", true, "Recurse into subdirectories")
	duplicatesSimilarCmd.Flags().BoolP("recursive", "r", true, "Recurse into subdirectories")
	duplicatesSimilarCmd.Flags().Float64("threshold", organizer.DefaultSimilarityThreshold, "Similarity threshold in [0,1]")
	duplicatesRemoveCmd.Flags().BoolP("recursive", "r", true, "Recurse into subdirectories")
	duplicatesRemoveCmd.Flags().String("strategy", "newest", "Retention strategy: newest, oldest, largest, smallest")
	duplicatesAnalyzeCmd.Flags().BoolP("recursive", "r", true, "Recurse into subdirectories")

	// restore
	restoreCmd.Flags().StringP("output", "o", "restored.out", "Output file path")

	// history / report
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of entries to show")
	reportCmd.Flags().String("start", "", "Window start date (YYYY-MM-DD)")
	reportCmd.Flags().String("end", "", "Window end date (YYYY-MM-DD)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(organizeCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(duplicatesCmd)
	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportCmd)
}
