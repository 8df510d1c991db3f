package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/MisfitCrawler/internal/collect"
	"github.com/TobiSchelling/MisfitCrawler/internal/config"
	"github.com/TobiSchelling/MisfitCrawler/internal/database"
	"github.com/TobiSchelling/MisfitCrawler/internal/member"
	"github.com/TobiSchelling/MisfitCrawler/internal/pipeline"
	"github.com/TobiSchelling/MisfitCrawler/internal/server"
	"github.com/TobiSchelling/MisfitCrawler/internal/state"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

var errNoCommand = errors.New("no command given")

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if strings.HasPrefix(err.Error(), "unknown command") {
		return 2
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:   "misfitcrawler",
	Short: "Count after-action reports and sign-ups per member",
	Long: "MisfitCrawler scans a subreddit for after-action report threads and event sign-up rosters\n" +
		"and keeps a per-member tally in a local state file.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init, version, help and the bare root command
		if !cmd.HasParent() || cmd.Name() == "init" || cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		config.LoadEnv()
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if verbose {
			cfg.Logging.Level = "DEBUG"
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Help()
		return errNoCommand
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(signupCmd)
	rootCmd.AddCommand(rankCmd)
	rootCmd.AddCommand(unresolvedCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("misfitcrawler", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/misfitcrawler/ and an empty state file",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := configPath
		if target == "" {
			target = filepath.Join(config.ConfigDir(), "config.yaml")
		}

		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
		} else {
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("creating config directory: %w", err)
			}
			if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("Created config: %s\n", target)
		}

		loaded, err := config.Load(target)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		store := state.NewFileStore(loaded.GetStateFile())
		created, err := store.Create()
		if err != nil {
			return fmt.Errorf("creating state file: %w", err)
		}
		if created {
			fmt.Printf("Created state file: %s\n", store.Path())
		} else {
			fmt.Printf("State file already exists: %s\n", store.Path())
		}

		fmt.Printf("Edit the config to set the subreddit, then put %s and %s in the environment or a .env file.\n",
			loaded.Reddit.ClientIDEnv, loaded.Reddit.ClientSecretEnv)
		return nil
	},
}

// --- report / signup commands ---

var reportCmd = &cobra.Command{
	Use:   "report [timeframe]",
	Short: "Count after-action report comments (timeframe: hour, day, week, month, year, all)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(database.CommandReport, args)
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup [timeframe]",
	Short: "Count roster slots on event sign-up posts (timeframe: hour, day, week, month, year, all)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFlow(database.CommandSignup, args)
	},
}

func runFlow(command string, args []string) error {
	tf := collect.Month
	if len(args) > 0 {
		tf = collect.ParseTimeframe(args[0])
	}

	source, err := collect.NewSource(cfg)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	pipe := pipeline.New(cfg, db, source)
	result := pipe.Run(context.Background(), command, tf)

	for i, step := range result.Steps {
		fmt.Printf("\nStep %d: %s\n", i+1, step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}
	if err := result.Err(); err != nil {
		return err
	}

	fmt.Printf("\nProcessed %d submissions (%s).\n", result.Counts.Submissions, tf)
	if len(result.Rescanned) > 0 {
		fmt.Printf("Note: %d sign-up posts were already counted by an earlier run and were counted again.\n", len(result.Rescanned))
	}
	return nil
}

// --- rank command ---

var rankCmd = &cobra.Command{
	Use:   "rank [report|signup]",
	Short: "Print members ranked by report or sign-up count",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var word string
		if len(args) > 0 {
			word = args[0]
		}
		by, err := member.ParseCounter(word)
		if err != nil {
			return err
		}

		_, dir, err := loadState()
		if err != nil {
			return err
		}

		ranked := member.Rank(dir.Members(), by)
		if len(ranked) == 0 {
			fmt.Println("No members yet. Run 'misfitcrawler report' or 'misfitcrawler signup' first.")
			return nil
		}

		positions := member.Positions(ranked, by)
		t := newTable()
		t.AppendHeader(table.Row{"#", "Member", "Discord", "AARs", "Sign-ups"})
		for i, m := range ranked {
			t.AppendRow(table.Row{positions[i], m.Handle, m.SecondaryHandle, m.ReportCount, m.SignupCount})
		}
		t.Render()
		return nil
	},
}

// --- unresolved command ---

var unresolvedCmd = &cobra.Command{
	Use:   "unresolved",
	Short: "List roster names no member matched, with the closest known member",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, dir, err := loadState()
		if err != nil {
			return err
		}

		if len(st.UnresolvedNames) == 0 {
			fmt.Println("No unresolved names.")
			return nil
		}

		t := newTable()
		t.AppendHeader(table.Row{"Name", "Suggestion", "Alias", "Score"})
		for _, name := range st.UnresolvedNames {
			sug, ok := dir.Suggest(name)
			if !ok {
				t.AppendRow(table.Row{name, "", "", ""})
				continue
			}
			t.AppendRow(table.Row{name, sug.Member.Handle, sug.Alias, fmt.Sprintf("%.2f", sug.Score)})
		}
		t.Render()
		fmt.Println("\nAdd the missing aliases to the aliases file to count these names on the next sign-up run.")
		return nil
	},
}

// --- status command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show state file and run history status",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, dir, err := loadState()
		if err != nil {
			return err
		}

		fmt.Printf("Subreddit: r/%s (%s mode)\n", cfg.Reddit.Subreddit, cfg.Reddit.Mode)
		fmt.Printf("State file: %s\n\n", cfg.GetStateFile())
		fmt.Println("State:")
		fmt.Printf("  Members: %d\n", dir.Len())
		fmt.Printf("  Processed comments: %d\n", len(st.ProcessedCommentIDs))
		fmt.Printf("  Excluded handles: %d\n", len(st.ExcludedHandles))
		fmt.Printf("  Unresolved names: %d\n", len(st.UnresolvedNames))

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Println("\nRun history:")
		fmt.Printf("  Report runs: %d (%d comments counted)\n", stats.ReportRuns, stats.CountedReports)
		fmt.Printf("  Sign-up runs: %d (%d slots counted)\n", stats.SignupRuns, stats.CountedSignups)
		fmt.Printf("  Submissions scanned: %d\n", stats.ScannedSubmissions)
		fmt.Printf("  Sign-up posts counted more than once: %d\n", stats.RescannedSignups)
		for _, command := range []string{database.CommandReport, database.CommandSignup} {
			line, err := lastRunSummary(db, command)
			if err != nil {
				return fmt.Errorf("getting last %s run: %w", command, err)
			}
			fmt.Printf("  Last %s run: %s\n", command, line)
		}

		runs, err := db.GetRecentRuns(5)
		if err != nil {
			return fmt.Errorf("getting runs: %w", err)
		}
		if len(runs) > 0 {
			fmt.Println()
			t := newTable()
			t.AppendHeader(table.Row{"Run", "Command", "Timeframe", "Submissions", "Counted", "Started"})
			for _, r := range runs {
				t.AppendRow(table.Row{r.ID, r.Command, r.Timeframe, r.Submissions, r.Counted, r.StartedAt})
			}
			t.Render()
		}
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local leaderboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cfg, db, loadState, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// lastRunSummary describes the most recent run of command for status.
func lastRunSummary(db *database.DB, command string) (string, error) {
	run, err := db.GetLastRun(command)
	if err != nil {
		return "", err
	}
	if run == nil {
		return "never", nil
	}
	return fmt.Sprintf("%s (%s, %d submissions, %d counted)", run.StartedAt, run.Timeframe, run.Submissions, run.Counted), nil
}

func loadState() (*state.State, *member.Directory, error) {
	return pipeline.LoadState(cfg, state.NewFileStore(cfg.GetStateFile()))
}

func openDB() (*database.DB, error) {
	return database.OpenInDir(cfg.GetDataDir())
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
