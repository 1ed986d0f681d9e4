package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"dupecull/internal/cleaner"
	"dupecull/internal/config"
	"dupecull/internal/decide"
	"dupecull/internal/report"
	"dupecull/internal/review"
	"dupecull/internal/types"
)

var (
	scanRoot         string
	scanMode         string
	scanApply        bool
	scanConfirm      bool
	scanInteractive  bool
	scanCache        bool
	scanWorkers      int
	scanMinSize      int64
	scanMaxSize      int64
	scanExcludes     []string
	scanExcludeGlobs []string
	scanSkipExts     []string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a directory tree and resolve duplicate files",
	Long: `Scan a directory tree, confirm duplicates by content hash, and resolve
each duplicate group according to the selected mode:

  report      record findings only
  quarantine  move duplicates into <root>/_DUPLICATE_QUARANTINE (default)
  delete      remove duplicates permanently (requires --confirm)

Every run is a dry run unless --apply is given. Quarantine runs write a
manifest and a restore script, so 'dupecull restore' can undo them.

Example:
  dupecull scan --root ~/Downloads                         # dry run
  dupecull scan --root ~/Downloads --apply                 # quarantine duplicates
  dupecull scan --root ~/Downloads --apply --interactive   # review each group first
  dupecull scan --root /mnt/media --mode report --cache    # report only, warm cache
  dupecull scan --root ~/tmp --mode delete --apply --confirm`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Flags override the config file only when given on the command line.
		abs, err := filepath.Abs(scanRoot)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid root %q: %v\n", scanRoot, err)
			os.Exit(1)
		}
		cfg.Root = abs
		if cmd.Flags().Changed("mode") {
			cfg.Mode = types.Mode(scanMode)
		}
		if cmd.Flags().Changed("apply") {
			cfg.Apply = scanApply
		}
		if cmd.Flags().Changed("confirm") {
			cfg.Confirm = scanConfirm
		}
		if cmd.Flags().Changed("interactive") {
			cfg.Interactive = scanInteractive
		}
		if cmd.Flags().Changed("cache") {
			cfg.CacheEnabled = scanCache
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = scanWorkers
		}
		if cmd.Flags().Changed("min-size") {
			cfg.MinSize = scanMinSize
		}
		if cmd.Flags().Changed("max-size") {
			cfg.MaxSize = scanMaxSize
		}
		if len(scanExcludes) > 0 {
			cfg.ExcludePaths = append(cfg.ExcludePaths, scanExcludes...)
		}
		if len(scanExcludeGlobs) > 0 {
			cfg.ExcludeGlobs = append(cfg.ExcludeGlobs, scanExcludeGlobs...)
		}
		if len(scanSkipExts) > 0 {
			cfg.SkipExtensions = append(cfg.SkipExtensions, scanSkipExts...)
		}
		if flagLogDir != "" {
			cfg.LogDir = flagLogDir
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		info, err := os.Stat(cfg.Root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: root does not exist: %s\n", cfg.Root)
			os.Exit(1)
		}
		if !info.IsDir() {
			fmt.Fprintf(os.Stderr, "Error: root is not a directory: %s\n", cfg.Root)
			os.Exit(1)
		}

		// Deleting needs both gates up front, not a surprise at dispatch.
		if cfg.Mode == types.ModeDelete && cfg.Apply && !cfg.Confirm {
			fmt.Fprintf(os.Stderr, "Error: delete mode with --apply requires --confirm\n")
			os.Exit(1)
		}
		if cfg.Mode == types.ModeDelete && cfg.Apply {
			red := color.New(color.FgRed, color.Bold).SprintFunc()
			fmt.Fprintf(os.Stderr, "\n%s Duplicates will be PERMANENTLY DELETED.\n", red("WARNING:"))
			fmt.Fprintf(os.Stderr, "   There is no quarantine and no restore for this mode.\n\n")
		}

		log, closeLog, err := buildLogger(cfg.LogLevel, cfg.ResolvedLogDir())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeLog()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fsys := afero.NewOsFs()
		c := cleaner.New(fsys, cfg, log)
		if cfg.Interactive {
			c.Review = func(groups []types.DuplicateGroup) (map[string]types.ReviewDecision, error) {
				sess, err := review.NewSession(decide.NewEngine(fsys))
				if err != nil {
					return nil, err
				}
				return sess.Run(groups)
			}
		}

		res, runErr := c.Run(ctx)
		printScanSummary(res, cfg)
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanRoot, "root", "", "directory tree to scan (required)")
	scanCmd.Flags().StringVar(&scanMode, "mode", string(types.ModeQuarantine), "what to do with duplicates: report, quarantine, or delete")
	scanCmd.Flags().BoolVar(&scanApply, "apply", false, "actually modify the filesystem (default is a dry run)")
	scanCmd.Flags().BoolVar(&scanConfirm, "confirm", false, "second gate required for delete mode with --apply")
	scanCmd.Flags().BoolVarP(&scanInteractive, "interactive", "i", false, "review each duplicate group before acting")
	scanCmd.Flags().BoolVar(&scanCache, "cache", false, "cache full hashes between runs")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", config.DefaultConfig().Workers, "hashing worker count")
	scanCmd.Flags().Int64Var(&scanMinSize, "min-size", 0, "ignore files smaller than this many bytes")
	scanCmd.Flags().Int64Var(&scanMaxSize, "max-size", config.DefaultConfig().MaxSize, "ignore files larger than this many bytes")
	scanCmd.Flags().StringArrayVar(&scanExcludes, "exclude", nil, "path to exclude from the scan (repeatable)")
	scanCmd.Flags().StringArrayVar(&scanExcludeGlobs, "exclude-glob", nil, "glob pattern to exclude, matched case-insensitively (repeatable)")
	scanCmd.Flags().StringArrayVar(&scanSkipExts, "skip-ext", nil, "file extension to skip, e.g. .iso (repeatable)")
	_ = scanCmd.MarkFlagRequired("root")
}

func printScanSummary(res cleaner.Result, cfg config.Config) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("\n%s\n\n", cyan("=== Duplicate Scan Summary ==="))
	if !cfg.Apply {
		fmt.Printf("%s\n\n", yellow("DRY RUN: no files were modified (pass --apply to act)"))
	}

	st := res.Stats
	fmt.Printf("  Files scanned:    %d\n", st.FilesScanned)
	fmt.Printf("  Files skipped:    %d\n", st.FilesSkipped)
	fmt.Printf("  Size candidates:  %d\n", st.CandidateFiles)
	fmt.Printf("  Duplicate groups: %d\n", st.DuplicateGroups)
	fmt.Printf("  Duplicate files:  %d\n", st.DuplicateFiles)
	fmt.Printf("  Reclaimable:      %s\n", report.FormatSize(st.BytesReclaimable))
	if cfg.CacheEnabled {
		fmt.Printf("  Cache hits:       %d\n", st.CacheHits)
	}
	fmt.Printf("  %s\n", gray(fmt.Sprintf("scan %v, hash %v, actions %v",
		st.ScanDuration.Round(time.Millisecond),
		st.HashDuration.Round(time.Millisecond),
		st.ActionDuration.Round(time.Millisecond))))

	if st.DuplicateGroups == 0 {
		fmt.Printf("\n%s No duplicate files found\n\n", green("✓"))
		return
	}

	if len(st.ActionsByDisposition) > 0 {
		fmt.Printf("\n%s\n", yellow("Actions:"))
		for _, d := range []types.Disposition{
			types.DispositionDryRun, types.DispositionReportOnly,
			types.DispositionMove, types.DispositionDelete,
		} {
			if n := st.ActionsByDisposition[d]; n > 0 {
				fmt.Printf("  %-12s %d\n", string(d)+":", n)
			}
		}
	}
	if st.Errors > 0 {
		fmt.Printf("\n  %s %d actions failed (details in the JSON report)\n", red("✗"), st.Errors)
	}

	if res.Reports.CSV != "" {
		fmt.Printf("\n%s\n", yellow("Reports:"))
		fmt.Printf("  CSV:     %s\n", res.Reports.CSV)
		fmt.Printf("  JSON:    %s\n", res.Reports.JSON)
		fmt.Printf("  Summary: %s\n", res.Reports.Summary)
	}

	if res.ManifestPath != "" {
		fmt.Printf("\n%s\n", yellow("Quarantine:"))
		fmt.Printf("  Manifest: %s\n", res.ManifestPath)
		fmt.Printf("  Restore:  %s\n", res.RestorePath)
		fmt.Printf("  %s\n", gray("undo with: dupecull restore --from "+filepath.Dir(res.ManifestPath)))
	}
	fmt.Println()
}
