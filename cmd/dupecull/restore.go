package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"dupecull/internal/quarantine"
)

var (
	restoreFrom   string
	restoreDryRun bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Put quarantined files back where they came from",
	Long: `Replay a quarantine manifest in reverse, moving every quarantined file
back to its original location. Files quarantined last are restored
first, so nested moves unwind cleanly.

Example:
  dupecull restore --from ~/Downloads/_DUPLICATE_QUARANTINE
  dupecull restore --from ~/Downloads/_DUPLICATE_QUARANTINE --dry-run`,
	Run: func(cmd *cobra.Command, args []string) {
		log, closeLog, err := buildLogger("info", "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer closeLog()

		fsys := afero.NewOsFs()
		m, err := quarantine.ReadManifest(fsys, restoreFrom)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		res := quarantine.Restore(fsys, m, restoreDryRun, log)

		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Println()
		if restoreDryRun {
			fmt.Printf("%s would restore %d files from run %s\n", green("✓"), res.Restored, gray(m.RunID))
		} else {
			fmt.Printf("%s Restored %d files from run %s\n", green("✓"), res.Restored, gray(m.RunID))
		}
		if res.Errors > 0 {
			fmt.Printf("%s %d files could not be restored\n", red("✗"), res.Errors)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
	restoreCmd.Flags().StringVar(&restoreFrom, "from", "", "quarantine directory holding the manifest (required)")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "show what would be restored without moving anything")
	_ = restoreCmd.MarkFlagRequired("from")
}
