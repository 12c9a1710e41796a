package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/wordpusher/internal/config"
	"github.com/example/wordpusher/internal/excel"
	"github.com/example/wordpusher/internal/review"
	"github.com/example/wordpusher/internal/store"
	"github.com/example/wordpusher/pkg/models"
)

func newAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <term> <definition>",
		Short: "Add one word to the review list",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			term := args[0]
			definition := strings.Join(args[1:], " ")

			st := store.New(cfg.StorePath)
			err = st.AppendUnique(models.NewWordRecord(term, definition, time.Now()))
			if errors.Is(err, store.ErrDuplicateTerm) {
				return fmt.Errorf("%q is already in the list", term)
			}
			if err != nil {
				return err
			}
			fmt.Printf("Added %q.\n", term)
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var dueOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the word list with due dates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st := store.New(cfg.StorePath)
			records, malformed, err := st.ReadAll()
			if err != nil {
				return err
			}

			sched := review.NewScheduler()
			today := models.Midnight(time.Now())
			for _, rec := range records {
				due := "new"
				if rec.ReviewStage > 0 {
					next := sched.NextReviewDate(rec)
					if today.Before(next) {
						if dueOnly {
							continue
						}
						due = "due " + next.Format(models.DateLayout)
					} else {
						due = "due now"
					}
				}
				fmt.Printf("%-20s stage %-2d %-14s %s\n", rec.Term, rec.ReviewStage, due, rec.Definition)
			}
			for _, diag := range malformed {
				fmt.Printf("malformed: %v\n", diag)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dueOnly, "due", false, "only words due today")
	return cmd
}

func newImportCmd() *cobra.Command {
	var sheet string
	var keepHeader bool
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Bulk-import words from a spreadsheet (term in column A, definition in column B)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			st := store.New(cfg.StorePath)

			result, err := excel.ImportWords(st, excel.ImportConfig{
				FilePath:   args[0],
				SheetName:  sheet,
				SkipHeader: !keepHeader,
			})
			if result != nil {
				fmt.Printf("Processed %d rows: %d added, %d duplicates, %d skipped.\n",
					result.TotalProcessed, result.Added, result.Duplicates, result.Skipped)
				for _, e := range result.Errors {
					fmt.Println(" ", e)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&sheet, "sheet", "", "sheet name (default: first sheet)")
	cmd.Flags().BoolVar(&keepHeader, "keep-header", false, "treat the first row as data")
	return cmd
}
