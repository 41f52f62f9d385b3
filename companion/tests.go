package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/itohio/tensile/pkg/companion"
)

func NewTestsCommand() *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "tests",
		Short: "List stored tests, newest first",
		RunE: func(_ *cobra.Command, _ []string) error {
			tests, err := loadTests(date)
			if err != nil {
				return err
			}
			if len(tests) == 0 {
				fmt.Println("no tests found in", cfg.Companion.TestsDirectory)
				return nil
			}

			for _, t := range tests {
				fmt.Printf("%s  %s  %s  %s\n",
					t.DateTime,
					bold("%-24s", t.TestName),
					color.CyanString("%10s %s", t.PeakForce, t.PeakUnit),
					t.Technician,
				)
				fmt.Printf("    %s\n", color.New(color.Faint).Sprint(t.DateFolder+"/"+filepath.Base(t.Path)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "only tests from this day (YYYY-MM-DD)")

	cmd.AddCommand(
		newTestsShowCommand(),
		newTestsEditCommand(),
	)

	return cmd
}

func newTestsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show DATE/FILE",
		Short: "Print the metadata and readings of a stored test",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			store, path, err := resolveTest(args[0])
			if err != nil {
				return err
			}
			meta, records, err := store.Load(path)
			if err != nil {
				return err
			}

			printMetadata(meta)
			fmt.Println()
			fmt.Println(bold("%10s %12s %12s", "time (s)", "current", "peak"))
			for _, r := range records {
				fmt.Printf("%10.3f %12.3f %12.3f\n", r.Timestamp, r.Current, r.Peak)
			}
			return nil
		},
	}
}

func newTestsEditCommand() *cobra.Command {
	var req companion.SaveRequest

	cmd := &cobra.Command{
		Use:   "edit DATE/FILE",
		Short: "Change the name, technician, date or notes of a stored test",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := resolveTest(args[0])
			if err != nil {
				return err
			}
			meta, err := store.ReadMetadata(path)
			if err != nil {
				return err
			}

			// Notes are replaced only when given
			if cmd.Flags().Changed("notes") {
				req.Notes = strings.ReplaceAll(req.Notes, `\n`, "\n")
			} else {
				req.Notes = meta.Notes
			}
			if err := companion.ApplyEdit(&meta, req); err != nil {
				return err
			}
			if err := store.UpdateMetadata(path, meta); err != nil {
				return err
			}

			fmt.Println(color.GreenString("updated"), path)
			printMetadata(meta)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.TestName, "name", "n", "", "test name")
	cmd.Flags().StringVarP(&req.Technician, "technician", "t", "", "technician")
	cmd.Flags().StringVar(&req.DateTime, "datetime", "", "test date and time ("+companion.DateTimeLayout+")")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "notes; use \\n for line breaks")

	return cmd
}

// resolveTest maps "YYYY-MM-DD/file.csv" to a stored test file.
func resolveTest(ref string) (*companion.Store, string, error) {
	unit, err := cfg.Unit()
	if err != nil {
		return nil, "", err
	}
	date, name, ok := strings.Cut(filepath.ToSlash(ref), "/")
	if !ok {
		return nil, "", errors.Wrapf(companion.ErrBadTestRef, "%q is not DATE/FILE", ref)
	}
	store := companion.NewStore(cfg.Companion.TestsDirectory, unit)
	path, err := store.Path(date, name)
	if err != nil {
		return nil, "", err
	}
	return store, path, nil
}

func printMetadata(meta companion.Metadata) {
	fmt.Printf("%s %s\n", bold("Test:      "), meta.TestName)
	fmt.Printf("%s %s\n", bold("Date:      "), meta.DateTime)
	fmt.Printf("%s %s\n", bold("Technician:"), meta.Technician)
	fmt.Printf("%s %s\n", bold("Peak:      "), color.CyanString("%s %s", meta.PeakForce, meta.PeakUnit))
	for _, line := range strings.Split(meta.Notes, "\n") {
		if line != "" {
			fmt.Printf("%s %s\n", bold("Notes:     "), line)
		}
	}
}

func loadTests(date string) ([]companion.Metadata, error) {
	unit, err := cfg.Unit()
	if err != nil {
		return nil, err
	}
	store := companion.NewStore(cfg.Companion.TestsDirectory, unit)
	if date != "" {
		return store.ByDate(date)
	}
	return store.List()
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
