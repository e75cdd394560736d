package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ondrejvana/rollcall/internal/attendance"
	"github.com/spf13/cobra"
)

const reportDayFormat = "2006-01-02"

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print attendance records over a date range",
	Long: `Print attendance records joined with the roster. Events after the
late_threshold setting are flagged late.

Examples:
  rollcall report
  rollcall report --start 2025-03-01 --end 2025-03-31
  rollcall report --start 2025-03-01 --end 2025-03-31 --csv march.csv`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("start", "", "First day of the range (YYYY-MM-DD, default today)")
	reportCmd.Flags().String("end", "", "Last day of the range (YYYY-MM-DD, default today)")
	reportCmd.Flags().String("csv", "", "Write the report as CSV to this file instead of printing")
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	start, end, err := parseReportRange(cmd)
	if err != nil {
		return err
	}

	records, err := a.service.RecordsBetween(start, end)
	if err != nil {
		return err
	}

	if csvPath := mustGetString(cmd, "csv"); csvPath != "" {
		f, err := os.Create(csvPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", csvPath, err)
		}
		defer f.Close()
		if err := attendance.WriteRecordsCSV(f, records); err != nil {
			return fmt.Errorf("writing %s: %w", csvPath, err)
		}
		fmt.Printf("Wrote %d records to %s\n", len(records), csvPath)
		return nil
	}

	if len(records) == 0 {
		fmt.Printf("No attendance between %s and %s\n", start.Format(reportDayFormat), end.Format(reportDayFormat))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIME\tID\tNAME\tSTATUS")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Date, r.Time, r.StudentID, r.Name, r.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d records\n", len(records))
	return nil
}

func parseReportRange(cmd *cobra.Command) (time.Time, time.Time, error) {
	today := time.Now()
	start, end := today, today

	if raw := mustGetString(cmd, "start"); raw != "" {
		parsed, err := time.ParseInLocation(reportDayFormat, raw, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q, want YYYY-MM-DD", raw)
		}
		start = parsed
	}
	if raw := mustGetString(cmd, "end"); raw != "" {
		parsed, err := time.ParseInLocation(reportDayFormat, raw, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q, want YYYY-MM-DD", raw)
		}
		end = parsed
	}
	return start, end, nil
}
