package cmd

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Recompute missing encodings from stored enrollment photos",
	Long: `Walk the dataset directory and recompute face encodings for every
enrollment photo that has no encoding row. Use this after the encoding
file was lost or the embedding model changed.

Examples:
  rollcall sync
  rollcall sync --force`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("force", false, "Recompute encodings even for students that already have one")
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	photos, err := a.store.DatasetPhotos()
	if err != nil {
		return fmt.Errorf("scanning dataset photos: %w", err)
	}
	if len(photos) == 0 {
		fmt.Println("No enrollment photos found")
		return nil
	}

	force := mustGetBool(cmd, "force")

	encoded := make(map[string]bool)
	encodings, err := a.store.Encodings.Load()
	if err != nil {
		return fmt.Errorf("loading encodings: %w", err)
	}
	for _, enc := range encodings {
		encoded[enc.StudentID] = true
	}

	var pending []string
	for studentID := range photos {
		if force || !encoded[studentID] {
			pending = append(pending, studentID)
		}
	}
	if len(pending) == 0 {
		fmt.Printf("All %d photos already have encodings\n", len(photos))
		return nil
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetDescription("Syncing encodings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var synced, failed int
	for _, studentID := range pending {
		photo, err := os.ReadFile(photos[studentID])
		if err != nil {
			fmt.Fprintf(os.Stderr, "\n%s: reading photo: %v\n", studentID, err)
			failed++
			_ = bar.Add(1)
			continue
		}

		if err := a.service.UpdateEncoding(cmd.Context(), studentID, photo); err != nil {
			fmt.Fprintf(os.Stderr, "\n%s: %v\n", studentID, err)
			failed++
			_ = bar.Add(1)
			continue
		}

		synced++
		_ = bar.Add(1)
	}
	_ = bar.Finish()

	fmt.Printf("\nSynced %d encodings, %d failures, gallery now holds %d\n",
		synced, failed, a.service.GallerySize())
	if failed > 0 {
		return fmt.Errorf("%d photos could not be encoded", failed)
	}
	return nil
}
