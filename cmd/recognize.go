package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/ondrejvana/rollcall/internal/attendance"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize faces in an image against the enrolled gallery",
	Long: `Recognize faces in a single image. Each detected face is matched
against the enrolled gallery; with --mark, matched students are marked
present for today.

Examples:
  rollcall recognize frame.jpg
  rollcall recognize frame.jpg --mark`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
	recognizeCmd.Flags().Bool("mark", false, "Mark matched students present")
}

func runRecognize(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	if a.service.GallerySize() == 0 {
		return errors.New("no encodings enrolled, register students first")
	}

	imageData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading image %s: %w", args[0], err)
	}

	mark := mustGetBool(cmd, "mark")

	var results []attendance.RecognitionResult
	if mark {
		results, err = a.service.RecognizeAndMark(cmd.Context(), imageData)
	} else {
		results, err = a.service.Recognize(cmd.Context(), imageData)
	}
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No faces detected")
		return nil
	}

	for _, r := range results {
		switch {
		case !r.Matched:
			fmt.Printf("Unknown face (det score %.2f)\n", r.DetScore)
		case mark && r.Marked:
			fmt.Printf("%s (%s) distance %.3f - marked present\n", r.Name, r.StudentID, r.Distance)
		case mark:
			fmt.Printf("%s (%s) distance %.3f - already marked today\n", r.Name, r.StudentID, r.Distance)
		default:
			fmt.Printf("%s (%s) distance %.3f\n", r.Name, r.StudentID, r.Distance)
		}
	}
	return nil
}
