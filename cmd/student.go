package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ondrejvana/rollcall/internal/store"
	"github.com/spf13/cobra"
)

var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Manage the student roster",
}

var studentRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Enroll a new student from a face photo",
	Long: `Enroll a new student. The photo must contain exactly one detectable
face; its embedding is stored alongside the roster row and used for
recognition from then on.

Examples:
  rollcall student register --id S001 --name "Ada Lovelace" --photo ada.jpg
  rollcall student register --id S002 --name "Grace Hopper" --rfid CARD42 --photo grace.png`,
	RunE: runStudentRegister,
}

var studentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered students",
	RunE:  runStudentList,
}

func init() {
	rootCmd.AddCommand(studentCmd)
	studentCmd.AddCommand(studentRegisterCmd)
	studentCmd.AddCommand(studentListCmd)

	studentRegisterCmd.Flags().String("id", "", "Student identifier (required)")
	studentRegisterCmd.Flags().String("name", "", "Student name (required)")
	studentRegisterCmd.Flags().String("email", "", "Contact email")
	studentRegisterCmd.Flags().String("phone", "", "Contact phone number")
	studentRegisterCmd.Flags().String("rfid", "", "RFID card identifier")
	studentRegisterCmd.Flags().String("photo", "", "Path to the enrollment photo (required)")
	_ = studentRegisterCmd.MarkFlagRequired("id")
	_ = studentRegisterCmd.MarkFlagRequired("name")
	_ = studentRegisterCmd.MarkFlagRequired("photo")

	studentListCmd.Flags().String("search", "", "Filter by name (case and diacritics insensitive)")
}

func runStudentRegister(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	photoPath := mustGetString(cmd, "photo")
	photo, err := os.ReadFile(photoPath)
	if err != nil {
		return fmt.Errorf("reading photo %s: %w", photoPath, err)
	}

	student := store.Student{
		ID:    mustGetString(cmd, "id"),
		Name:  mustGetString(cmd, "name"),
		Email: mustGetString(cmd, "email"),
		Phone: mustGetString(cmd, "phone"),
		RFID:  mustGetString(cmd, "rfid"),
	}

	registered, err := a.service.Register(cmd.Context(), student, photo)
	if err != nil {
		return fmt.Errorf("registering %s: %w", student.ID, err)
	}

	fmt.Printf("Registered %s (%s), gallery now holds %d encodings\n",
		registered.Name, registered.ID, a.service.GallerySize())
	return nil
}

func runStudentList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	var students []store.Student
	if search := mustGetString(cmd, "search"); search != "" {
		students, err = a.store.Students.SearchByName(search)
	} else {
		students, err = a.store.Students.List()
	}
	if err != nil {
		return fmt.Errorf("reading roster: %w", err)
	}

	if len(students) == 0 {
		fmt.Println("No students registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tRFID")
	for _, s := range students {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Name, s.Email, s.Phone, s.RFID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d students\n", len(students))
	return nil
}
