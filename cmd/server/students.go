package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"campus-face-id/internal/db"
	"campus-face-id/internal/db/repository"

	"github.com/spf13/cobra"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "Inspect the student directory",
}

var studentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all students with their model labels",
	RunE:  runStudentsList,
}

var studentsSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default student records into an empty directory",
	RunE:  runStudentsSeed,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	studentsCmd.AddCommand(studentsListCmd)
	studentsCmd.AddCommand(studentsSeedCmd)
}

func runStudentsList(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	database, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close(database)

	students, err := repository.NewSQLiteRepository(database).GetStudents()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tSTUDENT ID\tNAME\tPROGRAM\tYEAR\tSTATUS")
	for _, s := range students {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", s.ID, s.StudentID, s.Name, s.Program, s.Year, s.Status)
	}
	return w.Flush()
}

func runStudentsSeed(cmd *cobra.Command, args []string) error {
	cfg, logCloser, err := setup()
	if err != nil {
		return err
	}
	defer logCloser.Close()

	// Open führt das Seeding nur aus, wenn es konfiguriert ist
	cfg.DB.SeedStudents = false
	database, err := db.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer db.Close(database)

	if err := db.SeedStudents(database); err != nil {
		return err
	}
	fmt.Println("Student directory seeded")
	return nil
}
