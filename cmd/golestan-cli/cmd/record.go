package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"golestan-backend/lib/scrapers/golestan"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Fetches the full academic record of the student given by GOLESTAN_USERNAME/GOLESTAN_PASSWORD.",
	Run: func(cmd *cobra.Command, args []string) {
		username, password, err := credentials()
		if err != nil {
			log.Fatal(err)
		}
		client, err := newClient(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}

		student, err := client.FetchStudentRecord(cmd.Context(), username, password)
		if err != nil {
			log.Fatal(err)
		}

		if jsonOutput {
			out, err := json.MarshalIndent(student, "", "  ")
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(out))
			return
		}

		printStudent(student)
	},
}

func formatGpa(gpa *float64) string {
	if gpa == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *gpa)
}

func printStudent(student *golestan.Student) {
	fmt.Printf("%s (%s)\n", student.Name, student.StudentID)
	fmt.Printf("%s / %s / %s\n", student.Faculty, student.Department, student.Major)
	fmt.Printf(
		"%s, %s, %s\n",
		student.DegreeLevel, student.StudyType, student.EnrollmentStatus,
	)
	fmt.Printf(
		"overall gpa: %s, units passed: %g\n\n",
		formatGpa(student.OverallGPA), student.TotalUnitsPassed,
	)

	for _, semester := range student.Semesters {
		fmt.Printf(
			"%s (gpa %s, %g units taken)\n",
			semester.Description, formatGpa(semester.SemesterGPA), semester.UnitsTaken,
		)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Code", "Course", "Units", "Type", "State", "Grade"})
		for _, course := range semester.Courses {
			t.AppendRow(table.Row{
				course.CourseCode,
				course.CourseName,
				course.CourseUnits,
				course.CourseType,
				course.GradeState,
				formatGpa(course.Grade),
			})
		}
		t.Render()
		fmt.Println()
	}
}
