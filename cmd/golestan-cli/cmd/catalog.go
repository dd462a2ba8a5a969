package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"golestan-backend/lib/scrapers/golestan"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var catalogStatus string

func init() {
	catalogCmd.Flags().StringVar(
		&catalogStatus, "status", string(golestan.OfferingBoth),
		"which offerings to fetch: available, unavailable or both",
	)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Fetches the course offering report, grouped by faculty and department.",
	Run: func(cmd *cobra.Command, args []string) {
		username, password, err := credentials()
		if err != nil {
			log.Fatal(err)
		}
		client, err := newClient(cmd.Context())
		if err != nil {
			log.Fatal(err)
		}

		err = client.Authenticate(cmd.Context(), username, password)
		if err != nil {
			log.Fatal(err)
		}
		catalog, err := client.FetchCourseCatalog(
			cmd.Context(), golestan.OfferingStatus(catalogStatus),
		)
		if err != nil {
			log.Fatal(err)
		}

		if jsonOutput {
			out, err := json.MarshalIndent(catalog, "", "  ")
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(out))
			return
		}

		printCatalogSide("available", catalog.Available)
		printCatalogSide("unavailable", catalog.Unavailable)
	},
}

func printCatalogSide(label string, side map[string]map[string][]golestan.CatalogCourse) {
	if side == nil {
		return
	}
	fmt.Printf("== %s courses ==\n", label)
	for faculty, departments := range side {
		for department, courses := range departments {
			fmt.Printf("%s / %s\n", faculty, department)

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Code", "Course", "Credits", "Capacity", "Instructor", "Schedule", "Exam"})
			for _, course := range courses {
				var slots []string
				for _, entry := range course.Schedule {
					slot := fmt.Sprintf("%s %s-%s", entry.Day, entry.Start, entry.End)
					if entry.Parity != "" {
						slot += " " + entry.Parity
					}
					slots = append(slots, slot)
				}
				t.AppendRow(table.Row{
					course.Code,
					course.Name,
					course.Credits,
					course.Capacity,
					course.Instructor,
					strings.Join(slots, ", "),
					course.ExamTime,
				})
			}
			t.Render()
			fmt.Println()
		}
	}
}
