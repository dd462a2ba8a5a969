package golestan

import (
	"regexp"
	"strconv"
	"strings"

	"golestan-backend/lib/textutil"
)

const defaultInstructor = "اساتید گروه آموزشی"

// weekday as it appears in schedule text, optionally with spaces or a zwnj
// between the prefix and شنبه. matching happens after persian normalization.
const dayPattern = `(?:(?:یک|دو|سه|چهار|پنج)[\s` + "‌" + `]*)?شنبه|جمعه`

var (
	// a schedule cell concatenates one block per lecture slot, each opened
	// by a درس(ت): or درس(ع): marker (theory/practice)
	scheduleMarkerRegex = regexp.MustCompile(`درس\([تع]\):\s*`)
	meetingRegex        = regexp.MustCompile(`(` + dayPattern + `)\s+(\d{2}:\d{2})-(\d{2}:\d{2})(?:\s*([فز]))?`)
	locationRegex       = regexp.MustCompile(`مکان:\s*([^،]+)`)
	examRegex           = regexp.MustCompile(`(\d{4}/\d{2}/\d{2}).*?(\d{2}:\d{2}-\d{2}:\d{2})`)
	spacesRegex         = regexp.MustCompile(`\s+`)
)

// canonical zwnj spellings for the compound weekdays
var dayCanonical = map[string]string{
	"سهشنبه":  "سه‌شنبه",
	"پنجشنبه": "پنج‌شنبه",
}

// normalizeDay collapses the spacing variants of a weekday name into one
// canonical spelling per day.
func normalizeDay(raw string) string {
	day := textutil.NormalizePersian(raw)
	stripped := strings.NewReplacer(" ", "", "‌", "").Replace(strings.TrimSpace(day))
	if canonical, ok := dayCanonical[stripped]; ok {
		return canonical
	}
	if stripped != "" {
		return stripped
	}
	return day
}

// parseCatalogRows shapes the raw report rows into faculty -> department ->
// course groups. rows missing expected attributes degrade to zero values,
// one bad row never loses the rest of the report.
func parseCatalogRows(rows []Row) map[string]map[string][]CatalogCourse {
	if rows == nil {
		return nil
	}

	catalog := map[string]map[string][]CatalogCourse{}
	for _, row := range rows {
		faculty := textutil.NormalizePersian(row["B4"])
		department := textutil.NormalizePersian(row["B6"])
		if catalog[faculty] == nil {
			catalog[faculty] = map[string][]CatalogCourse{}
		}

		course := CatalogCourse{
			Faculty:              faculty,
			Department:           department,
			Code:                 row["C1"],
			Name:                 textutil.NormalizePersian(row["C2"]),
			Credits:              parseCredits(row["C3"]),
			Gender:               row["C10"],
			Capacity:             row["C7"],
			Instructor:           cleanCatalogText(row["C11"]),
			Schedule:             parseSchedule(row["C12"]),
			EnrollmentConditions: parseConditions(row["C15"], row["C16"]),
			Description:          strings.ReplaceAll(textutil.NormalizePersian(row["C25"]), "<BR>", ""),
			ExamTime:             parseExamTime(row["C13"]),
		}
		if course.Instructor == "" {
			course.Instructor = defaultInstructor
		}
		catalog[faculty][department] = append(catalog[faculty][department], course)
	}
	return catalog
}

func parseCredits(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(textutil.StripMarkup(raw)))
	if err != nil {
		return 0
	}
	return n
}

func cleanCatalogText(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(textutil.NormalizePersian(raw), "<BR>", ""))
}

// parseConditions merges the two enrollment condition cells. the second cell
// holding the literal بي اثر means "no effect": it is dropped and the first
// cell loses its trailing separator.
func parseConditions(c15, c16 string) string {
	if textutil.NormalizePersian(strings.TrimSpace(c16)) == "بی اثر" {
		return cleanCatalogText(strings.TrimRight(c15, "، "))
	}
	return cleanCatalogText(c15 + c16)
}

func parseExamTime(raw string) string {
	m := examRegex.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1] + " - " + m[2]
}

// parseSchedule explodes a schedule cell into one entry per weekly meeting.
// the cell is split on the درس markers, each block may list several
// day/time pairs that all share the block's مکان location.
func parseSchedule(raw string) []ScheduleEntry {
	text := textutil.NormalizePersian(raw)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var entries []ScheduleEntry
	for _, block := range splitScheduleBlocks(text) {
		meetings := meetingRegex.FindAllStringSubmatch(block, -1)
		if meetings == nil {
			continue
		}

		location := ""
		if m := locationRegex.FindStringSubmatch(block); m != nil {
			location = strings.TrimSpace(m[1])
		}

		for _, meeting := range meetings {
			day := spacesRegex.ReplaceAllString(meeting[1], " ")
			entries = append(entries, ScheduleEntry{
				Day:      normalizeDay(day),
				Start:    meeting[2],
				End:      meeting[3],
				Parity:   meeting[4],
				Location: location,
			})
		}
	}
	return entries
}

// splitScheduleBlocks cuts the cell at every درس marker, dropping the
// markers themselves and any leading text before the first one when it
// carries no meeting of its own.
func splitScheduleBlocks(text string) []string {
	marks := scheduleMarkerRegex.FindAllStringIndex(text, -1)
	if marks == nil {
		return []string{text}
	}

	var blocks []string
	if head := strings.TrimSpace(text[:marks[0][0]]); head != "" {
		blocks = append(blocks, head)
	}
	for i, mark := range marks {
		end := len(text)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		block := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(text[mark[1]:end]), "،"))
		if block != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
