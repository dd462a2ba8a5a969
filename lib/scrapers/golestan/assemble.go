package golestan

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"golestan-backend/lib/htmlutil"
	"golestan-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// every data-bearing page embeds its payload in a script element with this id.
const dataScriptId = "clientEventHandlersJS"

// pageScript returns the data script body of a page, or an error when the
// page does not carry one. a missing data script means the portal silently
// dropped us out of the record form, usually after a sequencing mistake.
func pageScript(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", wrapError(CategoryMissingFormState, "response is not parseable html", err)
	}
	script := htmlutil.ScriptText(doc, dataScriptId)
	if script == "" {
		return "", newError(CategoryMissingFormState, "page carries no data script block")
	}
	return script, nil
}

// assembleStudent builds the identity and overall-standing portion of a
// Student from the summary page. semesters are filled in separately.
func assembleStudent(summaryPage []byte) (*Student, error) {
	script, err := pageScript(summaryPage)
	if err != nil {
		return nil, err
	}
	vars := scriptVars(script)

	student := &Student{
		Name:                   cleanField(vars["F51851"]),
		FatherName:             cleanField(vars["F34501"]),
		Faculty:                cleanField(vars["F61151"]),
		Department:             cleanField(vars["F16451"]),
		Major:                  cleanField(vars["F17551"]),
		DegreeLevel:            cleanField(vars["F41301"]),
		StudyType:              cleanField(vars["F41351"]),
		EnrollmentStatus:       cleanField(vars["F43301"]),
		RegistrationPermission: cleanField(vars["F42251"]) == "دارد",
		OverallGPA:             parseDecimal(vars["F41701"]),
		TotalUnitsPassed:       parseUnits(vars["F41801"]),
		TotalProbation:         parseCount(vars["F42401"]),
		ConsecutiveProbation:   parseCount(vars["F42451"]),
		SpecialProbation:       parseCount(vars["F42371"]),
		FetchedAt:              time.Now().UTC(),
	}

	// the photo arrives as a data uri, only the base64 payload is kept
	if photo := vars["F15871"]; photo != "" {
		if idx := strings.IndexByte(photo, ','); idx >= 0 {
			student.PhotoBase64 = photo[idx+1:]
		}
	}
	return student, nil
}

// semesterIdsFromSummary lists the semester ids the summary table advertises,
// ascending. an unparseable summary yields no ids rather than an error, the
// caller then produces a record with an empty semester list.
func semesterIdsFromSummary(summaryPage []byte) []int {
	script, err := pageScript(summaryPage)
	if err != nil {
		return nil
	}

	// the table lists semesters oldest first already, order is preserved
	var ids []int
	seen := map[int]bool{}
	for _, row := range parseRows(extractTable(script, "T01XML"), "N") {
		id, err := strconv.Atoi(strings.TrimSpace(row["F4350"]))
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// extractTable returns the quoted pseudo-xml payload assigned to one of the
// table variables (T01XML, T02XML) in a data script, or "".
func extractTable(script, name string) string {
	return scriptVar(script, name)
}

// assembleSemester builds one SemesterRecord from a semester view page. a
// page that names no semester and lists no courses is an empty view, for
// which (nil, nil) is returned.
func assembleSemester(page []byte, semesterId int) (*SemesterRecord, error) {
	script, err := pageScript(page)
	if err != nil {
		return nil, err
	}
	vars := scriptVars(script)

	courses := assembleCourses(extractTable(script, "T02XML"))
	if strings.TrimSpace(vars["F43501"]) == "" && len(courses) == 0 {
		return nil, nil
	}

	record := &SemesterRecord{
		SemesterID:      semesterId,
		Description:     cleanField(vars["F57551"]),
		SemesterStatus:  cleanField(vars["F44551"]),
		SemesterType:    cleanField(vars["F43551"]),
		ProbationStatus: cleanField(vars["F44151"]),
		UnitsFailed:     parseUnits(vars["F4385"]),
		UnitsDropped:    parseUnits(vars["F4375"]),
		Courses:         courses,
	}
	if id, err := strconv.Atoi(strings.TrimSpace(vars["F43501"])); err == nil {
		record.SemesterID = id
	}

	// T01XML on a semester view holds two summary nodes: the semester's own
	// standing first, the cumulative standing up to it second
	rows := parseRows(extractTable(script, "T01XML"), "N")
	if len(rows) > 0 {
		record.SemesterGPA = parseDecimal(rows[0]["F4360"])
		record.UnitsTaken = parseUnits(rows[0]["F4365"])
		record.UnitsPassed = parseUnits(rows[0]["F4370"])
	}
	if len(rows) > 1 {
		record.CumulativeGPA = parseDecimal(rows[1]["F4360"])
		record.CumulativeUnitsPassed = parseUnits(rows[1]["F4370"])
	}

	record.SemesterGPA = gpaWithFallback(record.SemesterGPA, courses)
	return record, nil
}

func assembleCourses(payload string) []CourseEnrollment {
	var courses []CourseEnrollment
	for _, row := range parseRows(payload, "N") {
		code := strings.TrimSpace(row["F5560"])
		group := strings.TrimSpace(row["F5565"])
		if code == "" {
			continue
		}
		if group != "" {
			code = code + "_" + group
		}
		courses = append(courses, CourseEnrollment{
			CourseCode:  code,
			CourseName:  cleanField(row["F0200"]),
			CourseUnits: parseUnits(row["F0205"]),
			CourseType:  cleanField(row["F3952"]),
			GradeState:  cleanField(row["F3965"]),
			Grade:       parseDecimal(row["F3945"]),
		})
	}
	return courses
}

// gpaWithFallback returns the reported gpa unless the portal reported an
// exact zero while graded courses exist. old semesters predating a portal
// migration show that zero, the credit-weighted mean of the graded courses
// stands in for it.
func gpaWithFallback(reported *float64, courses []CourseEnrollment) *float64 {
	if reported == nil || *reported != 0 {
		return reported
	}

	var weighted, units float64
	for _, course := range courses {
		if course.Grade == nil {
			continue
		}
		weighted += *course.Grade * course.CourseUnits
		units += course.CourseUnits
	}
	if units == 0 {
		return reported
	}
	mean := round2(weighted / units)
	return &mean
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// parseDecimal reads a portal decimal, tolerating the persian comma
// separator. blank fields mean "not reported" and map to nil.
func parseDecimal(raw string) *float64 {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseUnits is parseDecimal for fields where blank means zero.
func parseUnits(raw string) float64 {
	if v := parseDecimal(raw); v != nil {
		return *v
	}
	return 0
}

func parseCount(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}

func cleanField(raw string) string {
	return textutil.CollapseWhitespace(textutil.NormalizePersian(raw))
}
