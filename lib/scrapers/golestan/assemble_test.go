package golestan

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func summaryFixture(extraVars string) []byte {
	return []byte(fmt.Sprintf(`<html><body>
<script id="clientEventHandlersJS">
var F51851 = 'شايان شاه محمدي';
var F34501 = 'محمد';
var F61151 = 'فنی و مهندسی';
var F16451 = 'مهندسی کامپیوتر';
var F17551 = 'مهندسي كامپيوتر';
var F41301 = 'کارشناسی';
var F41351 = 'روزانه';
var F43301 = 'مشغول به تحصیل';
var F42251 = 'دارد';
var F41701 = '17.25';
var F41801 = '98.0';
var F42401 = '1';
var F42451 = '0';
var F42371 = '';
var F15871 = 'data:image/jpeg;base64,aGVsbG8=';
var T01XML = '<r><N F4350="4021"/><N F4350="4022"/><N F4350="4021"/></r>';
%s
</script>
</body></html>`, extraVars))
}

func TestAssembleStudent(t *testing.T) {
	student, err := assembleStudent(summaryFixture(""))
	require.NoError(t, err)

	overall := 17.25
	expected := &Student{
		Name:                   "شایان شاه محمدی",
		FatherName:             "محمد",
		Faculty:                "فنی و مهندسی",
		Department:             "مهندسی کامپیوتر",
		Major:                  "مهندسی کامپیوتر",
		DegreeLevel:            "کارشناسی",
		StudyType:              "روزانه",
		EnrollmentStatus:       "مشغول به تحصیل",
		RegistrationPermission: true,
		OverallGPA:             &overall,
		TotalUnitsPassed:       98,
		TotalProbation:         1,
		ConsecutiveProbation:   0,
		SpecialProbation:       0,
		PhotoBase64:            "aGVsbG8=",
	}
	diff := cmp.Diff(expected, student, cmpopts.IgnoreFields(Student{}, "FetchedAt"))
	if diff != "" {
		t.Fatal(diff)
	}
	require.False(t, student.FetchedAt.IsZero())
}

func TestAssembleStudentWithoutDataScript(t *testing.T) {
	_, err := assembleStudent([]byte(`<html><body>no active session</body></html>`))
	require.Error(t, err)
	require.Equal(t, CategoryMissingFormState, CategoryOf(err))
}

func TestSemesterIdsFromSummary(t *testing.T) {
	// duplicates collapse, listed order is preserved
	require.Equal(t, []int{4021, 4022}, semesterIdsFromSummary(summaryFixture("")))
	require.Nil(t, semesterIdsFromSummary([]byte(`<html></html>`)))
}

func semesterFixture(vars string) []byte {
	return []byte(fmt.Sprintf(`<html><body>
<script id="clientEventHandlersJS">
%s
</script>
</body></html>`, vars))
}

func TestAssembleSemester(t *testing.T) {
	page := semesterFixture(`
var F43501 = '4022';
var F57551 = 'نيمسال دوم سال تحصيلي 02-03';
var F44551 = 'مشروط';
var F43551 = 'عادی';
var F44151 = 'مشروط';
var F4385 = '3.0';
var F4375 = '2.0';
var T01XML = '<r><N F4360="14.50" F4365="18.0" F4370="13.0"/><N F4360="16.10" F4370="45.0"/></r>';
var T02XML = '<r><N F5560="1214002" F5565="01" F0200="رياضي عمومي" F0205="3.0" F3952="اصلی" F3965="قطعی" F3945="18.5"/><N F5560="1115056" F5565="02" F0200="فيزيك" F0205="3.0" F3952="پایه" F3965="ثبت نشده" F3945=""/></r>';
`)

	record, err := assembleSemester(page, 4022)
	require.NoError(t, err)
	require.NotNil(t, record)

	gpa := 14.5
	cumGpa := 16.1
	grade := 18.5
	expected := &SemesterRecord{
		SemesterID:            4022,
		Description:           "نیمسال دوم سال تحصیلی 02-03",
		SemesterGPA:           &gpa,
		UnitsTaken:            18,
		UnitsPassed:           13,
		UnitsFailed:           3,
		UnitsDropped:          2,
		CumulativeGPA:         &cumGpa,
		CumulativeUnitsPassed: 45,
		SemesterStatus:        "مشروط",
		SemesterType:          "عادی",
		ProbationStatus:       "مشروط",
		Courses: []CourseEnrollment{
			{
				CourseCode:  "1214002_01",
				CourseName:  "ریاضی عمومی",
				CourseUnits: 3,
				CourseType:  "اصلی",
				GradeState:  "قطعی",
				Grade:       &grade,
			},
			{
				CourseCode:  "1115056_02",
				CourseName:  "فیزیک",
				CourseUnits: 3,
				CourseType:  "پایه",
				GradeState:  "ثبت نشده",
				Grade:       nil,
			},
		},
	}
	if diff := cmp.Diff(expected, record); diff != "" {
		t.Fatal(diff)
	}
}

func TestAssembleSemesterEmptyView(t *testing.T) {
	record, err := assembleSemester(semesterFixture(""), 4023)
	require.NoError(t, err)
	require.Nil(t, record)
}

func TestGpaFallback(t *testing.T) {
	zero := 0.0
	reported := 12.75
	graded := func(grade float64, units float64) CourseEnrollment {
		return CourseEnrollment{Grade: &grade, CourseUnits: units}
	}

	cases := []struct {
		name     string
		reported *float64
		courses  []CourseEnrollment
		expected *float64
	}{
		{
			name:     "reported gpa wins",
			reported: &reported,
			courses:  []CourseEnrollment{graded(20, 3)},
			expected: &reported,
		},
		{
			name:     "zero gpa recomputed from graded courses",
			reported: &zero,
			courses: []CourseEnrollment{
				graded(15, 3),
				graded(18, 2),
				{CourseUnits: 3}, // ungraded, excluded
			},
			expected: ptr(16.2),
		},
		{
			name:     "zero gpa with no graded courses stays zero",
			reported: &zero,
			courses:  []CourseEnrollment{{CourseUnits: 3}},
			expected: &zero,
		},
		{
			name:     "unreported gpa is never recomputed",
			reported: nil,
			courses:  []CourseEnrollment{graded(15, 3)},
			expected: nil,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			got := gpaWithFallback(test.reported, test.courses)
			if diff := cmp.Diff(test.expected, got); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func ptr(v float64) *float64 {
	return &v
}

func TestParseDecimal(t *testing.T) {
	require.Nil(t, parseDecimal(""))
	require.Nil(t, parseDecimal("   "))
	require.Nil(t, parseDecimal("n/a"))
	require.Equal(t, 17.25, *parseDecimal("17.25"))
	require.Equal(t, 17.25, *parseDecimal("17,25"))
	require.Equal(t, 0.0, *parseDecimal("0"))
}
