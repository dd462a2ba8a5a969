package golestan

import (
	"context"
	"testing"
	"time"

	"golestan-backend/lib/scrapers/golestan/golestantest"
	"golestan-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

var testConfig = golestantest.Config{
	Username: "40123456",
	Password: "hunter2",
	Captcha:  "a8k2p",
	Student: golestantest.StudentFixture{
		Name:                   "شایان شاه محمدی",
		FatherName:             "محمد",
		Faculty:                "فنی و مهندسی",
		Department:             "مهندسی کامپیوتر",
		Major:                  "مهندسی کامپیوتر",
		DegreeLevel:            "کارشناسی",
		StudyType:              "روزانه",
		EnrollmentStatus:       "مشغول به تحصیل",
		RegistrationPermission: true,
		OverallGPA:             "17.25",
		TotalUnitsPassed:       "36.0",
		TotalProbation:         "0",
		ConsecutiveProbation:   "0",
		SpecialProbation:       "0",
		PhotoBase64:            "aGVsbG8=",
	},
	Semesters: []golestantest.SemesterFixture{
		{
			Id:                    4021,
			Description:           "نیمسال اول سال تحصیلی 02-03",
			GPA:                   "16.50",
			UnitsTaken:            "18.0",
			UnitsPassed:           "18.0",
			UnitsFailed:           "0",
			UnitsDropped:          "0",
			CumulativeGPA:         "16.50",
			CumulativeUnitsPassed: "18.0",
			Status:                "عادی",
			Type:                  "عادی",
			Courses: []golestantest.CourseFixture{
				{Code: "1214002", Group: "01", Name: "ریاضی عمومی", Units: "3.0", Type: "پایه", State: "قطعی", Grade: "18.5"},
				{Code: "1115056", Group: "02", Name: "فیزیک", Units: "3.0", Type: "پایه", State: "قطعی", Grade: "14.0"},
			},
		},
		{Id: 4015, Empty: true},
		{
			Id:                    4022,
			Description:           "نیمسال دوم سال تحصیلی 02-03",
			GPA:                   "18.00",
			UnitsTaken:            "18.0",
			UnitsPassed:           "18.0",
			UnitsFailed:           "0",
			UnitsDropped:          "0",
			CumulativeGPA:         "17.25",
			CumulativeUnitsPassed: "36.0",
			Status:                "عادی",
			Type:                  "عادی",
			Courses: []golestantest.CourseFixture{
				{Code: "1117003", Group: "01", Name: "برنامه سازی پیشرفته", Units: "3.0", Type: "اصلی", State: "ثبت نشده", Grade: ""},
			},
		},
	},
}

func solveAlways(text string) CaptchaSolver {
	return CaptchaSolverFunc(func(ctx context.Context, image []byte) (string, error) {
		return text, nil
	})
}

func newTestClient(t *testing.T, portal *golestantest.Portal, solver CaptchaSolver) *Client {
	client, err := NewClient(ClientOptions{
		BaseUrl: portal.BaseUrl(),
		Solver:  solver,
	})
	require.NoError(t, err)
	return client
}

func TestFetchStudentRecord(t *testing.T) {
	telemetry.SetupForTesting(t, "scrapers/golestan")
	portal := golestantest.New(t, testConfig)
	client := newTestClient(t, portal, solveAlways(testConfig.Captcha))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	student, err := client.FetchStudentRecord(ctx, testConfig.Username, testConfig.Password)
	require.NoError(t, err)
	require.Empty(t, portal.Violations)

	gpa1, gpa2 := 16.5, 18.0
	cum1, cum2 := 16.5, 17.25
	grade1, grade2 := 18.5, 14.0
	overall := 17.25
	expected := &Student{
		StudentID:              testConfig.Username,
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
		TotalUnitsPassed:       36,
		PhotoBase64:            "aGVsbG8=",
		Semesters: []SemesterRecord{
			{
				SemesterID:            4021,
				Description:           "نیمسال اول سال تحصیلی 02-03",
				SemesterGPA:           &gpa1,
				UnitsTaken:            18,
				UnitsPassed:           18,
				CumulativeGPA:         &cum1,
				CumulativeUnitsPassed: 18,
				SemesterStatus:        "عادی",
				SemesterType:          "عادی",
				Courses: []CourseEnrollment{
					{CourseCode: "1214002_01", CourseName: "ریاضی عمومی", CourseUnits: 3, CourseType: "پایه", GradeState: "قطعی", Grade: &grade1},
					{CourseCode: "1115056_02", CourseName: "فیزیک", CourseUnits: 3, CourseType: "پایه", GradeState: "قطعی", Grade: &grade2},
				},
			},
			{
				SemesterID:            4022,
				Description:           "نیمسال دوم سال تحصیلی 02-03",
				SemesterGPA:           &gpa2,
				UnitsTaken:            18,
				UnitsPassed:           18,
				CumulativeGPA:         &cum2,
				CumulativeUnitsPassed: 36,
				SemesterStatus:        "عادی",
				SemesterType:          "عادی",
				Courses: []CourseEnrollment{
					{CourseCode: "1117003_01", CourseName: "برنامه سازی پیشرفته", CourseUnits: 3, CourseType: "اصلی", GradeState: "ثبت نشده"},
				},
			},
		},
	}
	diff := cmp.Diff(expected, student, cmpopts.IgnoreFields(Student{}, "FetchedAt"))
	if diff != "" {
		t.Fatal(diff)
	}
	// the listed but empty semester is skipped, not materialized
	require.Len(t, student.Semesters, 2)
}

func TestAuthenticateRetriesRejectedCaptchas(t *testing.T) {
	telemetry.SetupForTesting(t, "scrapers/golestan")
	cfg := testConfig
	cfg.RejectLogins = 2
	portal := golestantest.New(t, cfg)

	solves := 0
	solver := CaptchaSolverFunc(func(ctx context.Context, image []byte) (string, error) {
		solves++
		return cfg.Captcha, nil
	})
	client := newTestClient(t, portal, solver)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	err := client.Authenticate(ctx, cfg.Username, cfg.Password)
	require.NoError(t, err)
	require.Equal(t, 3, solves)
	require.Equal(t, 3, portal.LoginAttempts)
	require.Empty(t, portal.Violations)
}

func TestAuthenticateSkipsEmptySolverResults(t *testing.T) {
	telemetry.SetupForTesting(t, "scrapers/golestan")
	portal := golestantest.New(t, testConfig)

	solves := 0
	solver := CaptchaSolverFunc(func(ctx context.Context, image []byte) (string, error) {
		solves++
		if solves < 3 {
			return "", nil
		}
		return testConfig.Captcha, nil
	})
	client := newTestClient(t, portal, solver)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	err := client.Authenticate(ctx, testConfig.Username, testConfig.Password)
	require.NoError(t, err)
	// an empty solve burns an attempt without ever reaching the portal
	require.Equal(t, 3, portal.CaptchasServed)
	require.Equal(t, 1, portal.LoginAttempts)
}

func TestAuthenticateExhaustsAttempts(t *testing.T) {
	telemetry.SetupForTesting(t, "scrapers/golestan")
	portal := golestantest.New(t, testConfig)
	client := newTestClient(t, portal, solveAlways("wrong"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	err := client.Authenticate(ctx, testConfig.Username, testConfig.Password)
	require.Error(t, err)
	require.Equal(t, CategoryLoginFailed, CategoryOf(err))
	require.Equal(t, defaultMaxLoginAttempts, portal.LoginAttempts)
}

func TestSemesterStateChaining(t *testing.T) {
	telemetry.SetupForTesting(t, "scrapers/golestan")
	portal := golestantest.New(t, testConfig)
	client := newTestClient(t, portal, solveAlways(testConfig.Captcha))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	err := client.Authenticate(ctx, testConfig.Username, testConfig.Password)
	require.NoError(t, err)

	_, state, ids, err := client.fetchStudentSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, []int{4021, 4015, 4022}, ids)

	first, next, err := client.fetchSemester(ctx, 4021, state)
	require.NoError(t, err)
	require.NotNil(t, first)

	// replaying the pre-selection state instead of chaining desequences
	// the session, which the portal signals only by dropping the form
	_, _, err = client.fetchSemester(ctx, 4022, state)
	require.Error(t, err)
	require.Equal(t, CategoryMissingFormState, CategoryOf(err))
	require.NotEmpty(t, portal.Violations)

	// the correctly threaded state still works
	second, _, err := client.fetchSemester(ctx, 4022, next)
	require.NoError(t, err)
	require.NotNil(t, second)
	require.Equal(t, 4022, second.SemesterID)
}

func TestFetchCourseCatalog(t *testing.T) {
	telemetry.SetupForTesting(t, "scrapers/golestan")
	cfg := testConfig
	cfg.AvailableXmlDat = `<Root><row B4="فنی و مهندسی" B6="مهندسی کامپیوتر" C1="1117003_01" C2="برنامه سازی پیشرفته" C3="3" C7="40" C10="مختلط" C11="حسینی"/></Root>`
	cfg.UnavailableXmlDat = `<Root><row B4="فنی و مهندسی" B6="مهندسی کامپیوتر" C1="1117099_01" C2="درس حذف شده" C3="2" C7="0" C10="مختلط" C11=""/></Root>`
	portal := golestantest.New(t, cfg)
	client := newTestClient(t, portal, solveAlways(cfg.Captcha))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	err := client.Authenticate(ctx, cfg.Username, cfg.Password)
	require.NoError(t, err)

	catalog, err := client.FetchCourseCatalog(ctx, OfferingBoth)
	require.NoError(t, err)
	require.Empty(t, portal.Violations)

	available := catalog.Available["فنی و مهندسی"]["مهندسی کامپیوتر"]
	require.Len(t, available, 1)
	require.Equal(t, "1117003_01", available[0].Code)
	require.Equal(t, "حسینی", available[0].Instructor)

	unavailable := catalog.Unavailable["فنی و مهندسی"]["مهندسی کامپیوتر"]
	require.Len(t, unavailable, 1)
	require.Equal(t, "درس حذف شده", unavailable[0].Name)
	require.Equal(t, defaultInstructor, unavailable[0].Instructor)
}
