package golestan

import "time"

// Student is the fully assembled academic record returned by
// Client.FetchStudentRecord. it is never published partially: either the
// whole record is produced or the call fails.
type Student struct {
	StudentID              string  `json:"student_id"`
	Name                   string  `json:"name"`
	FatherName             string  `json:"father_name"`
	Faculty                string  `json:"faculty"`
	Department             string  `json:"department"`
	Major                  string  `json:"major"`
	DegreeLevel            string  `json:"degree_level"`
	StudyType              string  `json:"study_type"`
	EnrollmentStatus       string  `json:"enrollment_status"`
	RegistrationPermission bool    `json:"registration_permission"`
	OverallGPA             *float64 `json:"overall_gpa"`
	TotalUnitsPassed       float64 `json:"total_units_passed"`
	TotalProbation         int     `json:"total_probation"`
	ConsecutiveProbation   int     `json:"consecutive_probation"`
	SpecialProbation       int     `json:"special_probation"`

	Semesters []SemesterRecord `json:"semesters"`
	FetchedAt time.Time        `json:"fetched_at"`
	// base64 payload of the student photo, without the data uri prefix
	PhotoBase64 string `json:"photo_b64,omitempty"`
}

type SemesterRecord struct {
	SemesterID  int    `json:"semester_id"`
	Description string `json:"description"`
	// reported by the portal, except when the portal reports zero while
	// graded courses exist, in which case it is recomputed as the
	// credit-weighted mean of graded courses rounded to two decimals.
	SemesterGPA           *float64 `json:"semester_gpa"`
	UnitsTaken            float64  `json:"units_taken"`
	UnitsPassed           float64  `json:"units_passed"`
	UnitsFailed           float64  `json:"units_failed"`
	UnitsDropped          float64  `json:"units_dropped"`
	CumulativeGPA         *float64 `json:"cumulative_gpa"`
	CumulativeUnitsPassed float64  `json:"cumulative_units_passed"`
	SemesterStatus        string   `json:"semester_status,omitempty"`
	SemesterType          string   `json:"semester_type,omitempty"`
	ProbationStatus       string   `json:"probation_status,omitempty"`

	Courses []CourseEnrollment `json:"courses"`
}

type CourseEnrollment struct {
	CourseCode  string   `json:"course_code"`
	CourseName  string   `json:"course_name"`
	CourseUnits float64  `json:"course_units"`
	CourseType  string   `json:"course_type"`
	GradeState  string   `json:"grade_state"`
	Grade       *float64 `json:"grade"`
}

// CatalogCourse is one row of the course offering report.
type CatalogCourse struct {
	Faculty              string          `json:"faculty"`
	Department           string          `json:"department"`
	Code                 string          `json:"code"`
	Name                 string          `json:"name"`
	Credits              int             `json:"credits"`
	Gender               string          `json:"gender"`
	Capacity             string          `json:"capacity"`
	Instructor           string          `json:"instructor"`
	Schedule             []ScheduleEntry `json:"schedule"`
	EnrollmentConditions string          `json:"enrollment_conditions"`
	Description          string          `json:"description"`
	ExamTime             string          `json:"exam_time"`
}

type ScheduleEntry struct {
	Day      string `json:"day"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Parity   string `json:"parity,omitempty"`
	Location string `json:"location,omitempty"`
}
