package golestan

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
)

// FetchStudentRecord logs in and assembles the complete academic record of
// the authenticated student: identity, overall standing and one record per
// listed semester with its course enrollments, ordered oldest first.
//
// the portal serializes the whole conversation through tickets and a
// sequence cookie, so everything here is strictly sequential. one failed
// step fails the whole call, no partial record is returned.
func (c *Client) FetchStudentRecord(ctx context.Context, username, password string) (*Student, error) {
	ctx, span := tracer.Start(ctx, "client:FetchStudentRecord")
	defer span.End()

	if err := c.Authenticate(ctx, username, password); err != nil {
		span.SetStatus(codes.Error, "authentication failed")
		return nil, err
	}

	summaryPage, state, semesterIds, err := c.fetchStudentSummary(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "student summary failed")
		return nil, err
	}
	student, err := assembleStudent(summaryPage)
	if err != nil {
		return nil, err
	}
	// the page itself never repeats the student number
	student.StudentID = c.session.username

	for _, id := range semesterIds {
		record, next, err := c.fetchSemester(ctx, id, state)
		if err != nil {
			span.SetStatus(codes.Error, "semester fetch failed")
			return nil, err
		}
		state = next
		if record == nil {
			// listed but never populated, happens for withdrawn terms
			slog.WarnContext(ctx, "skipping empty semester view", "semester", id)
			continue
		}
		student.Semesters = append(student.Semesters, *record)
	}

	slog.InfoContext(
		ctx, "assembled student record",
		"student", student.StudentID,
		"semesters", len(student.Semesters),
	)
	return student, nil
}
