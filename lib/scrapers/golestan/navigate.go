package golestan

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

const (
	summaryPath  = "/Forms/F1802_PROCESS_MNG_STDJAMEHMON/F1802_01_PROCESS_MNG_STDJAMEHMON_Dat.aspx"
	summaryLastm = "20250906103728"
)

// fetchStudentSummary navigates from the menu into the comprehensive student
// record form and walks it to the summary view. it returns the summary page,
// the form state its last response reissued (the semester fetches chain off
// it) and the semester ids the summary lists, oldest first.
func (c *Client) fetchStudentSummary(ctx context.Context) (page []byte, state FormState, semesterIds []int, err error) {
	ctx, span := tracer.Start(ctx, "client:fetchStudentSummary")
	defer span.End()

	c.session.nonce = newNonce()

	getUrl := c.absUrl(fmt.Sprintf(
		"%s?r=%s&fid=0;12310&b=10&l=1&tck=%s&&lastm=%s",
		summaryPath, c.session.nonce, c.session.ticket, summaryLastm,
	))
	page, err = c.get(ctx, getUrl)
	if err != nil {
		return nil, FormState{}, nil, err
	}
	state, err = ExtractFormState(page)
	if err != nil {
		span.SetStatus(codes.Error, "summary form carried no form state")
		return nil, FormState{}, nil, err
	}

	// the form is open now, the cookie context switches to it for the
	// postbacks that follow
	c.session.seq++
	err = c.setCookies([]cookiePair{
		{"ASP.NET_SessionId", c.session.sessionId},
		{"f", "12310"}, {"ft", "0"}, {"lt", c.session.loginToken},
		{"seq", fmt.Sprint(c.session.seq)},
		{"sno", ""}, {"stdno", ""},
		{"su", "3"}, {"u", c.session.userToken},
	})
	if err != nil {
		return nil, FormState{}, nil, err
	}

	postUrl := c.absUrl(fmt.Sprintf(
		"%s?r=%s&fid=0%%3b12310&b=10&l=1&tck=%s&&lastm=%s",
		summaryPath, c.session.nonce, c.session.ticket, summaryLastm,
	))

	// blank postback first, the form only accepts a lookup after it
	page, err = c.postForm(ctx, postUrl, navFormPayload(state, "00", state.Ticket, "<r/>"))
	if err != nil {
		return nil, FormState{}, nil, err
	}
	state, err = ExtractFormState(page)
	if err != nil {
		return nil, FormState{}, nil, err
	}

	lookup := fmt.Sprintf(`<r F41251="%s" F01951="" F02001=""/>`, c.session.username)
	page, err = c.postForm(ctx, postUrl, navFormPayload(state, "08", state.Ticket, lookup))
	if err != nil {
		return nil, FormState{}, nil, err
	}
	state, err = ExtractFormState(page)
	if err != nil {
		span.SetStatus(codes.Error, "summary lookup carried no form state")
		return nil, FormState{}, nil, err
	}

	semesterIds = semesterIdsFromSummary(page)
	return page, state, semesterIds, nil
}

// fetchSemester selects one semester inside the already-open record form and
// returns its parsed record together with the form state for the next
// selection. selections chain strictly: each one consumes the ticket the
// previous response issued, so semesters can only be fetched sequentially
// and in the order the caller threads the state through.
//
// a nil record with a nil error means the portal rendered an empty semester
// view, which the caller should skip.
func (c *Client) fetchSemester(ctx context.Context, semesterId int, state FormState) (*SemesterRecord, FormState, error) {
	ctx, span := tracer.Start(ctx, "client:fetchSemester")
	defer span.End()

	postUrl := c.absUrl(fmt.Sprintf(
		"%s?r=%s&fid=0%%3b12310&b=10&l=1&tck=%s&&lastm=%s",
		summaryPath, c.session.nonce, c.session.ticket, summaryLastm,
	))

	selection := fmt.Sprintf(
		`<r F41251="%s" F01951="" F02001="" F43501="%d"/>`,
		c.session.username, semesterId,
	)
	page, err := c.postForm(ctx, postUrl, navFormPayload(state, "80", state.Ticket, selection))
	if err != nil {
		return nil, FormState{}, err
	}
	next, err := ExtractFormState(page)
	if err != nil {
		span.SetStatus(codes.Error, "semester view carried no form state")
		return nil, FormState{}, err
	}

	record, err := assembleSemester(page, semesterId)
	if err != nil {
		return nil, FormState{}, err
	}
	return record, next, nil
}
