package golestan

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/codes"
)

const (
	reportPath  = "/Forms/F0202_PROCESS_REP_FILTER/F0202_01_PROCESS_REP_FILTER_DAT.ASPX"
	reportLastm = "20230828062456"
)

// report 102 filter parameters, captured from the portal's own requests.
// the N ids are positional filter slots, only the F1/T1 range of slot 6
// (offering availability, 1 or 0) varies between runs.
const reportPriParams = `<Root><N UQID="48" id="4" F="" T=""/><N UQID="50" id="8" F="" T=""/><N UQID="52" id="12" F="" T=""/><N UQID="62" id="16" F="" T=""/><N UQID="14" id="18" F="" T=""/><N UQID="16" id="20" F="" T=""/><N UQID="18" id="22" F="" T=""/><N UQID="20" id="24" F="" T=""/><N UQID="22" id="26" F="" T=""/></Root>`

const reportPubParamsTemplate = `<Root><N id="4" F1="4041" T1="4041" F2="" T2="" A="" S="" Q="" B=""/><N id="5" F1="10" T1="10" F2="" T2="" A="0" S="1" Q="1" B="B"/><N id="6" F1="%d" T1="%d" F2="" T2="" A="" S="" Q="" B=""/><N id="12" F1="" T1="" F2="" T2="" A="0" S="1" Q="2" B="B"/><N id="16" F1="" T1="" F2="" T2="" A="0" S="1" Q="3" B="B"/><N id="22" F1="" T1="" F2="" T2="" A="" S="" Q="6" B="S"/><N id="24" F1="" T1="" F2="" T2="" A="" S="" Q="7" B="S"/><N id="30" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="32" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="36" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="38" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="40" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="44" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="45" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="46" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="48" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="52" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="56" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="64" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="68" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="99" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="100" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="101" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="103" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="104" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="105" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="107" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/><N id="112" F1="" T1="" F2="" T2="" A="" S="" Q="" B=""/></Root>`

func reportFormPayload(state FormState, action, ticket string) map[string]string {
	return map[string]string{
		"__VIEWSTATE":          state.ViewState,
		"__VIEWSTATEGENERATOR": state.ViewStateGenerator,
		"__EVENTVALIDATION":    state.EventValidation,
		"Fm_Action":            action,
		"Frm_Type":             "", "Frm_No": "", "F_ID": "",
		"XmlPriPrm": "", "XmlPubPrm": "", "XmlMoredi": "",
		"F9999": "", "HelpCode": "",
		"Ref1": "", "Ref2": "", "Ref3": "", "Ref4": "", "Ref5": "",
		"NameH": "", "FacNoH": "", "GrpNoH": "",
		"TicketTextBox": ticket,
		"RepSrc":        "", "ShowError": "",
		"TxtMiddle": "<r/>", "tbExcel": "", "txtuqid": "", "ex": "",
	}
}

// OfferingStatus selects which side of the course offering report to fetch.
type OfferingStatus string

const (
	OfferingAvailable   OfferingStatus = "available"
	OfferingUnavailable OfferingStatus = "unavailable"
	OfferingBoth        OfferingStatus = "both"
)

// CourseCatalog groups the offering report by faculty, then department.
type CourseCatalog struct {
	Available   map[string]map[string][]CatalogCourse `json:"available,omitempty"`
	Unavailable map[string]map[string][]CatalogCourse `json:"unavailable,omitempty"`
}

// FetchCourseCatalog navigates from the menu into report 102 (course
// offerings) and runs it, once per requested availability side. the client
// must already be authenticated; the report consumes the menu ticket, so a
// catalog fetch and a student record fetch need separate sessions.
func (c *Client) FetchCourseCatalog(ctx context.Context, status OfferingStatus) (*CourseCatalog, error) {
	ctx, span := tracer.Start(ctx, "client:FetchCourseCatalog")
	defer span.End()

	if status == "" {
		status = OfferingBoth
	}

	err := c.setCookies([]cookiePair{
		{"ASP.NET_SessionId", c.session.sessionId},
		{"f", "11130"}, {"ft", "0"}, {"lt", c.session.loginToken},
		{"seq", fmt.Sprint(c.session.seq)},
		{"su", "3"}, {"u", c.session.userToken},
	})
	if err != nil {
		return nil, err
	}

	c.session.nonce = newNonce()
	getUrl := c.absUrl(fmt.Sprintf(
		"%s?r=%s&fid=1;102&b=10&l=1&tck=%s&&lastm=%s",
		reportPath, c.session.nonce, c.session.ticket, reportLastm,
	))
	page, err := c.get(ctx, getUrl)
	if err != nil {
		return nil, err
	}
	state, err := ExtractFormState(page)
	if err != nil {
		span.SetStatus(codes.Error, "report filter form carried no form state")
		return nil, err
	}
	// the report area introduces its own rotating cookie
	reportToken := c.cookieValue("ctck")

	c.session.seq++
	err = c.setReportCookies(reportToken, "3")
	if err != nil {
		return nil, err
	}

	postUrl := c.absUrl(fmt.Sprintf(
		"%s?r=%s&fid=1%%3b102&b=10&l=1&tck=%s&&lastm=%s",
		reportPath, c.session.nonce, c.session.ticket, reportLastm,
	))
	page, err = c.postForm(ctx, postUrl, reportFormPayload(state, "00", state.Ticket))
	if err != nil {
		return nil, err
	}
	state, err = ExtractFormState(page)
	if err != nil {
		span.SetStatus(codes.Error, "report dashboard carried no form state")
		return nil, err
	}

	catalog := &CourseCatalog{}

	if status == OfferingAvailable || status == OfferingBoth {
		err = c.setReportCookies(reportToken, "0")
		if err != nil {
			return nil, err
		}
		page, err = c.runReport(ctx, postUrl, state, 1)
		if err != nil {
			return nil, err
		}
		catalog.Available = parseCatalogRows(parseRows(extractXmlDat(string(page)), "row"))

		state, err = ExtractFormState(page)
		if err != nil {
			return nil, err
		}
		reportToken = c.cookieValue("ctck")
	}

	if status == OfferingUnavailable || status == OfferingBoth {
		err = c.setReportCookies(reportToken, "0")
		if err != nil {
			return nil, err
		}
		page, err = c.runReport(ctx, postUrl, state, 0)
		if err != nil {
			return nil, err
		}
		catalog.Unavailable = parseCatalogRows(parseRows(extractXmlDat(string(page)), "row"))
	}

	return catalog, nil
}

func (c *Client) setReportCookies(reportToken, su string) error {
	return c.setCookies([]cookiePair{
		{"ASP.NET_SessionId", c.session.sessionId},
		{"ctck", reportToken}, {"f", "102"}, {"ft", "1"},
		{"lt", c.session.loginToken},
		{"seq", fmt.Sprint(c.session.seq)},
		{"stdno", ""},
		{"su", su}, {"u", c.session.userToken},
	})
}

// runReport submits the filter form with the given availability flag and
// returns the response page, whose xmlDat payload carries the result rows.
func (c *Client) runReport(ctx context.Context, postUrl string, state FormState, availability int) ([]byte, error) {
	form := reportFormPayload(state, "09", state.Ticket)
	form["XmlPriPrm"] = reportPriParams
	form["XmlPubPrm"] = fmt.Sprintf(reportPubParamsTemplate, availability, availability)
	form["XmlMoredi"] = "<Root/>"
	return c.postForm(ctx, postUrl, form)
}
