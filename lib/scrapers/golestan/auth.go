package golestan

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
)

const (
	bootstrapPath = "/_templates/unvarm/unvarm.aspx?typ=1"
	loginPath     = "/Forms/AuthenticateUser/AuthUser.aspx"
	captchaPath   = "/Forms/AuthenticateUser/captcha.aspx"
	menuPath      = "/Forms/F0213_PROCESS_SYSMENU/F0213_01_PROCESS_SYSMENU_Dat.aspx"

	// "last modified" markers the portal expects verbatim in query strings
	loginLastm = "20240303092318"
	menuLastm  = "20240303092316"
)

func loginFormPayload(state FormState, action, txtMiddle string) map[string]string {
	return map[string]string{
		"__VIEWSTATE":          state.ViewState,
		"__VIEWSTATEGENERATOR": state.ViewStateGenerator,
		"__EVENTVALIDATION":    state.EventValidation,
		"TxtMiddle":            txtMiddle,
		"Fm_Action":            action,
		"Frm_Type":             "",
		"Frm_No":               "",
		"TicketTextBox":        "",
	}
}

func navFormPayload(state FormState, action, ticket, txtMiddle string) map[string]string {
	return map[string]string{
		"__VIEWSTATE":          state.ViewState,
		"__VIEWSTATEGENERATOR": state.ViewStateGenerator,
		"__EVENTVALIDATION":    state.EventValidation,
		"Fm_Action":            action,
		"Frm_Type":             "",
		"Frm_No":               "",
		"TicketTextBox":        ticket,
		"XMLStdHlp":            "",
		"TxtMiddle":            txtMiddle,
		"ex":                   "",
	}
}

// Authenticate drives the login handshake: bootstrap, login form, one blank
// postback (the portal only renders the real login form after it), then a
// bounded captcha solve/submit loop, and finally the post-login menu
// postbacks that establish the navigation context.
//
// every step mutates session cookies on the portal side, no step can be
// replayed. transport failures abort immediately; only a wrong or empty
// captcha is retried, up to MaxLoginAttempts times.
func (c *Client) Authenticate(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Authenticate")
	defer span.End()

	c.session = sessionState{seq: 1, username: username}

	// acquire the session affinity cookie
	_, err := c.get(ctx, c.absUrl(bootstrapPath))
	if err != nil {
		span.SetStatus(codes.Error, "bootstrap request failed")
		return err
	}
	c.session.sessionId = c.cookieValue("ASP.NET_SessionId")

	// seed the blank cookies of a clean pre-login session. the portal
	// treats a missing cookie differently from a blank one.
	err = c.setCookies([]cookiePair{
		{"ASP.NET_SessionId", c.session.sessionId},
		{"f", ""}, {"ft", ""}, {"lt", ""},
		{"seq", ""}, {"su", ""}, {"u", ""},
	})
	if err != nil {
		return err
	}

	loginGetUrl := c.absUrl(fmt.Sprintf("%s?fid=0;1&tck=&&&lastm=%s", loginPath, loginLastm))
	loginPostUrl := c.absUrl(fmt.Sprintf("%s?fid=0%%3b1&tck=&&&lastm=%s", loginPath, loginLastm))

	page, err := c.get(ctx, loginGetUrl)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch login page")
		return err
	}
	state, err := ExtractFormState(page)
	if err != nil {
		span.SetStatus(codes.Error, "login page carried no form state")
		return err
	}

	// blank postback, this makes the portal render the real login form
	page, err = c.postForm(ctx, loginPostUrl, loginFormPayload(state, "00", "<r/>"))
	if err != nil {
		return err
	}
	state, err = ExtractFormState(page)
	if err != nil {
		return err
	}

	for attempt := 1; attempt <= c.maxLoginAttempts; attempt++ {
		slog.DebugContext(ctx, "captcha attempt", "n", attempt, "max", c.maxLoginAttempts)

		image, err := c.get(ctx, c.absUrl(captchaPath+"?"+newNonce()))
		if err != nil {
			span.SetStatus(codes.Error, "failed to fetch captcha image")
			return err
		}

		captchaText, err := c.solver.Solve(ctx, image)
		if err != nil {
			slog.WarnContext(ctx, "captcha solver failed", "attempt", attempt, "err", err)
			continue
		}
		if captchaText == "" {
			// per-attempt condition only, recorded but never fatal
			slog.WarnContext(
				ctx, "captcha solver produced no text",
				"attempt", attempt,
				"category", CategoryEmptyCaptchaResult,
			)
			continue
		}

		credentials := fmt.Sprintf(
			`<r F51851="" F80351="%s" F80401="%s" F51701="%s" F83181="1" F51602="" F51803="0" F51601="1"/>`,
			username, password, captchaText,
		)
		page, err = c.postForm(ctx, loginPostUrl, loginFormPayload(state, "09", credentials))
		if err != nil {
			return err
		}

		// lt and u only appear once the portal accepted the login
		lt := c.cookieValue("lt")
		u := c.cookieValue("u")
		if lt != "" && u != "" {
			state, err = ExtractFormState(page)
			if err != nil {
				return err
			}
			c.session.loginToken = lt
			c.session.userToken = u
			c.session.ticket = state.Ticket
			c.session.sessionId = c.cookieValue("ASP.NET_SessionId")
			slog.InfoContext(ctx, "authenticated", "attempt", attempt)
			return c.enterMenu(ctx)
		}

		slog.DebugContext(ctx, "captcha attempt rejected", "attempt", attempt)
		// the rejection response reissues fresh form state for the next try
		state, err = ExtractFormState(page)
		if err != nil {
			return err
		}
	}

	span.SetStatus(codes.Error, "login attempts exhausted")
	return newError(
		CategoryLoginFailed,
		fmt.Sprintf("no successful login after %d captcha attempts", c.maxLoginAttempts),
	)
}

// enterMenu performs the fixed menu GET+POST pair that fully establishes the
// post-login session, and captures the ticket the navigation steps start from.
func (c *Client) enterMenu(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:enterMenu")
	defer span.End()

	err := c.setCookies([]cookiePair{
		{"ASP.NET_SessionId", c.session.sessionId},
		{"f", "1"}, {"ft", "0"}, {"lt", c.session.loginToken},
		{"seq", fmt.Sprint(c.session.seq)}, {"stdno", ""},
		{"su", "0"}, {"u", c.session.userToken},
	})
	if err != nil {
		return err
	}

	c.session.nonce = newNonce()
	getUrl := c.absUrl(fmt.Sprintf(
		"%s?r=%s&fid=0;11130&b=&l=&tck=%s&&lastm=%s",
		menuPath, c.session.nonce, c.session.ticket, menuLastm,
	))
	page, err := c.get(ctx, getUrl)
	if err != nil {
		return err
	}
	state, err := ExtractFormState(page)
	if err != nil {
		span.SetStatus(codes.Error, "menu page carried no form state")
		return err
	}
	ticket := state.Ticket

	c.session.seq++
	err = c.setCookies([]cookiePair{
		{"ASP.NET_SessionId", c.session.sessionId},
		{"f", "11130"}, {"ft", "0"}, {"lt", c.session.loginToken},
		{"seq", fmt.Sprint(c.session.seq)},
		{"su", "3"}, {"u", c.session.userToken},
	})
	if err != nil {
		return err
	}

	postUrl := c.absUrl(fmt.Sprintf(
		"%s?r=%s&fid=0%%3b11130&b=&l=&tck=%s&&lastm=%s",
		menuPath, c.session.nonce, c.session.ticket, menuLastm,
	))
	page, err = c.postForm(ctx, postUrl, navFormPayload(state, "00", ticket, "<r/>"))
	if err != nil {
		return err
	}
	state, err = ExtractFormState(page)
	if err != nil {
		span.SetStatus(codes.Error, "menu postback carried no form state")
		return err
	}
	c.session.ticket = state.Ticket

	return nil
}
