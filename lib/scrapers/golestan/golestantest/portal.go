// Package golestantest provides an in-process fake of the university portal
// for exercising the scraper end to end. the fake enforces the same
// sequencing rules the real portal does: one-shot navigation tickets, the
// seq cookie stepping per transition, and captcha-gated login. like the
// real thing, a sequencing violation is never reported as an error, the
// fake just serves a bare page without the hidden form fields.
package golestantest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

type CourseFixture struct {
	Code  string
	Group string
	Name  string
	Units string
	Type  string
	State string
	Grade string
}

type SemesterFixture struct {
	Id          int
	Description string
	// semester standing, rendered into the first summary node
	GPA         string
	UnitsTaken  string
	UnitsPassed string
	// scalar page fields
	UnitsFailed  string
	UnitsDropped string
	// cumulative standing, rendered into the second summary node
	CumulativeGPA         string
	CumulativeUnitsPassed string
	Status                string
	Type                  string
	Probation             string
	Courses               []CourseFixture
	// when set the semester is listed but its view renders empty
	Empty bool
}

type StudentFixture struct {
	Name                   string
	FatherName             string
	Faculty                string
	Department             string
	Major                  string
	DegreeLevel            string
	StudyType              string
	EnrollmentStatus       string
	RegistrationPermission bool
	OverallGPA             string
	TotalUnitsPassed       string
	TotalProbation         string
	ConsecutiveProbation   string
	SpecialProbation       string
	PhotoBase64            string
}

type Config struct {
	Username string
	Password string
	// the only captcha text the portal accepts
	Captcha string
	// number of otherwise-valid login attempts rejected before one may
	// succeed, for exercising the retry loop
	RejectLogins int

	Student   StudentFixture
	Semesters []SemesterFixture

	// raw xmlDat payloads served by the offering report
	AvailableXmlDat   string
	UnavailableXmlDat string
}

// Portal is one fake portal instance. counters and violations are recorded
// under the mutex, read them only after the exercised call returned.
type Portal struct {
	Server *httptest.Server
	cfg    Config

	mu             sync.Mutex
	ticketCounter  int
	lastTicket     string
	loggedIn       bool
	CaptchasServed int
	LoginAttempts  int
	// human-readable notes of every sequencing rule the client broke
	Violations []string
}

func New(t testing.TB, cfg Config) *Portal {
	p := &Portal{cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/_templates/unvarm/unvarm.aspx", p.handleBootstrap)
	mux.HandleFunc("/Forms/AuthenticateUser/AuthUser.aspx", p.handleLogin)
	mux.HandleFunc("/Forms/AuthenticateUser/captcha.aspx", p.handleCaptcha)
	mux.HandleFunc("/Forms/F0213_PROCESS_SYSMENU/F0213_01_PROCESS_SYSMENU_Dat.aspx", p.handleMenu)
	mux.HandleFunc("/Forms/F1802_PROCESS_MNG_STDJAMEHMON/F1802_01_PROCESS_MNG_STDJAMEHMON_Dat.aspx", p.handleSummary)
	mux.HandleFunc("/Forms/F0202_PROCESS_REP_FILTER/F0202_01_PROCESS_REP_FILTER_DAT.ASPX", p.handleReport)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

func (p *Portal) BaseUrl() string {
	return p.Server.URL
}

func (p *Portal) violate(format string, args ...any) {
	p.Violations = append(p.Violations, fmt.Sprintf(format, args...))
}

// nextTicket rotates the navigation ticket. every form page embeds the
// freshly issued ticket and invalidates the previous one.
func (p *Portal) nextTicket() string {
	p.ticketCounter++
	p.lastTicket = fmt.Sprintf("tck-%03d", p.ticketCounter)
	return p.lastTicket
}

func cookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// formPage renders the asp.net hidden-field scaffolding around a body
// fragment. ticket may be "" for the pre-login pages.
func (p *Portal) formPage(w http.ResponseWriter, ticket, body string) {
	n := p.ticketCounter
	fmt.Fprintf(w, `<html><body><form>
<input type="hidden" name="__VIEWSTATE" value="vs-%03d"/>
<input type="hidden" name="__VIEWSTATEGENERATOR" value="gen"/>
<input type="hidden" name="__EVENTVALIDATION" value="ev-%03d"/>
`, n, n)
	if ticket != "" {
		fmt.Fprintf(w, `<input type="hidden" name="TicketTextBox" value="%s"/>`+"\n", ticket)
	}
	fmt.Fprint(w, body)
	fmt.Fprint(w, "</form></body></html>")
}

// barePage is the silent-degradation response: well-formed html without any
// hidden field, exactly what the real portal serves a desequenced session.
func barePage(w http.ResponseWriter) {
	fmt.Fprint(w, "<html><body>no active session</body></html>")
}

func (p *Portal) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "ASP.NET_SessionId", Value: "fake-session", Path: "/"})
	fmt.Fprint(w, "<html><body></body></html>")
}

func (p *Portal) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CaptchasServed++
	w.Header().Set("Content-Type", "image/png")
	fmt.Fprint(w, "png-bytes")
}

func (p *Portal) handleLogin(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.Method == http.MethodGet {
		p.formPage(w, "", "")
		return
	}

	switch r.PostFormValue("Fm_Action") {
	case "00":
		p.formPage(w, "", "")
	case "09":
		p.LoginAttempts++
		middle := r.PostFormValue("TxtMiddle")
		ok := strings.Contains(middle, fmt.Sprintf(`F80351="%s"`, p.cfg.Username)) &&
			strings.Contains(middle, fmt.Sprintf(`F80401="%s"`, p.cfg.Password)) &&
			strings.Contains(middle, fmt.Sprintf(`F51701="%s"`, p.cfg.Captcha))
		if ok && p.LoginAttempts > p.cfg.RejectLogins {
			p.loggedIn = true
			http.SetCookie(w, &http.Cookie{Name: "lt", Value: "login-token", Path: "/"})
			http.SetCookie(w, &http.Cookie{Name: "u", Value: "user-token", Path: "/"})
			p.formPage(w, p.nextTicket(), "")
			return
		}
		p.formPage(w, "", "")
	default:
		barePage(w)
	}
}

func (p *Portal) handleMenu(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loggedIn || cookie(r, "lt") == "" || cookie(r, "u") == "" {
		p.violate("menu request without login cookies")
		barePage(w)
		return
	}

	if r.Method == http.MethodGet {
		if tck := r.URL.Query().Get("tck"); tck != p.lastTicket {
			p.violate("menu get with stale ticket %q", tck)
			barePage(w)
			return
		}
		if seq := cookie(r, "seq"); seq != "1" {
			p.violate("menu get with seq %q", seq)
			barePage(w)
			return
		}
		p.formPage(w, p.nextTicket(), "")
		return
	}

	if tck := r.PostFormValue("TicketTextBox"); tck != p.lastTicket {
		p.violate("menu post with stale ticket %q", tck)
		barePage(w)
		return
	}
	if seq := cookie(r, "seq"); seq != "2" {
		p.violate("menu post with seq %q", seq)
		barePage(w)
		return
	}
	p.formPage(w, p.nextTicket(), "")
}

func (p *Portal) handleSummary(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loggedIn {
		p.violate("summary request before login")
		barePage(w)
		return
	}

	if r.Method == http.MethodGet {
		if tck := r.URL.Query().Get("tck"); tck != p.lastTicket {
			p.violate("summary get with stale ticket %q", tck)
			barePage(w)
			return
		}
		p.formPage(w, p.nextTicket(), "")
		return
	}

	if tck := r.PostFormValue("TicketTextBox"); tck != p.lastTicket {
		p.violate("summary post with stale ticket %q", tck)
		barePage(w)
		return
	}
	if seq := cookie(r, "seq"); seq != "3" {
		p.violate("summary post with seq %q", seq)
		barePage(w)
		return
	}

	switch r.PostFormValue("Fm_Action") {
	case "00":
		p.formPage(w, p.nextTicket(), "")
	case "08":
		middle := r.PostFormValue("TxtMiddle")
		if !strings.Contains(middle, fmt.Sprintf(`F41251="%s"`, p.cfg.Username)) {
			p.violate("summary lookup for unexpected student: %s", middle)
			barePage(w)
			return
		}
		p.formPage(w, p.nextTicket(), p.summaryScript())
	case "80":
		middle := r.PostFormValue("TxtMiddle")
		for _, sem := range p.cfg.Semesters {
			if strings.Contains(middle, fmt.Sprintf(`F43501="%d"`, sem.Id)) {
				p.formPage(w, p.nextTicket(), p.semesterScript(sem))
				return
			}
		}
		p.violate("selection of unknown semester: %s", middle)
		barePage(w)
	default:
		barePage(w)
	}
}

func (p *Portal) handleReport(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loggedIn {
		p.violate("report request before login")
		barePage(w)
		return
	}

	if r.Method == http.MethodGet {
		if tck := r.URL.Query().Get("tck"); tck != p.lastTicket {
			p.violate("report get with stale ticket %q", tck)
			barePage(w)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "ctck", Value: "report-token", Path: "/"})
		p.formPage(w, p.nextTicket(), "")
		return
	}

	if tck := r.PostFormValue("TicketTextBox"); tck != p.lastTicket {
		p.violate("report post with stale ticket %q", tck)
		barePage(w)
		return
	}
	if cookie(r, "ctck") == "" {
		p.violate("report post without ctck cookie")
		barePage(w)
		return
	}

	switch r.PostFormValue("Fm_Action") {
	case "00":
		p.formPage(w, p.nextTicket(), "")
	case "09":
		payload := p.cfg.UnavailableXmlDat
		if strings.Contains(r.PostFormValue("XmlPubPrm"), `id="6" F1="1"`) {
			payload = p.cfg.AvailableXmlDat
		}
		http.SetCookie(w, &http.Cookie{Name: "ctck", Value: "report-token-2", Path: "/"})
		body := fmt.Sprintf("<script>xmlDat = '%s';</script>", payload)
		p.formPage(w, p.nextTicket(), body)
	default:
		barePage(w)
	}
}

func scriptVar(b *strings.Builder, name, value string) {
	fmt.Fprintf(b, "var %s = '%s';\n", name, value)
}

func (p *Portal) summaryScript() string {
	s := p.cfg.Student
	permission := "ندارد"
	if s.RegistrationPermission {
		permission = "دارد"
	}

	var b strings.Builder
	b.WriteString(`<script id="clientEventHandlersJS">` + "\n")
	scriptVar(&b, "F51851", s.Name)
	scriptVar(&b, "F34501", s.FatherName)
	scriptVar(&b, "F61151", s.Faculty)
	scriptVar(&b, "F16451", s.Department)
	scriptVar(&b, "F17551", s.Major)
	scriptVar(&b, "F41301", s.DegreeLevel)
	scriptVar(&b, "F41351", s.StudyType)
	scriptVar(&b, "F43301", s.EnrollmentStatus)
	scriptVar(&b, "F42251", permission)
	scriptVar(&b, "F41701", s.OverallGPA)
	scriptVar(&b, "F41801", s.TotalUnitsPassed)
	scriptVar(&b, "F42401", s.TotalProbation)
	scriptVar(&b, "F42451", s.ConsecutiveProbation)
	scriptVar(&b, "F42371", s.SpecialProbation)
	if s.PhotoBase64 != "" {
		scriptVar(&b, "F15871", "data:image/png;base64,"+s.PhotoBase64)
	}

	var rows strings.Builder
	for _, sem := range p.cfg.Semesters {
		fmt.Fprintf(&rows, `<N F4350="%d"/>`, sem.Id)
	}
	scriptVar(&b, "T01XML", "<r>"+rows.String()+"</r>")
	b.WriteString("</script>")
	return b.String()
}

func (p *Portal) semesterScript(sem SemesterFixture) string {
	var b strings.Builder
	b.WriteString(`<script id="clientEventHandlersJS">` + "\n")
	if sem.Empty {
		// the real portal still renders the script block for a term that
		// was never populated, just without a number or course table
		scriptVar(&b, "F43501", "")
		b.WriteString("</script>")
		return b.String()
	}

	scriptVar(&b, "F43501", fmt.Sprint(sem.Id))
	scriptVar(&b, "F57551", sem.Description)
	scriptVar(&b, "F44551", sem.Status)
	scriptVar(&b, "F43551", sem.Type)
	scriptVar(&b, "F44151", sem.Probation)
	scriptVar(&b, "F4385", sem.UnitsFailed)
	scriptVar(&b, "F4375", sem.UnitsDropped)

	summary := fmt.Sprintf(
		`<r><N F4360="%s" F4365="%s" F4370="%s"/><N F4360="%s" F4370="%s"/></r>`,
		sem.GPA, sem.UnitsTaken, sem.UnitsPassed,
		sem.CumulativeGPA, sem.CumulativeUnitsPassed,
	)
	scriptVar(&b, "T01XML", summary)

	var courses strings.Builder
	courses.WriteString("<r>")
	for _, c := range sem.Courses {
		fmt.Fprintf(
			&courses,
			`<N F5560="%s" F5565="%s" F0200="%s" F0205="%s" F3952="%s" F3965="%s" F3945="%s"/>`,
			c.Code, c.Group, c.Name, c.Units, c.Type, c.State, c.Grade,
		)
	}
	courses.WriteString("</r>")
	scriptVar(&b, "T02XML", courses.String())
	b.WriteString("</script>")
	return b.String()
}
