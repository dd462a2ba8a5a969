package golestan

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"
)

// FormState holds the asp.net hidden fields of one rendered page. every
// postback must echo them back verbatim, and nearly every response reissues
// them, so one FormState is only ever valid for the single next request.
type FormState struct {
	ViewState          string
	ViewStateGenerator string
	EventValidation    string
	// navigation ticket, absent on the pages before login.
	Ticket string
}

// ExtractFormState pulls the asp.net state tokens out of a page. all three
// of __VIEWSTATE, __VIEWSTATEGENERATOR and __EVENTVALIDATION are mandatory;
// a page without them is not a form page at all, which means the session
// fell out of the expected navigation sequence.
func ExtractFormState(page []byte) (FormState, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return FormState{}, wrapError(CategoryMissingFormState, "response is not parseable html", err)
	}

	state := FormState{}
	required := []struct {
		name string
		dst  *string
	}{
		{"__VIEWSTATE", &state.ViewState},
		{"__VIEWSTATEGENERATOR", &state.ViewStateGenerator},
		{"__EVENTVALIDATION", &state.EventValidation},
	}
	for _, field := range required {
		sel := doc.Find("input[name=" + field.name + "]")
		if sel.Length() == 0 {
			return FormState{}, newError(CategoryMissingFormState, "page is missing hidden input "+field.name)
		}
		*field.dst = sel.AttrOr("value", "")
	}

	state.Ticket = doc.Find("input[name=TicketTextBox]").AttrOr("value", "")
	return state, nil
}
