package golestan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDay(t *testing.T) {
	cases := []struct {
		raw      string
		expected string
	}{
		{"شنبه", "شنبه"},
		{"یکشنبه", "یکشنبه"},
		{"يك شنبه", "یکشنبه"},
		{"دو شنبه", "دوشنبه"},
		{"سه شنبه", "سه‌شنبه"},
		{"سه‌شنبه", "سه‌شنبه"},
		{"چهار شنبه", "چهارشنبه"},
		{"پنج شنبه", "پنج‌شنبه"},
		{"جمعه", "جمعه"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, normalizeDay(test.raw), "raw: %q", test.raw)
	}
}

func TestParseSchedule(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		expected []ScheduleEntry
	}{
		{
			name: "theory and practice blocks with locations",
			raw:  `درس(ت): دو شنبه 10:00-12:00 مکان: كلاس 101، درس(ع): سه شنبه 08:00-10:00 ف مکان: آزمايشگاه`,
			expected: []ScheduleEntry{
				{Day: "دوشنبه", Start: "10:00", End: "12:00", Location: "کلاس 101"},
				{Day: "سه‌شنبه", Start: "08:00", End: "10:00", Parity: "ف", Location: "آزمایشگاه"},
			},
		},
		{
			name: "two meetings sharing one block and location",
			raw:  `درس(ت): شنبه 14:00-16:00 ز چهار شنبه 14:00-16:00 مکان: تالار 2`,
			expected: []ScheduleEntry{
				{Day: "شنبه", Start: "14:00", End: "16:00", Parity: "ز", Location: "تالار 2"},
				{Day: "چهارشنبه", Start: "14:00", End: "16:00", Location: "تالار 2"},
			},
		},
		{
			name: "no location",
			raw:  `درس(ت): جمعه 08:00-09:30`,
			expected: []ScheduleEntry{
				{Day: "جمعه", Start: "08:00", End: "09:30"},
			},
		},
		{
			name:     "blank cell",
			raw:      "  ",
			expected: nil,
		},
		{
			name:     "text without any meeting",
			raw:      `درس(ت): اعلام نشده`,
			expected: nil,
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			if diff := cmp.Diff(test.expected, parseSchedule(test.raw)); diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestParseConditions(t *testing.T) {
	cases := []struct {
		c15      string
		c16      string
		expected string
	}{
		// the no-effect marker drops the second cell and the dangling
		// separator of the first
		{"رشته هاي مجاز: كامپيوتر، ", "بي اثر", "رشته های مجاز: کامپیوتر"},
		{"رشته هاي مجاز: كامپيوتر، ", "ورودي 1403", "رشته های مجاز: کامپیوتر، ورودی 1403"},
		{"", "", ""},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, parseConditions(test.c15, test.c16))
	}
}

func TestParseExamTime(t *testing.T) {
	require.Equal(
		t, "1403/10/25 - 08:30-10:30",
		parseExamTime(`تاريخ: 1403/10/25 ساعت: 08:30-10:30`),
	)
	require.Equal(t, "", parseExamTime("اعلام نشده"))
}

func TestParseCatalogRows(t *testing.T) {
	payload := `<Root>` +
		`<row B4="فني و مهندسي" B6="مهندسي كامپيوتر" C1="1214002_01" C2="رياضي عمومي" C3="&lt;B&gt;3&lt;/B&gt;" C7="40" C10="مختلط" C11="حسيني&lt;BR&gt;" C12="درس(ت): دو شنبه 10:00-12:00 مکان: كلاس 101" C13="تاريخ: 1403/10/25 ساعت: 08:30-10:30" C15="" C16="" C25="توضيحات&lt;BR&gt;"/>` +
		`<row B4="فني و مهندسي" B6="مهندسي كامپيوتر" C1="1115056_02" C2="فيزيك" C3="3" C7="35" C10="مرد" C11="" C12="" C13="" C15="" C16="" C25=""/>` +
		`</Root>`

	rows := parseRows(payload, "row")
	require.Len(t, rows, 2)
	catalog := parseCatalogRows(rows)

	courses := catalog["فنی و مهندسی"]["مهندسی کامپیوتر"]
	require.Len(t, courses, 2)

	first := courses[0]
	require.Equal(t, "1214002_01", first.Code)
	require.Equal(t, "ریاضی عمومی", first.Name)
	require.Equal(t, 3, first.Credits)
	require.Equal(t, "40", first.Capacity)
	require.Equal(t, "مختلط", first.Gender)
	require.Equal(t, "حسینی", first.Instructor)
	require.Equal(t, "توضیحات", first.Description)
	require.Equal(t, "1403/10/25 - 08:30-10:30", first.ExamTime)
	require.Len(t, first.Schedule, 1)

	second := courses[1]
	require.Equal(t, defaultInstructor, second.Instructor)
	require.Nil(t, second.Schedule)
	require.Equal(t, "", second.ExamTime)
}
