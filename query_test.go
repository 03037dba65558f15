package newsbrief

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// TestQuery_Defaults verifies optional fields are filled
func TestQuery_Defaults(t *testing.T) {
	q := Query{DateFrom: day("2024-01-15")}.WithDefaults()

	assert.Equal(t, day("2024-01-15"), q.DateTo, "end date should default to start date")
	assert.Equal(t, "all", q.EntityLanguage)
	assert.Equal(t, "en", q.Language)
}

// TestQuery_URL verifies all parameters are encoded
func TestQuery_URL(t *testing.T) {
	q := Query{
		DateFrom:       day("2024-01-15"),
		DateTo:         day("2024-01-17"),
		EntityLanguage: "de",
		Language:       "fr",
	}

	raw, err := q.URL("https://emm.newsbrief.eu/NewsBrief/dynamic", 3)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "emm.newsbrief.eu", u.Host)
	assert.Equal(t, "/NewsBrief/dynamic", u.Path)

	params := u.Query()
	assert.Equal(t, "fr", params.Get("language"))
	assert.Equal(t, "3", params.Get("page"))
	assert.Equal(t, "searcharticles", params.Get("edition"))
	assert.Equal(t, "advanced", params.Get("option"))
	assert.Equal(t, "2024-01-15", params.Get("dateFrom"))
	assert.Equal(t, "2024-01-17", params.Get("dateTo"))
	assert.Equal(t, "de", params.Get("lang"))
}

// TestQuery_URLKeepsBaseParams verifies existing query parameters survive
func TestQuery_URLKeepsBaseParams(t *testing.T) {
	raw, err := NewQuery(day("2024-01-15"), "en").URL("http://localhost:8080/search?token=abc", 1)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc", u.Query().Get("token"))
	assert.Equal(t, "2024-01-15", u.Query().Get("dateTo"))
}

// TestQuery_URLInvalidBase verifies an unparsable base is an error
func TestQuery_URLInvalidBase(t *testing.T) {
	_, err := NewQuery(day("2024-01-15"), "en").URL("http://[::1", 1)
	assert.Error(t, err)
}

// TestQuery_Validate verifies query validation
func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		ok    bool
	}{
		{"single day", NewQuery(day("2024-01-15"), "en"), true},
		{"range", Query{DateFrom: day("2024-01-15"), DateTo: day("2024-01-20")}, true},
		{"missing date", Query{Language: "en"}, false},
		{"reversed range", Query{DateFrom: day("2024-01-15"), DateTo: day("2024-01-10")}, false},
		{"bad language", Query{DateFrom: day("2024-01-15"), Language: "e/n"}, false},
		{"bad entity language", Query{DateFrom: day("2024-01-15"), EntityLanguage: "1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidQuery)
			}
		})
	}
}

// TestQuery_DateLabel verifies single dates and ranges
func TestQuery_DateLabel(t *testing.T) {
	assert.Equal(t, "2024-01-15", NewQuery(day("2024-01-15"), "en").DateLabel())
	assert.Equal(t, "2024-01-15_2024-01-17",
		Query{DateFrom: day("2024-01-15"), DateTo: day("2024-01-17")}.DateLabel())
}
