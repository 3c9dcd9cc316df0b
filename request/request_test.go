package request

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prognoshealth/factsetfunctions/batch"
	"github.com/prognoshealth/factsetfunctions/schema"
)

var companies = schema.New("name", "country", "state", "url")

func testRows() []batch.Row {
	return []batch.Row{
		{Index: 0, Fields: []interface{}{"Tesla Inc.", "US", nil, "www.tesla.com"}},
		{Index: 1, Fields: []interface{}{"AT&T", "US"}},
		{Index: 2, Fields: []interface{}{"Snow \"flake\", Inc", nil, nil, nil, "ignored"}},
	}
}

func TestQuery(t *testing.T) {
	fields := companies.Extract(testRows()[0])

	r := Query("/content/factset-concordance/v1/company-match", fields)

	req, err := r.HTTPRequest(context.Background(), "https://api.factset.com/")
	assert.NoError(t, err)

	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "https://api.factset.com/content/factset-concordance/v1/company-match", r.URL("https://api.factset.com/"))
	assert.Equal(t, "Tesla Inc.", req.URL.Query().Get("name"))
	assert.Equal(t, "US", req.URL.Query().Get("country"))
	assert.Equal(t, "www.tesla.com", req.URL.Query().Get("url"))
	assert.False(t, req.URL.Query().Has("state"))
	assert.Equal(t, "application/json", req.Header.Get("Accept"))
}

func TestQuery_noParams(t *testing.T) {
	r := &QueryRequest{Path: "/p"}

	req, err := r.HTTPRequest(context.Background(), "http://h")
	assert.NoError(t, err)
	assert.Equal(t, "http://h/p", req.URL.String())
}

func TestBody(t *testing.T) {
	r := Body("/content/factset-concordance/v1/company-match", "input", testRows(), companies)

	b, err := r.JSON()
	assert.NoError(t, err)
	assert.Equal(t, `{"input":[{"country":"US","name":"Tesla Inc.","url":"www.tesla.com"},{"country":"US","name":"AT&T"},{"name":"Snow \"flake\", Inc"}]}`, string(b))

	req, err := r.HTTPRequest(context.Background(), "http://h")
	assert.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "application/json;charset=UTF-8", req.Header.Get("Content-Type"))

	sent, err := io.ReadAll(req.Body)
	assert.NoError(t, err)
	assert.Equal(t, b, sent)
}

func TestValues(t *testing.T) {
	rows := []batch.Row{
		{Index: 0, Fields: []interface{}{"FDS-US"}},
		{Index: 1, Fields: []interface{}{nil}},
		{Index: 2, Fields: []interface{}{}},
		{Index: 3, Fields: []interface{}{"AAPL-US", "extra"}},
	}

	r := Values("/content/symbology/v2/factset", "ids", rows)

	b, err := r.JSON()
	assert.NoError(t, err)
	assert.Equal(t, `{"ids":["FDS-US","","","AAPL-US"]}`, string(b))
}

func TestFile(t *testing.T) {
	r := File("/content/factset-concordance/v1/entity-task", "Snowflake_abc", testRows(), companies,
		[]string{"nameColumn", "countryColumn", "stateColumn", "urlColumn"})

	expected := strings.Join([]string{
		"row_number,name,country,state,url",
		`0,"Tesla Inc.","US",,"www.tesla.com"`,
		`1,"AT&T","US"`,
		`2,"Snow ""flake"", Inc",,,`,
	}, "\n")

	assert.Equal(t, expected, r.Contents())
	assert.Equal(t, []FormField{
		{"taskName", "Snowflake_abc"},
		{"nameColumn", "name"},
		{"countryColumn", "country"},
		{"stateColumn", "state"},
		{"urlColumn", "url"},
	}, r.Fields)
}

func TestFile_HTTPRequest(t *testing.T) {
	r := File("/task", "Snowflake_abc", testRows()[:1], companies, []string{"nameColumn"})

	req, err := r.HTTPRequest(context.Background(), "http://h")
	assert.NoError(t, err)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http://h/task", req.URL.String())

	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	assert.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)

	form, err := multipart.NewReader(req.Body, params["boundary"]).ReadForm(1 << 20)
	assert.NoError(t, err)

	assert.Equal(t, []string{"Snowflake_abc"}, form.Value["taskName"])
	assert.Equal(t, []string{"name"}, form.Value["nameColumn"])
	assert.Len(t, form.File["inputFile"], 1)

	f, err := form.File["inputFile"][0].Open()
	assert.NoError(t, err)
	content, err := io.ReadAll(f)
	assert.NoError(t, err)
	assert.Equal(t, r.Contents(), string(content))
}

func TestBody_echoesNumbers(t *testing.T) {
	rows := []batch.Row{{Index: 0, Fields: []interface{}{json.Number("10.0")}}}

	b, err := Body("/p", "input", rows, schema.New("n")).JSON()
	assert.NoError(t, err)
	assert.Equal(t, `{"input":[{"n":10.0}]}`, string(b))
}
