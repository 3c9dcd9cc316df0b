// Package request turns decoded rows into outbound upstream requests. Three
// shapes are supported: query parameters for a single row, a JSON body for a
// batch and a multipart CSV upload for a batch.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/prognoshealth/factsetfunctions/batch"
	"github.com/prognoshealth/factsetfunctions/schema"
)

// Request is an outbound call that can be rendered against a base url.
type Request interface {
	// URL returns the address the request targets, without query string.
	URL(baseURL string) string
	// HTTPRequest builds the request. Authentication is added by the caller.
	HTTPRequest(ctx context.Context, baseURL string) (*http.Request, error)
}

func join(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// QueryRequest sends its parameters in the query string of a GET.
type QueryRequest struct {
	Path   string
	Params url.Values
}

// Query returns a GET request carrying fields as query parameters.
func Query(path string, fields schema.Fields) *QueryRequest {
	params := url.Values{}
	for _, f := range fields {
		params.Add(f.Name, schema.Text(f.Value))
	}

	return &QueryRequest{Path: path, Params: params}
}

func (r *QueryRequest) URL(baseURL string) string {
	return join(baseURL, r.Path)
}

func (r *QueryRequest) HTTPRequest(ctx context.Context, baseURL string) (*http.Request, error) {
	u := r.URL(baseURL)
	if len(r.Params) > 0 {
		u = u + "?" + r.Params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed building request for %s", r.Path)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// BodyRequest POSTs {Key: Items} as json.
type BodyRequest struct {
	Path  string
	Key   string
	Items []interface{}
}

// Body returns a request whose items are the rows' fields keyed by column
// name, one object per row in row order.
func Body(path, key string, rows []batch.Row, s schema.Schema) *BodyRequest {
	items := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		items = append(items, s.Extract(row).Map())
	}

	return &BodyRequest{Path: path, Key: key, Items: items}
}

// Values returns a request whose items are the first column of each row in
// row order. Null values are sent as empty text so positions stay aligned.
func Values(path, key string, rows []batch.Row) *BodyRequest {
	items := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		var v interface{}
		if len(row.Fields) > 0 {
			v = row.Fields[0]
		}
		items = append(items, schema.Text(v))
	}

	return &BodyRequest{Path: path, Key: key, Items: items}
}

func (r *BodyRequest) URL(baseURL string) string {
	return join(baseURL, r.Path)
}

// JSON returns the encoded body.
func (r *BodyRequest) JSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	e := json.NewEncoder(buf)
	e.SetEscapeHTML(false)

	if err := e.Encode(map[string]interface{}{r.Key: r.Items}); err != nil {
		return nil, errors.Wrapf(err, "failed encoding body for %s", r.Path)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (r *BodyRequest) HTTPRequest(ctx context.Context, baseURL string) (*http.Request, error) {
	b, err := r.JSON()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL(baseURL), bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(err, "failed building request for %s", r.Path)
	}

	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// FormField is a plain multipart field.
type FormField struct {
	Name  string
	Value string
}

// FileRequest uploads rows as a CSV file in a multipart form.
type FileRequest struct {
	Path      string
	FileField string
	Fields    []FormField
	Lines     []string
}

// File returns an upload of rows as CSV. The header names the row number and
// the schema columns; formNames maps positionally onto the schema and each
// pair is sent as a form field telling upstream which column holds what.
//
// Every line starts with the unquoted caller index. Each column within the
// row's width follows, quoted with embedded quotes doubled, or empty when null.
func File(path string, taskName string, rows []batch.Row, s schema.Schema, formNames []string) *FileRequest {
	fields := []FormField{{Name: "taskName", Value: taskName}}
	for i, name := range formNames {
		if i < len(s) {
			fields = append(fields, FormField{Name: name, Value: s[i].Name})
		}
	}

	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, "row_number,"+strings.Join(s.Names(), ","))

	for _, row := range rows {
		var line strings.Builder
		line.WriteString(strconv.FormatInt(row.Index, 10))

		for i := 0; i < s.Width(row); i++ {
			line.WriteByte(',')
			if v := row.Fields[i]; v != nil {
				line.WriteString(quote(schema.Text(v)))
			}
		}

		lines = append(lines, line.String())
	}

	return &FileRequest{Path: path, FileField: "inputFile", Fields: fields, Lines: lines}
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Contents returns the CSV file text.
func (r *FileRequest) Contents() string {
	return strings.Join(r.Lines, "\n")
}

// Form returns the multipart body and its content type.
func (r *FileRequest) Form() ([]byte, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)

	for _, f := range r.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", errors.Wrapf(err, "failed writing form field %s", f.Name)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+r.FileField+`"; filename="`+r.FileField+`.csv"`)
	h.Set("Content-Type", "text/csv; charset=utf-8")

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed creating file part")
	}

	if _, err := part.Write([]byte(r.Contents())); err != nil {
		return nil, "", errors.Wrap(err, "failed writing file part")
	}

	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "failed closing form")
	}

	return buf.Bytes(), w.FormDataContentType(), nil
}

func (r *FileRequest) URL(baseURL string) string {
	return join(baseURL, r.Path)
}

func (r *FileRequest) HTTPRequest(ctx context.Context, baseURL string) (*http.Request, error) {
	body, contentType, err := r.Form()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL(baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "failed building request for %s", r.Path)
	}

	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json;charset=utf-8")
	return req, nil
}
