package endpoint

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prognoshealth/factsetfunctions/factset"
)

func TestSymbology(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request, body string) {
		reply(w, 200, `{"data":[{"requestId":"AAPL-US","fsymId":"MH33D6-R"}]}`)
	})
	defer up.Close()

	response := controllerFor(up.URL).Handle(context.Background(), Symbology{}, []byte(`{"data":[[0,"AAPL-US"]]}`))

	assert.Equal(t, 200, response.StatusCode, response.Body)

	req := up.requests[0]
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, factset.SymbologyPath, req.URL.Path)
	assert.Equal(t, "AAPL-US", req.URL.Query().Get("ids"))

	row := decodeRows(t, response.Body)["0"]
	assert.Equal(t, "AAPL-US", row["ids"])
	assert.Equal(t, json.Number("200"), row["status"])
	assert.Equal(t, asJSON(t, `{"data":[{"requestId":"AAPL-US","fsymId":"MH33D6-R"}]}`), row["response"])
}

func TestSymbology_invalidBody(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request, body string) {
		reply(w, 200, `<html>`)
	})
	defer up.Close()

	response := controllerFor(up.URL).Handle(context.Background(), Symbology{}, []byte(`{"data":[[0,"AAPL-US"]]}`))

	assert.Equal(t, 400, response.StatusCode)
	assert.Contains(t, response.Body, "failed decoding response")
}

func TestSymbologyBatch(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request, body string) {
		reply(w, 200, `{"data":[{"requestId":"AAPL-US"},{"requestId":""},{"requestId":"MSFT-US"}]}`)
	})
	defer up.Close()

	response := controllerFor(up.URL).Handle(context.Background(), SymbologyBatch{}, []byte(`{"data":[[0,"AAPL-US"],[1,null],[2,"MSFT-US"]]}`))

	assert.Equal(t, 200, response.StatusCode, response.Body)

	req := up.requests[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.JSONEq(t, `{"ids":["AAPL-US","","MSFT-US"]}`, up.bodies[0])

	rows := decodeRows(t, response.Body)
	assert.Len(t, rows, 3)

	assert.Equal(t, "AAPL-US", rows["0"]["id"])
	assert.Equal(t, asJSON(t, `{"requestId":"AAPL-US"}`), rows["0"]["response"])
	assert.Equal(t, json.Number("0"), rows["0"]["rowIndex"])

	assert.NotContains(t, rows["1"], "id")
	assert.Equal(t, json.Number("1"), rows["1"]["rowIndex"])

	assert.Equal(t, asJSON(t, `{"requestId":"MSFT-US"}`), rows["2"]["response"])
	assert.Equal(t, json.Number("2"), rows["2"]["rowIndex"])

	debug := rows["0"]["debug"].(map[string]interface{})
	assert.Equal(t, json.Number("200"), debug["api_status"])
	assert.Len(t, debug["api_response"], 3)
}

func TestSymbologyBatch_shortResponse(t *testing.T) {
	up := newUpstream(t, func(w http.ResponseWriter, r *http.Request, body string) {
		reply(w, 200, `{"data":[{"requestId":"AAPL-US"}]}`)
	})
	defer up.Close()

	response := controllerFor(up.URL).Handle(context.Background(), SymbologyBatch{}, []byte(`{"data":[[0,"AAPL-US"],[1,"MSFT-US"]]}`))

	assert.Equal(t, 200, response.StatusCode)

	rows := decodeRows(t, response.Body)
	assert.Contains(t, rows["0"], "response")
	assert.NotContains(t, rows["1"], "response")
	assert.Equal(t, "MSFT-US", rows["1"]["id"])
}
