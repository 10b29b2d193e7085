package handlers

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/ardanlabs/ledger/foundation/web"
)

//go:embed assets/index.html
var indexHTML string

type index struct {
	tmpl *template.Template
	data indexData
}

type indexData struct {
	EventsURL string
	NodeURL   string
}

func newIndex(nodeHost string) (*index, error) {
	tmpl, err := template.New("index").Parse(indexHTML)
	if err != nil {
		return nil, err
	}

	host := strings.TrimPrefix(strings.TrimPrefix(nodeHost, "http://"), "ws://")

	ig := index{
		tmpl: tmpl,
		data: indexData{
			EventsURL: "ws://" + host + "/v1/events",
			NodeURL:   "http://" + host,
		},
	}

	return &ig, nil
}

func (ig *index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var b bytes.Buffer
	if err := ig.tmpl.Execute(&b, ig.data); err != nil {
		return fmt.Errorf("executing index template: %w", err)
	}

	web.SetStatusCode(ctx, http.StatusOK)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(b.Bytes())
	return err
}
