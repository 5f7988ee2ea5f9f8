// Package site serves the HTML landing page.
package site

import (
	"context"
	"errors"
	"html/template"
	"iter"
	"net/http"
	"slices"
	"strings"

	"github.com/okian/tweetcast/internal/domain/model"
)

// ErrRender is returned when the landing page cannot be rendered.
var ErrRender = errors.New("landing page render failed")

// TopicLister streams registered topics.
type TopicLister interface {
	ListTopics(ctx context.Context) iter.Seq2[model.Topic, error]
}

// Register attaches the landing page to mux at exactly "/".
func Register(_ context.Context, mux *http.ServeMux, topics TopicLister) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("GET /{$}", NewRootHandler(topics))
}

// RootHandler renders the landing page.
type RootHandler struct {
	topics TopicLister
}

// NewRootHandler creates a new root handler.
func NewRootHandler(topics TopicLister) *RootHandler {
	return &RootHandler{topics: topics}
}

type page struct {
	Topics []model.Topic
	Error  string
}

// ServeHTTP lists the registered topics with links to the API reference.
func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var p page
	for t, err := range h.topics.ListTopics(r.Context()) {
		if err != nil {
			p.Error = err.Error()
			break
		}
		p.Topics = append(p.Topics, t)
	}
	slices.SortFunc(p.Topics, func(a, b model.Topic) int { return strings.Compare(a.Name, b.Name) })

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, p); err != nil {
		http.Error(w, errors.Join(ErrRender, err).Error(), http.StatusInternalServerError)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>tweetcast</title>
  </head>
  <body>
    <h1>tweetcast</h1>
    <p>Subscribe to a topic by email or Discord webhook and get notified about every classified tweet.</p>
    <h2>Topics</h2>
    {{- if .Error}}
    <p class="error">{{.Error}}</p>
    {{- end}}
    <ul>
    {{- range .Topics}}
      <li>{{.Name}}</li>
    {{- else}}
      <li>none yet</li>
    {{- end}}
    </ul>
    <p><a href="/api-docs">API reference</a> · <a href="/stats">stats</a> · <a href="/metrics">metrics</a></p>
  </body>
</html>
`))
