// Package feed publishes the audio artifacts as an RSS feed and a simple
// listing page. Both are recomputed from the directory on every call.
package feed

import (
	"fmt"
	"html/template"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/abhisek/studycast/internal/remediation"
)

// MIMEType is the enclosure type of every audio artifact.
const MIMEType = "audio/mpeg"

// Config describes the published feed.
type Config struct {
	// BaseURL is the public origin the server is reachable at, without a
	// trailing slash, e.g. "http://127.0.0.1:8080".
	BaseURL     string
	Title       string
	Description string
}

// DefaultConfig returns the standard feed metadata for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		Title:       "Your Study Podcast",
		Description: "Automatically generated audio explanations of the questions you missed.",
	}
}

// Lister enumerates audio artifacts.
type Lister interface {
	List() ([]remediation.Artifact, error)
}

// Publisher renders the current artifacts.
type Publisher struct {
	artifacts Lister
	config    Config
	now       func() time.Time
}

// NewPublisher creates a Publisher over artifacts.
func NewPublisher(artifacts Lister, cfg Config) *Publisher {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Publisher{artifacts: artifacts, config: cfg, now: time.Now}
}

// AudioPath returns the server path of an artifact.
func AudioPath(name string) string {
	return "/audio/" + url.PathEscape(name)
}

// Feed builds the feed model with one item per artifact, sorted by name.
func (p *Publisher) Feed() (*feeds.Feed, error) {
	list, err := p.artifacts.List()
	if err != nil {
		return nil, err
	}

	f := &feeds.Feed{
		Title:       p.config.Title,
		Link:        &feeds.Link{Href: p.config.BaseURL + "/rss_feed", Rel: "self"},
		Description: p.config.Description,
		Created:     p.now().UTC(),
	}
	for _, a := range list {
		link := p.config.BaseURL + AudioPath(a.Name)
		f.Add(&feeds.Item{
			Title:       a.Title(),
			Link:        &feeds.Link{Href: link},
			Description: fmt.Sprintf("Explanation: %s", a.Title()),
			Id:          link,
			Created:     a.ModTime.UTC(),
			Enclosure: &feeds.Enclosure{
				Url:    link,
				Length: strconv.FormatInt(a.Size, 10),
				Type:   MIMEType,
			},
		})
	}
	return f, nil
}

// RSS renders the feed as RSS 2.0.
func (p *Publisher) RSS() (string, error) {
	f, err := p.Feed()
	if err != nil {
		return "", err
	}
	out, err := f.ToRss()
	if err != nil {
		return "", fmt.Errorf("render rss: %w", err)
	}
	return out, nil
}

type pageItem struct {
	Title string
	URL   string
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; background: #f4f6f8; padding: 20px; color: #222; }
h1 { color: #0a4a8f; }
.podcast { background: white; border-radius: 8px; box-shadow: 0 0 10px rgba(0,0,0,0.1); padding: 15px; margin-bottom: 15px; }
audio { width: 100%; margin-top: 10px; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Listen to every podcast right in the browser:</p>
{{- range .Items}}
<div class="podcast">
<h3>{{.Title}}</h3>
<audio controls>
<source src="{{.URL}}" type="audio/mpeg">
Your browser does not support the audio element.
</audio>
</div>
{{- else}}
<p>No podcasts available yet.</p>
{{- end}}
</body>
</html>
`))

// Page writes the HTML listing of all podcasts to w.
func (p *Publisher) Page(w io.Writer) error {
	list, err := p.artifacts.List()
	if err != nil {
		return err
	}
	items := make([]pageItem, len(list))
	for i, a := range list {
		items[i] = pageItem{Title: a.Title(), URL: AudioPath(a.Name)}
	}
	return pageTmpl.Execute(w, struct {
		Title string
		Items []pageItem
	}{Title: p.config.Title, Items: items})
}
