// Package status serves a web page describing what the clock is doing.
package status

import (
	"bytes"
	_ "embed"
	"encoding/base64"
	"html/template"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/jrockway/wordclock/control/mode"
	log "github.com/sirupsen/logrus"
)

var (
	//go:embed index.html.tmpl
	indexHTML string
	funcMap   = template.FuncMap{
		"image":    formatImage,
		"unixtime": formatUnixTime,
		"ago":      formatAgo,
	}
	index = template.Must(template.New("index").Funcs(funcMap).Parse(indexHTML))
)

// Status is the clock's state as of the last tick.
type Status struct {
	Updated    time.Time
	Mode       mode.Mode
	Edit       mode.EditBuffer
	Brightness uint8
	Ticks      uint64
	Errors     uint64
	LastError  string
	ErrorAt    time.Time
}

// Page is an http.Handler rendering the status page.
type Page struct {
	// Preview draws the display; nil leaves the picture out.
	Preview func() *image.NRGBA
	// Now is time.Now outside of tests.
	Now func() time.Time

	mu     sync.RWMutex
	status Status
}

// New returns a page.
func New(preview func() *image.NRGBA) *Page {
	return &Page{Preview: preview, Now: time.Now}
}

// Observe records the result of a tick.  edit is the edit buffer after the tick.
func (p *Page) Observe(f mode.Frame, edit mode.EditBuffer, err error) {
	now := p.Now()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Updated = now
	p.status.Mode = f.Mode
	p.status.Edit = edit
	p.status.Ticks++
	if f.SetBrightness {
		p.status.Brightness = f.Brightness
	}
	if err != nil {
		p.status.Errors++
		p.status.LastError = err.Error()
		p.status.ErrorAt = now
	}
}

// Status returns a copy of the current status.
func (p *Page) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

type page struct {
	Status
	Now     time.Time
	Preview *image.NRGBA
	Editing bool
}

func (p *Page) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data := page{Status: p.Status(), Now: p.Now()}
	data.Editing = data.Mode.Editing()
	if p.Preview != nil {
		data.Preview = p.Preview()
	}
	w.Header().Set("content-type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := index.Execute(w, data); err != nil {
		log.WithError(err).Debug("execute status template")
	}
}

func formatUnixTime(t time.Time) string { return t.In(time.UTC).Format(time.UnixDate) }

func formatAgo(now, t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return now.Sub(t).Round(time.Millisecond).String() + " ago"
}

func formatImage(img *image.NRGBA) template.URL {
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, img); err != nil {
		log.WithError(err).Debug("encoding preview")
		return template.URL("data:text/plain,error")
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()))
}
