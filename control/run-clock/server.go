package main

import (
	"fmt"
	"net/http"

	"github.com/jrockway/wordclock/control/mode"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/trace"
)

// newRouter returns the debug server's routes.  A nil status page redirects / to the display.  With
// shared set, POST /button/short and /button/long press the button, for previews without one.
func newRouter(status, display http.Handler, shared *mode.Shared) *httprouter.Router {
	r := httprouter.New()
	if status == nil {
		status = http.RedirectHandler("/display.png", http.StatusFound)
	}
	r.Handler("GET", "/", status)
	r.Handler("GET", "/display.png", display)
	r.Handler("GET", "/metrics", promhttp.Handler())
	r.HandlerFunc("GET", "/debug/events", trace.Events)
	r.HandlerFunc("GET", "/debug/requests", trace.Traces)
	if shared != nil {
		r.POST("/button/:gesture", pressButton(shared))
	}
	return r
}

func pressButton(shared *mode.Shared) httprouter.Handle {
	return func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		took := true
		switch g := ps.ByName("gesture"); g {
		case "short":
			shared.ShortPress()
		case "long":
			// Long presses only do something from the time display.
			took = shared.EnterSetHour()
		default:
			http.Error(w, fmt.Sprintf("unknown gesture %q; want short or long", g), http.StatusNotFound)
			return
		}
		st := shared.Load()
		log.WithFields(log.Fields{"component": "http", "gesture": ps.ByName("gesture"), "mode": st.Mode}).Debug("virtual button press")
		if !took {
			w.WriteHeader(http.StatusConflict)
		}
		fmt.Fprintf(w, "%v\n", st.Mode)
	}
}
