package cli

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/mchmarny/cryptorec/pkg/site"
)

func homeViewHandler(tmpl *template.Template, srv *server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := site.NewPage(srv.kb.Get(), srv.opts, srv.meta)
		if e := r.URL.Query().Get("err"); e != "" {
			p.Error = e
		}
		if err := tmpl.ExecuteTemplate(w, site.HomeTemplate, p); err != nil {
			slog.Error("template render failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
	}
}

func faviconHandler(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/static/img/favicon.svg", http.StatusMovedPermanently)
}
