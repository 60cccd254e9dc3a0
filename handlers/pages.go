package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/Sovan7777/spardha-26/loginview"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages renders the server-side HTML pages.
type Pages struct {
	tmpl *template.Template
}

func NewPages() (*Pages, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Pages{tmpl: tmpl}, nil
}

type loginPageData struct {
	IdleLabel    string
	BusyLabel    string
	GenericError string
	LoginURL     string
	ReportURL    string
}

func (p *Pages) Login(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, "login.html", loginPageData{
		IdleLabel:    loginview.LabelSubmit,
		BusyLabel:    loginview.LabelVerifying,
		GenericError: loginview.MsgGenericError,
		LoginURL:     "/api/admin/login",
		ReportURL:    loginview.ReportRoute,
	})
}

func (p *Pages) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
