package template

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/ghaggin/webauth/internal/config"
	"github.com/ghaggin/webauth/internal/model"
)

type Data struct {
	PageTitle string
	UID       string
	Error     string
	CSRFToken string
	Users     []model.User
}

type Renderer struct {
	dir string
}

func NewRenderer(cfg *config.Config) *Renderer {
	return &Renderer{dir: cfg.Server.TemplateDir}
}

func (re *Renderer) Render(w http.ResponseWriter, r *http.Request, tmpl string, td *Data) error {
	t, err := template.ParseFiles(
		re.dir+"/"+tmpl,
		re.dir+"/"+"base.html",
	)
	if err != nil {
		return err
	}

	buf := &bytes.Buffer{}

	err = t.Execute(buf, td)
	if err != nil {
		return err
	}

	_, err = buf.WriteTo(w)
	return err
}
