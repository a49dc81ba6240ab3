package console

import (
	"bytes"
	"html/template"

	"github.com/sine-io/stremio-addons/internal/stremio"
)

type AddonsPageData struct {
	Addons []stremio.Descriptor
}

type ErrorPageData struct {
	Title   string
	Heading string
	Message string
	Detail  string
	Hint    string
}

var pageTmpl = template.Must(template.New("pages").Parse(`
{{define "login"}}<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Stremio Sign In</title>
    <style>
      body { font-family: sans-serif; display: grid; place-items: center; min-height: 80vh; background-color: #f4f4f4; }
      form { background: #fff; border: 1px solid #ccc; padding: 25px; border-radius: 8px; box-shadow: 0 2px 5px rgba(0,0,0,0.1); }
      div { margin-bottom: 15px; }
      label { display: block; margin-bottom: 5px; font-weight: bold; }
      input[type='email'], input[type='password'] { width: 300px; padding: 8px; border: 1px solid #ddd; border-radius: 4px; }
      button { width: 100%; padding: 10px; background-color: #4B0082; color: white; border: none; border-radius: 4px; cursor: pointer; font-size: 16px; }
      button:hover { background-color: #3a0063; }
      h1 { text-align: center; }
    </style>
  </head>
  <body>
    <form action="/addons" method="POST">
      <h1>Sign in to your Stremio account</h1>
      <div>
        <label for="email">Email:</label>
        <input type="email" id="email" name="email" required>
      </div>
      <div>
        <label for="password">Password:</label>
        <input type="password" id="password" name="password" required>
      </div>
      <button type="submit">Show sorted add-ons</button>
    </form>
  </body>
</html>
{{end}}

{{define "addons"}}<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Sorted Stremio Add-ons</title>
    <style>
      body { font-family: sans-serif; padding: 20px; }
      ul { list-style-type: none; padding: 0; }
      li { background: #f9f9f9; border: 1px solid #eee; padding: 10px 15px; margin-bottom: 8px; border-radius: 5px; }
      a { display: block; margin-top: 20px; }
      .no-addons { font-style: italic; color: #555; }
    </style>
  </head>
  <body>
    <h1>Your Stremio Add-ons (sorted by name)</h1>
    {{- if .Addons}}
    <ul class="addons">
      {{- range .Addons}}
      <li><strong>{{.Manifest.Name}}</strong><p>{{with .Manifest.Description}}{{.}}{{else}}No description{{end}}</p></li>
      {{- end}}
    </ul>
    {{- else}}
    <p class="no-addons">No add-ons found for this account.</p>
    {{- end}}
    <a href="/">Back to sign in</a>
  </body>
</html>
{{end}}

{{define "error"}}<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>{{.Title}}</title>
    <style>body { font-family: sans-serif; padding: 20px; }</style>
  </head>
  <body>
    <h1>{{.Heading}}</h1>
    <p class="message">{{.Message}}{{with .Detail}}<br><br><i class="detail">Technical detail: {{.}}</i>{{end}}</p>
    {{- with .Hint}}
    <p class="hint">{{.}}</p>
    {{- end}}
    <br>
    <a href="/">Back to sign in</a>
  </body>
</html>
{{end}}
`))

func RenderLoginHTML() ([]byte, error) {
	return renderPage("login", nil)
}

func RenderAddonsHTML(data AddonsPageData) ([]byte, error) {
	return renderPage("addons", data)
}

func RenderErrorHTML(data ErrorPageData) ([]byte, error) {
	return renderPage("error", data)
}

func renderPage(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
