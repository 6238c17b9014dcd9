// Package views holds the HTML pages, embedded into the binary.
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/VanDeGall/EduTestor/internal/types"
)

//go:embed templates/*.html
var files embed.FS

// Page names.
const (
	Index         = "index"
	Dashboard     = "dashboard"
	Register      = "register"
	Login         = "login"
	DeleteAccount = "delete_account"
	AddTest       = "add_test"
	TakeTest      = "take_test"
	Tests         = "tests"
	Error         = "error"
)

// Page is the data every template receives.
type Page struct {
	Title   string
	User    *types.User
	Flashes []string
	Errors  []string
	// Form echoes submitted values back into a re-rendered form.
	Form map[string]string
	Data any
}

// TakeTestData is Page.Data for the take_test page.
type TakeTestData struct {
	Question types.Question
	Result   types.Outcome
}

var pages = mustParse()

// Each page gets its own template set since every page defines "content".
func mustParse() map[string]*template.Template {
	names := []string{Index, Dashboard, Register, Login, DeleteAccount, AddTest, TakeTest, Tests, Error}
	out := make(map[string]*template.Template, len(names))
	for _, name := range names {
		out[name] = template.Must(template.ParseFS(files, "templates/base.html", "templates/"+name+".html"))
	}
	return out
}

// Render executes the named page into w. Output is buffered so a template
// error never leaves a half-written page.
func Render(w io.Writer, name string, page Page) error {
	tmpl, ok := pages[name]
	if !ok {
		return fmt.Errorf("views: unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", page); err != nil {
		return fmt.Errorf("views: render %s: %w", name, err)
	}

	_, err := buf.WriteTo(w)
	return err
}
