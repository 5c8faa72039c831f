// Package view renders SnoopTrade pages and partials as templ components
// backed by embedded html/template files.
package view

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"snooptrade/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("snooptrade").Funcs(template.FuncMap{
	"hx":  hxLink,
	"add": func(a, b float64) float64 { return a + b },
	"sub": func(a, b float64) float64 { return a - b },
}).ParseFS(templateFS, "templates/*.html"))

// hxLink renders href plus the htmx attributes that swap the dashboard in place
func hxLink(url string) template.HTMLAttr {
	u := template.HTMLEscapeString(url)
	return template.HTMLAttr(fmt.Sprintf(
		`href="%s" hx-get="%s" hx-target="#dashboard" hx-swap="outerHTML" hx-push-url="true"`, u, u))
}

func partial(name string, data any) templ.Component {
	t := templates.Lookup(name)
	if t == nil {
		panic("view: unknown template " + name)
	}
	return templ.FromGoHTML(t, data)
}

// Nav describes the navigation bar
type Nav struct {
	Authenticated  bool
	Active         string
	GoogleClientID string
}

type layoutData struct {
	Title string
	Nav   Nav
}

// Layout wraps body in the site chrome
func Layout(title string, nav Nav, body templ.Component) templ.Component {
	data := layoutData{Title: title, Nav: nav}
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := templates.ExecuteTemplate(w, "layout_start", data); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return templates.ExecuteTemplate(w, "layout_end", data)
	})
}

func page(title string, nav Nav, body templ.Component) templ.Component {
	if title == "" {
		title = "SnoopTrade"
	} else {
		title += " | SnoopTrade"
	}
	return Layout(title, nav, body)
}

// LandingPage is the public home page
func LandingPage(nav Nav) templ.Component {
	nav.Active = "landing"
	return page("", nav, partial("landing", nil))
}

// FeaturesPage lists product features
func FeaturesPage(nav Nav) templ.Component {
	nav.Active = "features"
	return page("Features", nav, partial("features", nil))
}

// AboutPage describes the project
func AboutPage(nav Nav) templ.Component {
	nav.Active = "about"
	return page("About", nav, partial("about", nil))
}

// NotFoundPage is rendered for unknown routes
func NotFoundPage(nav Nav) templ.Component {
	return page("Not found", nav, partial("not_found", nil))
}

// ErrorState is an inline error message
func ErrorState(message string) templ.Component {
	return partial("error_state", message)
}

// LoginForm is the login form state
type LoginForm struct {
	Email          string
	Error          string
	GoogleClientID string
}

// LoginFormPartial renders only the login form
func LoginFormPartial(form LoginForm) templ.Component {
	return partial("login_form", form)
}

// LoginPage renders the login form inside the layout
func LoginPage(nav Nav, form LoginForm) templ.Component {
	nav.Active = "login"
	form.GoogleClientID = nav.GoogleClientID
	return page("Log in", nav, LoginFormPartial(form))
}

// SignUpForm is the signup form state
type SignUpForm struct {
	Name    string
	Email   string
	Errors  map[string]string
	Error   string
	Success bool
}

// SignUpFormPartial renders only the signup form
func SignUpFormPartial(form SignUpForm) templ.Component {
	return partial("signup_form", form)
}

// SignUpPage renders the signup form inside the layout
func SignUpPage(nav Nav, form SignUpForm) templ.Component {
	nav.Active = "signup"
	return page("Sign up", nav, SignUpFormPartial(form))
}

// AccountForm is the account settings form state
type AccountForm struct {
	Profile models.Profile
	Name    string
	Errors  map[string]string
	Error   string
	Notice  string
}

// AccountFormPartial renders only the account form
func AccountFormPartial(form AccountForm) templ.Component {
	return partial("account_form", form)
}

// AccountPage renders the account form inside the layout
func AccountPage(nav Nav, form AccountForm) templ.Component {
	nav.Active = "account"
	return page("Account", nav, AccountFormPartial(form))
}

// DashboardPartial renders the swappable dashboard body
func DashboardPartial(v DashboardView) templ.Component {
	return partial("dashboard", v)
}

// DashboardPage renders the dashboard inside the layout
func DashboardPage(nav Nav, v DashboardView) templ.Component {
	nav.Active = "dashboard"
	title := "Dashboard"
	if v.Query.Company != "" {
		title = v.Query.Company + " " + title
	}
	return page(title, nav, DashboardPartial(v))
}

// LineChart renders a line plot
func LineChart(p LinePlot) templ.Component { return partial("line_chart", p) }

// ForecastChartComponent renders a forecast plot
func ForecastChartComponent(p ForecastPlot) templ.Component { return partial("forecast_chart", p) }

// BarChart renders a bar plot
func BarChart(p BarPlot) templ.Component { return partial("bar_chart", p) }

// PieChartComponent renders a pie plot
func PieChartComponent(p PiePlot) templ.Component { return partial("pie_chart", p) }

// TradeTable renders the sortable, paginated trade table
func TradeTable(t TableView) templ.Component { return partial("trade_table", t) }
