package main

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

//go:embed templates
var templatesFS embed.FS

const (
	cookieName  = "devplane_token"
	defaultPort = "3000"
	defaultAPI  = "http://localhost:8080"
	envWebPort  = "DEVPLANE_WEB_PORT"
	envAPIURL   = "DEVPLANE_API_URL"
)

func main() {
	port := getEnv(envWebPort, defaultPort)
	apiBase := getEnv(envAPIURL, defaultAPI)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	// Public
	r.Get("/login", loginForm)
	r.Post("/login", loginSubmit(apiBase))
	r.Get("/logout", logout)

	// Protected
	r.Group(func(r chi.Router) {
		r.Use(requireAuth(apiBase))
		r.Get("/", redirectDashboard)
		r.Get("/dashboard", dashboard(apiBase))
		r.Get("/incidents", incidentsList(apiBase))
		r.Get("/incidents/{id}", incidentDetail(apiBase))
		r.Get("/environments", environmentsList(apiBase))
	})

	log.Printf("devplane dashboard on http://localhost:%s (API: %s)", port, apiBase)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// requireAuth redirects to /login when the cookie is missing or the API
// rejects the token.
func requireAuth(apiBase string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := r.Cookie(cookieName)
			if err != nil || token.Value == "" {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
				return
			}
			_, status, _ := apiGet(apiBase, "/services?limit=1", token.Value)
			if status == http.StatusUnauthorized {
				clearAuthAndRedirectToLogin(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func redirectDashboard(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}

func loginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := r.Cookie(cookieName); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	renderTemplate(w, "login.html", nil)
}

func loginSubmit(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		password := r.FormValue("password")
		if username == "" {
			renderTemplate(w, "login.html", map[string]string{"Error": "Username is required"})
			return
		}

		body, _ := json.Marshal(map[string]string{"username": username, "password": password})
		req, _ := http.NewRequest("POST", apiBase+"/auth/login", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			renderTemplate(w, "login.html", map[string]string{"Error": "Cannot reach API: " + err.Error()})
			return
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(resp.Body)
		if resp.StatusCode != http.StatusOK {
			var errResp struct{ Error string }
			_ = json.Unmarshal(data, &errResp)
			msg := errResp.Error
			if msg == "" {
				msg = string(data)
			}
			renderTemplate(w, "login.html", map[string]string{"Error": msg})
			return
		}

		var out struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(data, &out); err != nil || out.Token == "" {
			renderTemplate(w, "login.html", map[string]string{"Error": "Invalid login response"})
			return
		}

		next := r.URL.Query().Get("next")
		if next == "" {
			next = "/dashboard"
		}

		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    out.Token,
			Path:     "/",
			MaxAge:   24 * 3600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, next, http.StatusFound)
	}
}

func logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusFound)
}

func clearAuthAndRedirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	next := r.URL.Path
	if r.URL.RawQuery != "" {
		next += "?" + r.URL.RawQuery
	}
	http.Redirect(w, r, "/login?next="+url.QueryEscape(next), http.StatusFound)
}

func apiGet(apiBase, path, token string) ([]byte, int, error) {
	req, _ := http.NewRequest("GET", apiBase+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return data, resp.StatusCode, nil
}

func cookieToken(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

type incidentView struct {
	ID         int        `json:"id"`
	ServiceID  int        `json:"service_id"`
	Title      string     `json:"title"`
	Severity   string     `json:"severity"`
	Status     string     `json:"status"`
	DetectedAt time.Time  `json:"detected_at"`
	ResolvedAt *time.Time `json:"resolved_at"`
}

type deploymentView struct {
	ID          int       `json:"id"`
	ServiceID   int       `json:"service_id"`
	Environment string    `json:"environment"`
	Version     string    `json:"version"`
	FinishedAt  time.Time `json:"finished_at"`
	Status      string    `json:"status"`
}

type doraView struct {
	Service       string
	DeploysPerDay string
	FreqBand      string
	FailureRate   string
	FailureBand   string
	MTTR          string
	MTTRBand      string
}

// serviceDora fetches the 30-day delivery metrics for each service. Capped
// at the first few services to keep the dashboard to a handful of API calls.
func serviceDora(apiBase, token string) []doraView {
	data, status, err := apiGet(apiBase, "/services?limit=6", token)
	if err != nil || status != http.StatusOK {
		return nil
	}
	var services []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &services); err != nil {
		return nil
	}

	views := make([]doraView, 0, len(services))
	for _, svc := range services {
		data, status, err := apiGet(apiBase, fmt.Sprintf("/dora?service_id=%d&days=30", svc.ID), token)
		if err != nil || status != http.StatusOK {
			continue
		}
		var m struct {
			DeploysPerDay     float64 `json:"deploys_per_day"`
			DeployFreqBand    string  `json:"deploy_freq_band"`
			ChangeFailureRate float64 `json:"change_failure_rate"`
			FailureRateBand   string  `json:"failure_rate_band"`
			MTTRSecs          float64 `json:"mttr_secs"`
			MTTRBand          string  `json:"mttr_band"`
			ResolvedIncidents int     `json:"resolved_incidents"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}

		v := doraView{
			Service:       svc.Name,
			DeploysPerDay: fmt.Sprintf("%.2f", m.DeploysPerDay),
			FreqBand:      orDash(m.DeployFreqBand),
			FailureRate:   fmt.Sprintf("%.0f%%", m.ChangeFailureRate*100),
			FailureBand:   orDash(m.FailureRateBand),
			MTTR:          "n/a",
			MTTRBand:      orDash(m.MTTRBand),
		}
		if m.ResolvedIncidents > 0 {
			v.MTTR = (time.Duration(m.MTTRSecs) * time.Second).Round(time.Minute).String()
		}
		views = append(views, v)
	}
	return views
}

func orDash(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func dashboard(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := cookieToken(r)

		var incidents []incidentView
		if data, status, err := apiGet(apiBase, "/incidents?limit=200", tok); err == nil && status == http.StatusOK {
			_ = json.Unmarshal(data, &incidents)
		} else if status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}

		open := make([]incidentView, 0)
		for _, in := range incidents {
			if in.Status != "resolved" {
				open = append(open, in)
			}
		}

		var stale []struct {
			ID int `json:"id"`
		}
		if data, status, _ := apiGet(apiBase, "/assets?stale=true&limit=100", tok); status == http.StatusOK {
			_ = json.Unmarshal(data, &stale)
		}

		var deploys []deploymentView
		if data, status, _ := apiGet(apiBase, "/deployments?limit=10", tok); status == http.StatusOK {
			_ = json.Unmarshal(data, &deploys)
		}

		renderTemplate(w, "dashboard.html", map[string]interface{}{
			"OpenIncidents":   open,
			"OpenCount":       len(open),
			"StaleAssetCount": len(stale),
			"Deployments":     deploys,
			"Dora":            serviceDora(apiBase, tok),
		})
	}
}

func incidentsList(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := cookieToken(r)

		path := "/incidents?limit=100"
		if s := r.URL.Query().Get("status"); s != "" {
			path += "&status=" + url.QueryEscape(s)
		}

		data, status, err := apiGet(apiBase, path, tok)
		if err != nil {
			renderTemplate(w, "incidents.html", map[string]interface{}{"Error": err.Error()})
			return
		}
		if status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}

		var incidents []incidentView
		if err := json.Unmarshal(data, &incidents); err != nil {
			renderTemplate(w, "incidents.html", map[string]interface{}{"Error": "Invalid incidents response"})
			return
		}

		renderTemplate(w, "incidents.html", map[string]interface{}{
			"Incidents": incidents,
			"Filter":    r.URL.Query().Get("status"),
		})
	}
}

func incidentDetail(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := cookieToken(r)
		id := chi.URLParam(r, "id")

		data, status, err := apiGet(apiBase, "/incidents/"+id, tok)
		if err != nil || status != http.StatusOK {
			renderTemplate(w, "incident.html", map[string]interface{}{"Error": fmt.Sprintf("incident %s not found", id)})
			return
		}

		var detail struct {
			Incident incidentView `json:"incident"`
			Updates  []struct {
				Status    string    `json:"status"`
				Message   string    `json:"message"`
				Author    string    `json:"author"`
				CreatedAt time.Time `json:"created_at"`
			} `json:"updates"`
		}
		if err := json.Unmarshal(data, &detail); err != nil {
			renderTemplate(w, "incident.html", map[string]interface{}{"Error": "Invalid incident response"})
			return
		}

		renderTemplate(w, "incident.html", map[string]interface{}{
			"Incident": detail.Incident,
			"Updates":  detail.Updates,
		})
	}
}

func environmentsList(apiBase string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := cookieToken(r)

		data, status, err := apiGet(apiBase, "/environments?limit=100", tok)
		if err != nil {
			renderTemplate(w, "environments.html", map[string]interface{}{"Error": err.Error()})
			return
		}
		if status == http.StatusUnauthorized {
			clearAuthAndRedirectToLogin(w, r)
			return
		}

		var envs []struct {
			ID        int       `json:"id"`
			Name      string    `json:"name"`
			Team      string    `json:"team"`
			CPULimit  string    `json:"cpu_limit"`
			MemLimit  string    `json:"mem_limit"`
			Status    string    `json:"status"`
			CreatedAt time.Time `json:"created_at"`
		}
		if err := json.Unmarshal(data, &envs); err != nil {
			renderTemplate(w, "environments.html", map[string]interface{}{"Error": "Invalid environments response"})
			return
		}

		renderTemplate(w, "environments.html", map[string]interface{}{"Environments": envs})
	}
}

func renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	content, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	if name == "login.html" {
		t := template.Must(template.New("").Parse(string(content)))
		_ = t.ExecuteTemplate(w, "login", data)
		return
	}

	layout, _ := templatesFS.ReadFile("templates/layout.html")
	t := template.Must(template.New("").Parse(string(layout)))
	t = template.Must(t.New("").Parse(string(content)))
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Printf("template execute: %v", err)
	}
}
