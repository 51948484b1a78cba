package main

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.temporal.io/api/workflowservice/v1"

	"replenishment-service/internal/gateway/sqlitejournal"
	"replenishment-service/internal/modal"
)

const journalPageSize = 100

type uiRunRow struct {
	WorkflowID string
	RunID      string
	Status     string
}

type uiIndexData struct {
	Tab     string
	Query   string
	Entries []sqlitejournal.Entry
	Runs    []uiRunRow
	Error   string
}

type uiJournalData struct {
	Entry    sqlitejournal.Entry
	Snapshot template.HTML
	Error    string
}

type uiRunData struct {
	WorkflowID string
	RunID      string
	Record     template.HTML
	Audit      []modal.AuditEvent
	Error      string
}

type uiServer struct {
	s *server
	t *template.Template
}

func registerUIRoutes(r chi.Router, s *server) {
	u := &uiServer{s: s, t: template.Must(template.New("base").Parse(uiTemplates))}

	r.Get("/ui", u.handleIndex)
	r.Get("/ui/journal/{journalId}", u.handleJournal)
	r.Get("/ui/wf/{workflowId}", u.handleRun)
}

// handleIndex lists recent journal entries, or searches workflow runs by SKU.
func (u *uiServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	tab := r.URL.Query().Get("tab")
	q := r.URL.Query().Get("q")
	data := uiIndexData{Tab: tab, Query: q}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	if tab != "runs" {
		data.Tab = "journal"
		entries, err := u.s.journal.List(ctx, journalPageSize)
		if err != nil {
			data.Error = err.Error()
		}
		data.Entries = entries
		_ = u.t.ExecuteTemplate(w, "index", data)
		return
	}

	query := `WorkflowType = "DecideReplenishment"`
	if q != "" {
		query = `WorkflowId STARTS_WITH "replenish-` + q + `"`
	}
	resp, err := u.s.tc.ListWorkflow(ctx, &workflowservice.ListWorkflowExecutionsRequest{
		Query:    query,
		PageSize: 200,
	})
	if err != nil {
		data.Error = err.Error()
		_ = u.t.ExecuteTemplate(w, "index", data)
		return
	}
	for _, ex := range resp.Executions {
		if ex.Execution == nil {
			continue
		}
		data.Runs = append(data.Runs, uiRunRow{
			WorkflowID: ex.Execution.WorkflowId,
			RunID:      ex.Execution.RunId,
			Status:     ex.Status.String(),
		})
	}
	_ = u.t.ExecuteTemplate(w, "index", data)
}

func (u *uiServer) handleJournal(w http.ResponseWriter, r *http.Request) {
	entry, err := u.s.journal.Get(r.Context(), chi.URLParam(r, "journalId"))
	if errors.Is(err, sqlitejournal.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	data := uiJournalData{Entry: entry}
	if err != nil {
		data.Error = err.Error()
	} else {
		data.Snapshot = prettyJSON(entry.Record)
	}
	_ = u.t.ExecuteTemplate(w, "journal", data)
}

// handleRun shows the live record and audit log of one workflow run.
func (u *uiServer) handleRun(w http.ResponseWriter, r *http.Request) {
	wid := chi.URLParam(r, "workflowId")
	rid := r.URL.Query().Get("runId")
	data := uiRunData{WorkflowID: wid, RunID: rid}

	rec, err := u.s.queryRecord(r.Context(), wid, rid)
	if err != nil {
		data.Error = err.Error()
		_ = u.t.ExecuteTemplate(w, "run", data)
		return
	}
	data.Record = prettyJSON(rec)
	data.Audit, _ = u.s.queryAudit(r.Context(), wid, rid)

	_ = u.t.ExecuteTemplate(w, "run", data)
}

func prettyJSON(v any) template.HTML {
	b, _ := json.MarshalIndent(v, "", "  ")
	return template.HTML("<pre>" + template.HTMLEscapeString(string(b)) + "</pre>")
}

const uiTemplates = `
{{define "index"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Replenishment Decisions</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .tabs a { margin-right: 12px; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
    .err { color: #b00020; }
    .muted { color: #666; }
  </style>
</head>
<body>
  <h2>Replenishment Decisions</h2>

  <div class="tabs">
    <a href="/ui?tab=journal">Journal</a>
    <a href="/ui?tab=runs">Runs</a>
  </div>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  {{if eq .Tab "journal"}}
    <h3>Latest decisions</h3>
    <table>
      <thead><tr><th>Journal</th><th>SKU</th><th>Location</th><th>Action</th><th>Risk</th><th>At</th></tr></thead>
      <tbody>
      {{range .Entries}}
        <tr>
          <td><a href="/ui/journal/{{.JournalID}}">{{.JournalID}}</a></td>
          <td>{{.SKUID}}</td>
          <td>{{.LocationID}}</td>
          <td>{{.Action}}</td>
          <td>{{.Risk}}</td>
          <td class="muted">{{.CreatedAt.Format "2006-01-02 15:04:05"}}</td>
        </tr>
      {{else}}
        <tr><td colspan="6" class="muted">No decisions journaled yet.</td></tr>
      {{end}}
      </tbody>
    </table>
  {{else}}
    <h3>Workflow runs</h3>
    <form method="get" action="/ui">
      <input type="hidden" name="tab" value="runs"/>
      <input name="q" placeholder="SKU-123" value="{{.Query}}" style="width: 320px;"/>
      <button type="submit">Search</button>
    </form>
    <table>
      <thead><tr><th>Workflow</th><th>Status</th></tr></thead>
      <tbody>
      {{range .Runs}}
        <tr>
          <td><a href="/ui/wf/{{.WorkflowID}}?runId={{.RunID}}">{{.WorkflowID}}</a></td>
          <td>{{.Status}}</td>
        </tr>
      {{end}}
      </tbody>
    </table>
  {{end}}
</body>
</html>
{{end}}

{{define "journal"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Journal Entry</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .err { color: #b00020; }
    pre { background: #f7f7f7; padding: 12px; overflow: auto; }
  </style>
</head>
<body>
  <a href="/ui">← Back</a>
  <h2>{{.Entry.JournalID}}</h2>
  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}
  <p><b>{{.Entry.SKUID}}@{{.Entry.LocationID}}</b> {{.Entry.Action}} (risk {{.Entry.Risk}})<br/>
     <b>Event:</b> {{.Entry.EventType}}</p>
  <h3>Record snapshot</h3>
  {{.Snapshot}}
</body>
</html>
{{end}}

{{define "run"}}
<!doctype html>
<html>
<head>
  <meta charset="utf-8"/>
  <title>Workflow Run</title>
  <style>
    body { font-family: sans-serif; margin: 24px; }
    .err { color: #b00020; }
    pre { background: #f7f7f7; padding: 12px; overflow: auto; }
    table { border-collapse: collapse; width: 100%; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 8px; }
  </style>
</head>
<body>
  <a href="/ui?tab=runs">← Back</a>
  <h2>Workflow Run</h2>

  {{if .Error}}<p class="err">{{.Error}}</p>{{end}}

  <p><b>WorkflowID:</b> {{.WorkflowID}}<br/>
     <b>RunID:</b> {{.RunID}}</p>

  <h3>Record</h3>
  {{.Record}}

  <h3>Audit Log</h3>
  <table>
    <thead><tr><th>Time</th><th>Kind</th><th>Message</th></tr></thead>
    <tbody>
      {{range .Audit}}
        <tr>
          <td>{{.At}}</td>
          <td>{{.Kind}}</td>
          <td>{{.Message}}</td>
        </tr>
      {{end}}
    </tbody>
  </table>
</body>
</html>
{{end}}
`
