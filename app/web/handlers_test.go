package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Stromnimick/HQEinOne/app/enums"
	"github.com/Stromnimick/HQEinOne/app/records"
)

// postForm sends url-encoded form to handler
func postForm(handler http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

// flashOf returns the flash cookie set by response, decoded as "kind|message"
func flashOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie && c.Value != "" {
			v, err := url.QueryUnescape(c.Value)
			require.NoError(t, err)
			return v
		}
	}
	return ""
}

func TestServer_handleList(t *testing.T) {
	server, svc, _ := newTestServer(t, "", Config{})
	handler := server.routes()

	t.Run("empty lists", func(t *testing.T) {
		for path, empty := range map[string]string{
			"/programs":     "Noch keine Studiengänge angelegt",
			"/regulations":  "Noch keine Prüfungsordnungen angelegt",
			"/reforms":      "Noch keine Genehmigungsverfahren angelegt",
			"/coordinators": "Noch keine HQE angelegt",
		} {
			req := httptest.NewRequest("GET", path, http.NoBody)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, path)
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), empty, path)
		}
	})

	seedRecords(t, svc)

	t.Run("programs", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/programs", http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `<a href="/programs/1">Informatik</a>`)
		assert.Contains(t, body, "MNF-Math")
		assert.Contains(t, body, `action="/programs/1/delete"`)
		assert.Contains(t, body, "Neuer Studiengang")
	})

	t.Run("reforms show names of referenced records", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/reforms", http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Informatik (B.Sc.)")
		assert.Contains(t, body, "Erika Musterfrau")
		assert.Contains(t, body, "15.01.2024")
		assert.Contains(t, body, "01.02.2024 Senat")
	})

	t.Run("edit form is prefilled", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/coordinators?edit=1", http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "HQE #1 bearbeiten")
		assert.Contains(t, body, `action="/coordinators/1"`)
		assert.Contains(t, body, `value="Erika Musterfrau"`)
		assert.Contains(t, body, `value="4711"`)

		req = httptest.NewRequest("GET", "/reforms?edit=1", http.NoBody)
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `name="reading_date_1" value="2024-02-01"`)
		assert.Contains(t, rec.Body.String(), `name="reading_date_4" value=""`)
	})

	t.Run("edit of missing record", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/programs?edit=42", http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "Eintrag nicht gefunden")
	})

	t.Run("edit with invalid id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/programs?edit=abc", http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_handleCreate(t *testing.T) {
	server, svc, _ := newTestServer(t, "", Config{})
	handler := server.routes()

	t.Run("program created", func(t *testing.T) {
		rec := postForm(handler, "/programs", url.Values{"l_abschluss": {"Master"}, "k_abschluss": {"M.Sc."},
			"l_name": {"Physik"}, "k_name": {"Phy"}, "fak": {"MNF"}, "stg": {"128"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/programs", rec.Header().Get("Location"))
		assert.Equal(t, "success|Studiengang 'Physik (M.Sc.)' wurde angelegt", flashOf(t, rec))

		prog, err := svc.GetProgram(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, enums.DegreeMaster, prog.DegreeLong)
		assert.Equal(t, 128, prog.Stg)
	})

	t.Run("flash shown once on next page", func(t *testing.T) {
		rec := postForm(handler, "/coordinators", url.Values{"l_name": {"Max Mustermann"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)

		req := httptest.NewRequest("GET", "/coordinators", http.NoBody)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		page := httptest.NewRecorder()
		handler.ServeHTTP(page, req)
		require.Equal(t, http.StatusOK, page.Code)
		assert.Contains(t, page.Body.String(), `class="flash flash-success"`)
		assert.Contains(t, page.Body.String(), "wurde angelegt")

		// the page clears the cookie
		var cleared bool
		for _, c := range page.Result().Cookies() {
			if c.Name == flashCookie && c.MaxAge < 0 {
				cleared = true
			}
		}
		assert.True(t, cleared)
	})

	t.Run("missing required field", func(t *testing.T) {
		rec := postForm(handler, "/programs", url.Values{"l_name": {"Chemie"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "error|Studiengang konnte nicht angelegt werden: Pflichtfeld fehlt (k_name)", flashOf(t, rec))
	})

	t.Run("invalid reference", func(t *testing.T) {
		rec := postForm(handler, "/regulations", url.Values{"studiengang_id": {"99"}, "po_version": {"2020"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Contains(t, flashOf(t, rec), "error|Prüfungsordnung konnte nicht angelegt werden: Verweis ungültig")

		regs, err := svc.ListRegulations(context.Background())
		require.NoError(t, err)
		assert.Empty(t, regs)
	})

	t.Run("reform with milestones", func(t *testing.T) {
		rec := postForm(handler, "/reforms", url.Values{"studiengang_id": {"1"}, "hqe_id": {"1"},
			"art": {"Neueinrichtung"}, "antrag": {"2025-03-01"},
			"reading_date_1": {"2025-04-01"}, "reading_label_1": {"1. Lesung"},
			"reading_date_2": {""}, "reading_label_2": {""},
			"resolution_date_1": {"2025-06-01"}, "resolution_label_1": {""}})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "success|Reformverfahren 'Neueinrichtung (#1)' wurde angelegt", flashOf(t, rec))

		reform, err := svc.GetReform(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, reform.Readings, 1)
		assert.Equal(t, "1. Lesung", reform.Readings[0].Label)
		require.Len(t, reform.Resolutions, 1)
		assert.Equal(t, "2025-06-01", reform.Resolutions[0].Date.Format("2006-01-02"))
	})
}

func TestServer_handleUpdate(t *testing.T) {
	server, svc, _ := newTestServer(t, "", Config{})
	handler := server.routes()
	seedRecords(t, svc)
	ctx := context.Background()

	t.Run("update from full form", func(t *testing.T) {
		rec := postForm(handler, "/programs/1", url.Values{"l_abschluss": {"Bachelor"}, "k_abschluss": {"B.Sc."},
			"l_name": {"Angewandte Informatik"}, "k_name": {"AInfo"}, "fak": {"MNF"}, "inst": {""},
			"abint": {""}, "stg": {""}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/programs", rec.Header().Get("Location"))
		assert.Equal(t, "success|Studiengang 'Angewandte Informatik (B.Sc.)' wurde gespeichert", flashOf(t, rec))

		prog, err := svc.GetProgram(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "AInfo", prog.ShortName)
		assert.Empty(t, prog.Institute)
		assert.Zero(t, prog.Stg)
	})

	t.Run("partial form keeps other fields", func(t *testing.T) {
		rec := postForm(handler, "/coordinators/1", url.Values{"email": {"em@uni.test"}})
		require.Equal(t, http.StatusSeeOther, rec.Code)

		coord, err := svc.GetCoordinator(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "em@uni.test", coord.Email)
		assert.Equal(t, "Erika Musterfrau", coord.LongName)
		assert.Equal(t, 4711, coord.Phone)
	})

	t.Run("failed update redirects back to edit form", func(t *testing.T) {
		rec := postForm(handler, "/programs/1", url.Values{"l_name": {"  "}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/programs?edit=1", rec.Header().Get("Location"))
		assert.Contains(t, flashOf(t, rec), "error|Studiengang konnte nicht gespeichert werden: Pflichtfeld fehlt")

		prog, err := svc.GetProgram(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "Angewandte Informatik", prog.LongName)
	})

	t.Run("missing record", func(t *testing.T) {
		rec := postForm(handler, "/regulations/42", url.Values{"po_version": {"2021"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/regulations", rec.Header().Get("Location"))
		assert.Equal(t, "error|Prüfungsordnung konnte nicht gespeichert werden: Eintrag nicht gefunden", flashOf(t, rec))
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := postForm(handler, "/programs/0", url.Values{"l_name": {"x"}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestServer_handleDelete(t *testing.T) {
	t.Run("reject policy keeps program with dependents", func(t *testing.T) {
		server, svc, _ := newTestServer(t, enums.DeleteReject, Config{})
		handler := server.routes()
		seedRecords(t, svc)

		rec := postForm(handler, "/programs/1/delete", url.Values{})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "error|Studiengang 'Informatik (B.Sc.)' konnte nicht gelöscht werden: "+
			"es gibt abhängige Einträge (1 Prüfungsordnung, 1 Reformverfahren)", flashOf(t, rec))

		_, err := svc.GetProgram(context.Background(), 1)
		require.NoError(t, err)

		// leaf record is deleted
		rec = postForm(handler, "/reforms/1/delete", url.Values{})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "success|Reformverfahren 'Änderung (#1)' wurde gelöscht", flashOf(t, rec))
		_, err = svc.GetReform(context.Background(), 1)
		require.ErrorIs(t, err, records.ErrNotFound)
	})

	t.Run("cascade policy deletes dependents", func(t *testing.T) {
		server, svc, _ := newTestServer(t, enums.DeleteCascade, Config{})
		handler := server.routes()
		seedRecords(t, svc)

		rec := postForm(handler, "/programs/1/delete", url.Values{})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "success|Studiengang 'Informatik (B.Sc.)' wurde mit 1 Prüfungsordnung, 1 Reformverfahren gelöscht",
			flashOf(t, rec))

		regs, err := svc.ListRegulations(context.Background())
		require.NoError(t, err)
		assert.Empty(t, regs)
		reforms, err := svc.ListReforms(context.Background())
		require.NoError(t, err)
		assert.Empty(t, reforms)
	})

	t.Run("missing record", func(t *testing.T) {
		server, _, _ := newTestServer(t, "", Config{})
		rec := postForm(server.routes(), "/coordinators/5/delete", url.Values{})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "error|HQE konnte nicht gelöscht werden: Eintrag nicht gefunden", flashOf(t, rec))
	})
}

func TestServer_handleProgramDetails(t *testing.T) {
	server, svc, _ := newTestServer(t, "", Config{})
	handler := server.routes()
	seedRecords(t, svc)

	t.Run("details with children", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/programs/1", http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<h1>Informatik (B.Sc.)</h1>")
		assert.Contains(t, body, `href="/regulations?edit=1"`)
		assert.Contains(t, body, "reguläres Verfahren")
		assert.Contains(t, body, "Erika Musterfrau")
	})

	t.Run("missing program", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/programs/9", http.NoBody)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestServer_StoreUnavailable(t *testing.T) {
	server, _, store := newTestServer(t, "", Config{})
	handler := server.routes()
	require.NoError(t, store.Close())

	req := httptest.NewRequest("GET", "/programs", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "Datenbank nicht erreichbar")
}

func TestPopFlash(t *testing.T) {
	s := &Server{}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", http.NoBody)
		req.AddCookie(&http.Cookie{Name: flashCookie, Value: url.QueryEscape("success|gespeichert")})
		got := s.popFlash(httptest.NewRecorder(), req)
		require.NotNil(t, got)
		assert.Equal(t, flash{Kind: "success", Message: "gespeichert"}, *got)
	})

	t.Run("unknown kind", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", http.NoBody)
		req.AddCookie(&http.Cookie{Name: flashCookie, Value: url.QueryEscape("alert|<script>")})
		assert.Nil(t, s.popFlash(httptest.NewRecorder(), req))
	})

	t.Run("no cookie", func(t *testing.T) {
		assert.Nil(t, s.popFlash(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody)))
	})
}
