package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"

	"termcheck/pkg/checker"
	"termcheck/pkg/models"
	"termcheck/pkg/storage/memdb"
)

const testRequestID = "9b4f6c5d-1a32-4d8f-b5a6-23c9e1f7d2a1"

var testTerms = []models.Term{
	{Surface: "color", Language: "english"},
	{Surface: "color blind", Language: "english"},
	{Surface: "sensitive terms", Language: "english"},
	{Surface: "race", Language: "english", Translations: []string{"Rasse"}},
	{Surface: "ethnicity", Language: "english", Translations: []string{"Rasse", "Ethnie"}},
	{Surface: "Rasse", Language: "german", Translations: []string{"race", "Rasse"}},
}

func TestMain(m *testing.M) {
	log.SetLevel(log.PanicLevel)
	exitCode := m.Run()
	os.Exit(exitCode)
}

// newTestAPI returns an API over a seeded memdb store. The term index is
// loaded only when reload is true.
func newTestAPI(t *testing.T, reload bool) *API {
	t.Helper()

	db := memdb.New()
	if err := db.AddTerms(context.Background(), testTerms); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	chk, err := checker.New(db, checker.Options{})
	if err != nil {
		t.Fatalf("failed to create checker: %v", err)
	}
	if reload {
		if err := chk.Reload(context.Background()); err != nil {
			t.Fatalf("failed to load term index: %v", err)
		}
	}

	return New("termcheck", db, chk, nil)
}

func serve(api *API, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("X-Request-Id", testRequestID)
	rr := httptest.NewRecorder()
	api.Router.ServeHTTP(rr, req)
	return rr
}

func TestAPI_checkHandler(t *testing.T) {
	api := newTestAPI(t, true)

	b, err := json.Marshal(CheckRequest{
		Text:     "Text to check for sensitive terms like color and some more text like race",
		Language: "english",
	})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}

	rr := serve(api, http.MethodPost, "/check", b)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}
	if got := rr.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("want content type application/json, got %q", got)
	}

	var res checker.Result
	if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}

	var flagged, joined []string
	for _, s := range res.Segments {
		joined = append(joined, s.Text)
		if s.Flagged {
			flagged = append(flagged, s.Text)
			if s.Term == nil {
				t.Errorf("want term on flagged segment %q", s.Text)
			}
		}
	}

	wantFlagged := []string{"sensitive terms", "color", "race"}
	if strings.Join(flagged, "|") != strings.Join(wantFlagged, "|") {
		t.Errorf("want flagged %q, got %q", wantFlagged, flagged)
	}
	if got := strings.Join(joined, ""); got != "Text to check for sensitive terms like color and some more text like race" {
		t.Errorf("want segments to reconstruct the input, got %q", got)
	}
	if len(res.Terms) != 3 {
		t.Errorf("want 3 terms, got %d", len(res.Terms))
	}
}

func TestAPI_checkHandlerErrors(t *testing.T) {
	tests := []struct {
		name     string
		reload   bool
		body     string
		wantCode int
	}{
		{"invalid json", true, `{"text":`, http.StatusBadRequest},
		{"unsupported language", true, `{"text":"race","language":"klingon"}`, http.StatusBadRequest},
		{"language not configured", true, `{"text":"race","language":"french"}`, http.StatusBadRequest},
		{"index not loaded", false, `{"text":"race","language":"english"}`, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, tt.reload)
			rr := serve(api, http.MethodPost, "/check", []byte(tt.body))
			if rr.Code != tt.wantCode {
				t.Errorf("want status code %v, got status code %v", tt.wantCode, rr.Code)
			}
		})
	}
}

func TestAPI_checkHandlerDefaultLanguage(t *testing.T) {
	api := newTestAPI(t, true)

	tests := []struct {
		name        string
		body        string
		wantFlagged []string
	}{
		{"no language is german", `{"text":"Die Rasse und die race"}`, []string{"Rasse"}},
		{"explicit english", `{"text":"Die Rasse und die race","language":"english"}`, []string{"race"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(api, http.MethodPost, "/check", []byte(tt.body))
			if rr.Code != http.StatusOK {
				t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
			}

			var res checker.Result
			if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
				t.Fatalf("failed to unmarshal response body: %v", err)
			}
			var flagged []string
			for _, s := range res.Segments {
				if s.Flagged {
					flagged = append(flagged, s.Text)
				}
			}
			if strings.Join(flagged, "|") != strings.Join(tt.wantFlagged, "|") {
				t.Errorf("want flagged %q, got %q", tt.wantFlagged, flagged)
			}
		})
	}
}

func TestAPI_termsHandler(t *testing.T) {
	api := newTestAPI(t, false)

	tests := []struct {
		name     string
		target   string
		wantCode int
		want     []string
	}{
		{"english", "/terms?language=english", http.StatusOK, []string{"color", "color blind", "ethnicity", "race", "sensitive terms"}},
		{"iso code", "/terms?language=de", http.StatusOK, []string{"Rasse"}},
		{"default is german", "/terms", http.StatusOK, []string{"Rasse"}},
		{"unsupported", "/terms?language=klingon", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(api, http.MethodGet, tt.target, nil)
			if rr.Code != tt.wantCode {
				t.Fatalf("want status code %v, got status code %v", tt.wantCode, rr.Code)
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			var terms []models.Term
			if err := json.NewDecoder(rr.Body).Decode(&terms); err != nil {
				t.Fatalf("failed to unmarshal response body: %v", err)
			}
			var got []string
			for _, term := range terms {
				got = append(got, term.Surface)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("want terms %q, got %q", tt.want, got)
			}
		})
	}
}

func TestAPI_termHandler(t *testing.T) {
	api := newTestAPI(t, false)
	id := models.NewTermID("english", "race")

	rr := serve(api, http.MethodGet, "/terms/"+id.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}
	var term models.Term
	if err := json.NewDecoder(rr.Body).Decode(&term); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if term.ID != id || term.Surface != "race" {
		t.Errorf("want term race with id %v, got %+v", id, term)
	}

	rr = serve(api, http.MethodGet, "/terms/"+uuid.Must(uuid.NewV4()).String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("want status code %v, got status code %v", http.StatusNotFound, rr.Code)
	}

	rr = serve(api, http.MethodGet, "/terms/not-a-uuid", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("want status code %v for unmatched route, got status code %v", http.StatusNotFound, rr.Code)
	}
}

func TestAPI_alternativesHandler(t *testing.T) {
	api := newTestAPI(t, false)
	id := models.NewTermID("english", "race")

	rr := serve(api, http.MethodGet, "/terms/"+id.String()+"/alternatives", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("want status code %v, got status code %v", http.StatusOK, rr.Code)
	}

	var alts []models.Term
	if err := json.NewDecoder(rr.Body).Decode(&alts); err != nil {
		t.Fatalf("failed to unmarshal response body: %v", err)
	}
	if len(alts) != 2 || alts[0].Surface != "Rasse" || alts[1].Surface != "ethnicity" {
		t.Errorf("want alternatives [Rasse ethnicity], got %+v", alts)
	}

	rr = serve(api, http.MethodGet, "/terms/"+uuid.Must(uuid.NewV4()).String()+"/alternatives", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("want status code %v, got status code %v", http.StatusNotFound, rr.Code)
	}
}

func TestAPI_addTermsAndReload(t *testing.T) {
	api := newTestAPI(t, true)

	check := func() int {
		rr := serve(api, http.MethodPost, "/check", []byte(`{"text":"a slur here","language":"english"}`))
		var res checker.Result
		if err := json.NewDecoder(rr.Body).Decode(&res); err != nil {
			t.Fatalf("failed to unmarshal response body: %v", err)
		}
		return len(res.Terms)
	}

	if n := check(); n != 0 {
		t.Fatalf("want no terms before adding, got %d", n)
	}

	rr := serve(api, http.MethodPost, "/terms", []byte(`[{"term":"slur","language":"en"}]`))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("want status code %v, got status code %v", http.StatusNoContent, rr.Code)
	}
	if n := check(); n != 0 {
		t.Errorf("want no terms before reload, got %d", n)
	}

	rr = serve(api, http.MethodPost, "/reload", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("want status code %v, got status code %v", http.StatusNoContent, rr.Code)
	}
	if n := check(); n != 1 {
		t.Errorf("want 1 term after reload, got %d", n)
	}

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `[{"term":`},
		{"unsupported language", `[{"term":"slur","language":"klingon"}]`},
		{"empty surface", `[{"term":" ","language":"english"}]`},
		{"surface taken by another id", `[{"id":"0a1b2c3d-0000-4000-8000-000000000001","term":"race","language":"english"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(api, http.MethodPost, "/terms", []byte(tt.body))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("want status code %v, got status code %v", http.StatusBadRequest, rr.Code)
			}
		})
	}
}

func Test_shorten(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"abc":         "abc",
		"abcdef":      "abcdef",
		testRequestID: "9b4f6c...",
	}
	for in, want := range tests {
		if got := shorten(in); got != want {
			t.Errorf("shorten(%q): want %q, got %q", in, want, got)
		}
	}
}
