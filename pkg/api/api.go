package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"termcheck/pkg/checker"
	"termcheck/pkg/models"
	"termcheck/pkg/storage"
)

const (
	maxBodySize     = 1 << 20
	defaultLanguage = string(checker.German)
	uuidPattern     = "{id:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}}"
)

// MessageWriter publishes request log entries. *kafka.Writer satisfies it.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type API struct {
	ServiceName string
	DB          storage.Storage
	Checker     *checker.Checker
	Router      *mux.Router
	kw          MessageWriter
}

// New builds the API. kafkaWriter may be nil, in which case request logs
// are not published.
func New(name string, db storage.Storage, chk *checker.Checker, kafkaWriter MessageWriter) *API {
	api := API{
		ServiceName: name,
		DB:          db,
		Checker:     chk,
		Router:      mux.NewRouter(),
		kw:          kafkaWriter,
	}
	api.endpoints()

	return &api
}

func (api *API) endpoints() {
	api.Router.Use(api.requestIDMiddleware)
	api.Router.Use(api.headerMiddleware)

	if api.kw != nil {
		api.Router.Use(api.loggingMiddleware(api.kw))
	}

	api.Router.HandleFunc("/check", api.checkHandler).Methods(http.MethodPost)
	api.Router.HandleFunc("/reload", api.reloadHandler).Methods(http.MethodPost)
	api.Router.HandleFunc("/terms", api.termsHandler).Methods(http.MethodGet)
	api.Router.HandleFunc("/terms", api.addTermsHandler).Methods(http.MethodPost)
	api.Router.HandleFunc("/terms/"+uuidPattern, api.termHandler).Methods(http.MethodGet)
	api.Router.HandleFunc("/terms/"+uuidPattern+"/alternatives", api.alternativesHandler).Methods(http.MethodGet)
}

func (api *API) checkHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var req CheckRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req)
	if err != nil {
		http.Error(w, "Bad Request: invalid JSON", http.StatusBadRequest)
		log.Debugf("[checkHandler][%s] failed to decode request body: %v", sID, err)
		return
	}
	defer r.Body.Close()

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	res, err := api.Checker.Check(req.Text, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, checker.ErrUnsupportedLanguage):
			http.Error(w, err.Error(), http.StatusBadRequest)
			log.Debugf("[checkHandler][%s] %v", sID, err)
		case errors.Is(err, checker.ErrNoIndex):
			http.Error(w, "Term index not loaded", http.StatusServiceUnavailable)
			log.Warnf("[checkHandler][%s] check requested before the term index was loaded", sID)
		default:
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Errorf("[checkHandler][%s] Check() returned error: %v", sID, err)
		}
		return
	}

	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Errorf("[checkHandler][%s] failed to encode response data: %v", sID, err)
		return
	}

	log.Debugf("[checkHandler][%s] %d terms flagged, response sent to: %v", sID, len(res.Terms), r.RemoteAddr)
}

func (api *API) reloadHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	if err := api.Checker.Reload(r.Context()); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[reloadHandler][%s] Reload() returned error: %v", sID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	log.Debugf("[reloadHandler][%s] term index reloaded on request from: %v", sID, r.RemoteAddr)
}

func (api *API) termsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	name := r.URL.Query().Get("language")
	if name == "" {
		name = defaultLanguage
	}
	lang, err := checker.ParseLanguage(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		log.Debugf("[termsHandler][%s] %v", sID, err)
		return
	}

	terms, err := api.DB.Terms(r.Context(), string(lang))
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[termsHandler][%s] Terms() returned error: %v", sID, err)
		return
	}

	api.encode(w, r, "termsHandler", terms)
}

func (api *API) addTermsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	var terms []models.Term
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&terms)
	if err != nil {
		http.Error(w, "Bad Request: invalid JSON", http.StatusBadRequest)
		log.Debugf("[addTermsHandler][%s] failed to decode request body: %v", sID, err)
		return
	}
	defer r.Body.Close()

	for i := range terms {
		if terms[i].Language == "" {
			continue
		}
		lang, err := checker.ParseLanguage(terms[i].Language)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			log.Debugf("[addTermsHandler][%s] %v", sID, err)
			return
		}
		terms[i].Language = string(lang)
	}

	if err := api.DB.AddTerms(r.Context(), terms); err != nil {
		if errors.Is(err, storage.ErrInvalidTerm) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			log.Debugf("[addTermsHandler][%s] %v", sID, err)
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		log.Errorf("[addTermsHandler][%s] AddTerms() returned error: %v", sID, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	log.Infof("[addTermsHandler][%s] %d terms stored", sID, len(terms))
}

func (api *API) termHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := api.termID(w, r, "termHandler")
	if !ok {
		return
	}

	term, err := api.DB.Term(r.Context(), id)
	if err != nil {
		api.storageError(w, r, "termHandler", err)
		return
	}

	api.encode(w, r, "termHandler", term)
}

func (api *API) alternativesHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := api.termID(w, r, "alternativesHandler")
	if !ok {
		return
	}

	alts, err := api.DB.Alternatives(r.Context(), id)
	if err != nil {
		api.storageError(w, r, "alternativesHandler", err)
		return
	}

	api.encode(w, r, "alternativesHandler", alts)
}

func (api *API) termID(w http.ResponseWriter, r *http.Request, handler string) (uuid.UUID, bool) {
	id, err := uuid.FromString(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid UUID parameter", http.StatusBadRequest)
		log.Debugf("[%s][%s] failed to parse term ID: %v", handler, shorten(GetRequestID(r.Context())), err)
		return uuid.Nil, false
	}
	return id, true
}

func (api *API) storageError(w http.ResponseWriter, r *http.Request, handler string, err error) {
	sID := shorten(GetRequestID(r.Context()))

	if errors.Is(err, storage.ErrTermNotFound) {
		http.Error(w, "Term not found", http.StatusNotFound)
		log.Debugf("[%s][%s] %v", handler, sID, err)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	log.Errorf("[%s][%s] storage returned error: %v", handler, sID, err)
}

func (api *API) encode(w http.ResponseWriter, r *http.Request, handler string, v any) {
	sID := shorten(GetRequestID(r.Context()))

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("[%s][%s] failed to encode response data: %v", handler, sID, err)
		return
	}
	log.Debugf("[%s][%s] response sent to: %v", handler, sID, r.RemoteAddr)
}

// GetRequestID extracts the request ID from the context.
// It returns the request ID as a string if present, otherwise returns an empty string.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// shorten truncates a string to 6 characters if it is longer than 6, appends '...' at the end,
// otherwise it returns the string unchanged.
func shorten(s string) string {
	if len(s) > 6 {
		return s[:6] + "..."
	}
	return s
}
