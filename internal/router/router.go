// Package router wires the journal's HTTP surface: HTML pages, form and JSON
// endpoints for users and records, and a health check.
package router

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/moodjournal/internal/auth"
	"github.com/patric-chuzhbe/moodjournal/internal/authenticator"
	"github.com/patric-chuzhbe/moodjournal/internal/gzippedhttp"
	"github.com/patric-chuzhbe/moodjournal/internal/logger"
	"github.com/patric-chuzhbe/moodjournal/internal/models"
	"github.com/patric-chuzhbe/moodjournal/internal/user"
)

//go:embed templates/*.html
var templatesFS embed.FS

// DateLayout renders record dates like "Mar 05, 2024, 09:07 PM".
const DateLayout = "Jan 02, 2006, 03:04 PM"

const (
	pageHome   = "index.html"
	pageSignIn = "sign-in.html"
	pageSignUp = "sign-up.html"
	pageRecord = "record.html"
)

type journal interface {
	Submit(ctx context.Context, sess *models.Session, emotion, content string) (*models.Record, error)
	ListByUser(ctx context.Context, sess *models.Session) (models.Records, error)
	Ping(ctx context.Context) error
}

type accounts interface {
	authenticator.Authenticator
	Register(ctx context.Context, request models.SignUpRequest) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.Session, string, error)
	EndSession(ctx context.Context, token string) error
	SetSessionCookie(response http.ResponseWriter, token string) error
	ClearSessionCookie(response http.ResponseWriter)
}

type Router struct {
	journal  journal
	accounts accounts
	pages    map[string]*template.Template
	location *time.Location
}

type recordCard struct {
	Date     string
	Emotion  string
	Content  string
	Response string
}

type homePage struct {
	FirstName string
	Cards     []recordCard
}

type InitOption func(*Router)

// WithLocation sets the time zone record dates are rendered in. Defaults to time.Local.
func WithLocation(location *time.Location) InitOption {
	return func(r *Router) {
		r.location = location
	}
}

// New returns the journal HTTP handler.
func New(journalService journal, accountsService accounts, optionsProto ...InitOption) (http.Handler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	myRouter := &Router{
		journal:  journalService,
		accounts: accountsService,
		pages:    pages,
		location: time.Local,
	}
	for _, protoOption := range optionsProto {
		protoOption(myRouter)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		logger.WithLoggingHTTPMiddleware,
		middleware.Recoverer,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
		accountsService.LoadSession,
	)

	router.Get(`/ping`, myRouter.GetPing)

	router.Group(func(r chi.Router) {
		r.Use(accountsService.RedirectIfAuthenticated)
		r.Get(`/sign-up`, myRouter.GetSignUp)
		r.Get(`/sign-in`, myRouter.GetSignIn)
	})

	router.Route(`/user`, func(r chi.Router) {
		r.Post(`/sign-up`, myRouter.PostUserSignUp)
		r.Post(`/sign-in`, myRouter.PostUserSignIn)
		r.Post(`/sign-out`, myRouter.PostUserSignOut)
	})

	router.Group(func(r chi.Router) {
		r.Use(accountsService.RequireSession)
		r.Get(`/`, myRouter.GetHome)
		r.Get(`/record`, myRouter.GetRecord)
		r.Post(`/record`, myRouter.PostRecord)
		r.Get(`/api/user/records`, myRouter.GetAPIUserRecords)
	})

	return router, nil
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, page := range []string{pageHome, pageSignIn, pageSignUp, pageRecord} {
		tmpl, err := template.ParseFS(templatesFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("in internal/router/router.go/parsePages(): error while `template.ParseFS()` calling for %s: %w", page, err)
		}
		pages[page] = tmpl
	}

	return pages, nil
}

func (r *Router) render(response http.ResponseWriter, page string, data interface{}) {
	response.Header().Set("Content-Type", "text/html; charset=utf-8")
	response.WriteHeader(http.StatusOK)
	if err := r.pages[page].ExecuteTemplate(response, "layout", data); err != nil {
		logger.Log.Errorw("Error calling the `ExecuteTemplate()`", "page", page, zap.Error(err))
	}
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}

func writeError(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.StatusResponse{Status: "error", Message: message})
}

// readFields returns the named string fields of a JSON or form encoded body.
// Missing fields are empty strings.
func readFields(request *http.Request, names ...string) (map[string]string, error) {
	fields := make(map[string]string, len(names))

	if strings.HasPrefix(request.Header.Get("Content-Type"), "application/json") {
		raw := map[string]interface{}{}
		if err := json.NewDecoder(request.Body).Decode(&raw); err != nil {
			return nil, err
		}
		for _, name := range names {
			if value, ok := raw[name].(string); ok {
				fields[name] = value
			}
		}
		return fields, nil
	}

	if err := request.ParseForm(); err != nil {
		return nil, err
	}
	for _, name := range names {
		fields[name] = request.PostForm.Get(name)
	}

	return fields, nil
}

func (r *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := r.journal.Ping(request.Context()); err != nil {
		logger.Log.Errorw("Error calling the `r.journal.Ping()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

func (r *Router) GetSignUp(response http.ResponseWriter, request *http.Request) {
	r.render(response, pageSignUp, nil)
}

func (r *Router) GetSignIn(response http.ResponseWriter, request *http.Request) {
	r.render(response, pageSignIn, nil)
}

func (r *Router) GetRecord(response http.ResponseWriter, request *http.Request) {
	r.render(response, pageRecord, nil)
}

func (r *Router) GetHome(response http.ResponseWriter, request *http.Request) {
	sess := auth.SessionFromContext(request.Context())

	records, err := r.journal.ListByUser(request.Context(), sess)
	if err != nil {
		logger.Log.Errorw("Error calling the `r.journal.ListByUser()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	page := homePage{
		FirstName: strings.TrimSpace(sess.FirstName),
		Cards:     make([]recordCard, 0, len(records)),
	}
	for _, record := range records {
		page.Cards = append(page.Cards, recordCard{
			Date:     record.CreatedDate.In(r.location).Format(DateLayout),
			Emotion:  record.Emotion,
			Content:  record.Content,
			Response: record.Response,
		})
	}

	r.render(response, pageHome, page)
}

func (r *Router) GetAPIUserRecords(response http.ResponseWriter, request *http.Request) {
	records, err := r.journal.ListByUser(request.Context(), auth.SessionFromContext(request.Context()))
	if err != nil {
		logger.Log.Errorw("Error calling the `r.journal.ListByUser()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	if len(records) == 0 {
		response.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(response, http.StatusOK, records)
}

func (r *Router) PostUserSignUp(response http.ResponseWriter, request *http.Request) {
	fields, err := readFields(request, "firstName", "lastName", "email", "password")
	if err != nil {
		response.WriteHeader(http.StatusBadRequest)
		return
	}

	_, err = r.accounts.Register(request.Context(), models.SignUpRequest{
		FirstName: fields["firstName"],
		LastName:  fields["lastName"],
		Email:     fields["email"],
		Password:  fields["password"],
	})
	if err != nil {
		logger.Log.Errorw("Error calling the `r.accounts.Register()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, auth.SignInPath, http.StatusFound)
}

func (r *Router) PostUserSignIn(response http.ResponseWriter, request *http.Request) {
	fields, err := readFields(request, "email", "password")
	if err != nil {
		response.WriteHeader(http.StatusBadRequest)
		return
	}

	credentials := models.SignInRequest{
		Email:    fields["email"],
		Password: fields["password"],
	}

	_, token, err := r.accounts.Authenticate(request.Context(), credentials.Email, credentials.Password)
	if errors.Is(err, models.ErrInvalidCredentials) {
		writeError(response, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		logger.Log.Errorw("Error calling the `r.accounts.Authenticate()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := r.accounts.SetSessionCookie(response, token); err != nil {
		logger.Log.Errorw("Error calling the `r.accounts.SetSessionCookie()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, auth.HomePath, http.StatusFound)
}

func (r *Router) PostUserSignOut(response http.ResponseWriter, request *http.Request) {
	if err := r.accounts.EndSession(request.Context(), auth.TokenFromContext(request.Context())); err != nil {
		logger.Log.Errorw("Error calling the `r.accounts.EndSession()`", zap.Error(err))
		writeError(response, http.StatusInternalServerError, "Logout failed")
		return
	}

	r.accounts.ClearSessionCookie(response)
	http.Redirect(response, request, auth.SignInPath, http.StatusFound)
}

func (r *Router) PostRecord(response http.ResponseWriter, request *http.Request) {
	fields, err := readFields(request, "emotion", "content")
	if err != nil {
		response.WriteHeader(http.StatusBadRequest)
		return
	}

	_, err = r.journal.Submit(
		request.Context(),
		auth.SessionFromContext(request.Context()),
		fields["emotion"],
		fields["content"],
	)
	if errors.Is(err, models.ErrUnauthenticated) {
		auth.WriteUnauthenticated(response)
		return
	}
	if errors.Is(err, models.ErrCompletionFailed) {
		writeError(response, http.StatusBadGateway, "Completion provider unavailable")
		return
	}
	if err != nil {
		logger.Log.Errorw("Error calling the `r.journal.Submit()`", zap.Error(err))
		response.WriteHeader(http.StatusInternalServerError)
		return
	}

	http.Redirect(response, request, auth.HomePath, http.StatusFound)
}
