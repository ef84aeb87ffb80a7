package http

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lotusmind/yogachat/internal/domain"
	chatuc "github.com/lotusmind/yogachat/internal/usecase/chat"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// pageData feeds the server-rendered chat page.
type pageData struct {
	Token         string
	Messages      []domain.Message
	Usage         UsageResponse
	Blocked       bool
	Authenticated bool
	Username      string
	ContactURL    string
	ShowLogin     bool
}

// handlePage renders the chat page. A visitor arriving without a token gets
// one minted and put into the address bar, so the identity survives reloads
// within the same browsing context.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	token := visitorToken(r)
	if token == "" {
		q := url.Values{"v": []string{uuid.NewString()}}
		http.Redirect(w, r, "/?"+q.Encode(), http.StatusFound)
		return
	}

	status, state, err := s.chat.Refresh(r.Context(), token)
	if err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	sess := s.chat.Session(token)
	id := sess.Identity()
	blocked := state == chatuc.StateBlocked

	data := pageData{
		Token:         token,
		Messages:      sess.History(),
		Usage:         s.usageResponse(status, state),
		Blocked:       blocked,
		Authenticated: id.Authenticated,
		Username:      id.Key,
		ContactURL:    s.contactURL,
		ShowLogin:     !id.Authenticated && !blocked,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render template", zap.Error(err))
	}
}
