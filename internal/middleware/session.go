package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"

	"github.com/noah-isme/userflow-api/internal/models"
	"github.com/noah-isme/userflow-api/internal/service"
	appErrors "github.com/noah-isme/userflow-api/pkg/errors"
	"github.com/noah-isme/userflow-api/pkg/logger"
	"github.com/noah-isme/userflow-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the validated session.
const ContextSessionKey = "currentSession"

const (
	cookieToken     = "token"
	cookieAccountID = "account_id"
	cookieEmail     = "email"
	cookieFullName  = "full_name"
	cookieRole      = "role"
	cookieCreatedAt = "created_at"
	cookieExports   = "exports"
	cookieFlash     = "flash"

	maxRememberedExports = 5
)

// SessionGate loads sessions from a bearer token or the browser cookie and
// rejects requests whose session is missing, ended or older than its
// lifetime, or whose account is gone or inactive.
type SessionGate struct {
	sessions   *service.SessionService
	store      sessions.Store
	cookieName string
}

// NewSessionGate constructs the gate.
func NewSessionGate(svc *service.SessionService, store sessions.Store, cookieName string) *SessionGate {
	if cookieName == "" {
		cookieName = "userflow_session"
	}
	return &SessionGate{sessions: svc, store: store, cookieName: cookieName}
}

// NewCookieStore builds the signed cookie store used for browser sessions.
func NewCookieStore(secret string, secure bool, ttl time.Duration) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// RequireSession protects API routes. Expired sessions get SESSION_EXPIRED.
func (g *SessionGate) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := g.load(c)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		g.attach(c, session)
		c.Next()
	}
}

// RequirePageSession protects HTML pages by redirecting to the sign-in page.
func (g *SessionGate) RequirePageSession(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := g.load(c)
		if err != nil {
			target := loginPath
			if appErrors.FromError(err).Code == appErrors.ErrSessionExpired.Code {
				target += "?expired=1"
			} else {
				target += "?next=" + url.QueryEscape(c.Request.URL.Path)
			}
			c.Redirect(http.StatusSeeOther, target)
			c.Abort()
			return
		}
		g.attach(c, session)
		c.Next()
	}
}

// Persist writes session into the browser cookie.
func (g *SessionGate) Persist(c *gin.Context, session *models.Session) error {
	cookie, _ := g.store.Get(c.Request, g.cookieName)
	cookie.Values[cookieToken] = session.Token
	cookie.Values[cookieAccountID] = session.AccountID
	cookie.Values[cookieEmail] = session.Email
	cookie.Values[cookieFullName] = session.FullName
	cookie.Values[cookieRole] = string(session.Role)
	cookie.Values[cookieCreatedAt] = session.CreatedAt.Unix()
	return cookie.Save(c.Request, c.Writer)
}

// Forget deletes the browser cookie.
func (g *SessionGate) Forget(c *gin.Context) {
	cookie, _ := g.store.Get(c.Request, g.cookieName)
	cookie.Values = map[interface{}]interface{}{}
	cookie.Options.MaxAge = -1
	_ = cookie.Save(c.Request, c.Writer)
}

// AddFlash queues a one-time message for the next rendered page.
func (g *SessionGate) AddFlash(c *gin.Context, message string) {
	cookie, _ := g.store.Get(c.Request, g.cookieName)
	pending, _ := cookie.Values[cookieFlash].([]string)
	cookie.Values[cookieFlash] = append(pending, message)
	_ = cookie.Save(c.Request, c.Writer)
}

// Flashes pops the queued messages.
func (g *SessionGate) Flashes(c *gin.Context) []string {
	cookie, err := g.store.Get(c.Request, g.cookieName)
	if err != nil {
		return nil
	}
	messages, _ := cookie.Values[cookieFlash].([]string)
	if len(messages) == 0 {
		return nil
	}
	delete(cookie.Values, cookieFlash)
	_ = cookie.Save(c.Request, c.Writer)
	return messages
}

// RememberExport keeps the newest export job ids on the cookie.
func (g *SessionGate) RememberExport(c *gin.Context, jobID string) {
	cookie, _ := g.store.Get(c.Request, g.cookieName)
	ids := append([]string{jobID}, g.exportIDs(cookie)...)
	if len(ids) > maxRememberedExports {
		ids = ids[:maxRememberedExports]
	}
	cookie.Values[cookieExports] = strings.Join(ids, ",")
	_ = cookie.Save(c.Request, c.Writer)
}

// Exports returns the remembered export job ids, newest first.
func (g *SessionGate) Exports(c *gin.Context) []string {
	cookie, err := g.store.Get(c.Request, g.cookieName)
	if err != nil {
		return nil
	}
	return g.exportIDs(cookie)
}

func (g *SessionGate) exportIDs(cookie *sessions.Session) []string {
	raw, _ := cookie.Values[cookieExports].(string)
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// Current returns the session for the request without enforcing it.
func (g *SessionGate) Current(c *gin.Context) *models.Session {
	session, err := g.load(c)
	if err != nil {
		return nil
	}
	return session
}

func (g *SessionGate) load(c *gin.Context) (*models.Session, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header")
		}
		session, err := g.sessions.ParseToken(parts[1])
		if err != nil {
			return nil, err
		}
		return g.validate(c, session)
	}

	cookie, err := g.store.Get(c.Request, g.cookieName)
	if err != nil || cookie.IsNew {
		return nil, appErrors.ErrUnauthorized
	}
	session := sessionFromCookie(cookie)
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	validated, err := g.validate(c, session)
	if err != nil {
		g.Forget(c)
	}
	return validated, err
}

func (g *SessionGate) validate(c *gin.Context, session *models.Session) (*models.Session, error) {
	if err := g.sessions.Verify(c.Request.Context(), session); err != nil {
		return nil, err
	}
	return session, nil
}

func (g *SessionGate) attach(c *gin.Context, session *models.Session) {
	c.Set(ContextSessionKey, session)
	c.Set(logger.ActorKey, session.AccountID)
}

func sessionFromCookie(cookie *sessions.Session) *models.Session {
	token, _ := cookie.Values[cookieToken].(string)
	accountID, _ := cookie.Values[cookieAccountID].(string)
	created, ok := cookie.Values[cookieCreatedAt].(int64)
	if token == "" || accountID == "" || !ok {
		return nil
	}
	email, _ := cookie.Values[cookieEmail].(string)
	name, _ := cookie.Values[cookieFullName].(string)
	role, _ := cookie.Values[cookieRole].(string)
	return &models.Session{
		Token:     token,
		AccountID: accountID,
		Email:     email,
		FullName:  name,
		Role:      models.AccountRole(role),
		CreatedAt: time.Unix(created, 0).UTC(),
	}
}

// SessionFromContext returns the session attached by the gate.
func SessionFromContext(c *gin.Context) *models.Session {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	session, ok := value.(*models.Session)
	if !ok {
		return nil
	}
	return session
}

// ActorFromContext describes the signed-in account for audit entries. It
// returns nil when no session is attached.
func ActorFromContext(c *gin.Context) *models.Actor {
	session := SessionFromContext(c)
	if session == nil {
		return nil
	}
	return &models.Actor{
		ID:        session.AccountID,
		Email:     session.Email,
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
}
