package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/auth"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

const healthTimeout = 2 * time.Second

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=3"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,password_policy"`
}

func (r *RegisterRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

type RegisteredUser struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type RegisterResponse struct {
	Message string         `json:"message"`
	User    RegisteredUser `json:"user"`
}

type LoggedInUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginResponse struct {
	Message string       `json:"message"`
	User    LoggedInUser `json:"user"`
}

type MeResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

const msgMalformedBody = "request body must be a valid JSON object"

// bind decodes the JSON body into dst, trims it and validates it. Properties
// the request type does not declare are rejected.
func (s *Server) bind(c *gin.Context, dst any) error {
	if c.Request.Body == nil {
		return &ValidationError{Messages: []string{msgMalformedBody}}
	}

	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if field, ok := unknownField(err); ok {
			return &ValidationError{Messages: []string{"property " + field + " should not exist"}}
		}
		return &ValidationError{Messages: []string{msgMalformedBody}}
	}

	if n, ok := dst.(interface{ normalize() }); ok {
		n.normalize()
	}
	return s.validateStruct(dst)
}

// unknownField extracts the property name from encoding/json's
// DisallowUnknownFields error, which has no typed form.
func unknownField(err error) (string, bool) {
	quoted, ok := strings.CutPrefix(err.Error(), "json: unknown field ")
	if !ok {
		return "", false
	}
	field, uerr := strconv.Unquote(quoted)
	if uerr != nil {
		return quoted, true
	}
	return field, true
}

func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := s.bind(c, &req); err != nil {
		s.abortWithError(c, err)
		return
	}

	res, err := s.sessions.Register(c.Request.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	if err := s.cookies.setTokens(c, res.Tokens); err != nil {
		s.abortWithError(c, fmt.Errorf("encode cookies: %w", err))
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		Message: res.Message,
		User: RegisteredUser{
			ID:        res.User.ID,
			Name:      res.User.Name,
			Email:     res.User.Email,
			CreatedAt: res.User.CreatedAt,
		},
	})
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := s.bind(c, &req); err != nil {
		s.abortWithError(c, err)
		return
	}

	res, err := s.sessions.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	if err := s.cookies.setTokens(c, res.Tokens); err != nil {
		s.abortWithError(c, fmt.Errorf("encode cookies: %w", err))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message: res.Message,
		User: LoggedInUser{
			ID:    res.User.ID,
			Name:  res.User.Name,
			Email: res.User.Email,
		},
	})
}

func (s *Server) me(c *gin.Context) {
	id, ok := auth.IdentityFromContext(c.Request.Context())
	if !ok {
		s.abortWithError(c, common.ErrUnauthenticated)
		return
	}
	c.JSON(http.StatusOK, MeResponse{Name: id.Name, Email: id.Email})
}

func (s *Server) refresh(c *gin.Context) {
	token := s.cookies.refreshToken(c)
	if token == "" {
		s.abortWithError(c, fmt.Errorf("%w: no refresh cookie", common.ErrInvalidRefreshToken))
		return
	}

	pair, err := s.sessions.Refresh(c.Request.Context(), token)
	if err != nil {
		s.abortWithError(c, err)
		return
	}

	if err := s.cookies.setTokens(c, pair); err != nil {
		s.abortWithError(c, fmt.Errorf("encode cookies: %w", err))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: services.MsgRefreshed})
}

func (s *Server) logout(c *gin.Context) {
	msg := s.sessions.Logout(c.Request.Context())
	s.cookies.clear(c)
	c.JSON(http.StatusOK, MessageResponse{Message: msg})
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := s.store.PingContext(ctx); err != nil {
		s.log.Warn(ctx, "health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
