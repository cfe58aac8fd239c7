package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/redact"
	"github.com/dmitrijs2005/authkeeper/internal/server/metrics"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/dmitrijs2005/authkeeper/internal/server/services"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	User         models.UserSummary `json:"user"`
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
}

// refreshRequest accepts the token as refresh_token or refreshToken.
type refreshRequest struct {
	RefreshToken      string `json:"refresh_token"`
	RefreshTokenCamel string `json:"refreshToken"`
}

func (r refreshRequest) token() string {
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.RefreshTokenCamel
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeStrict(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Create(r.Context(), services.CreateUserInput{Name: req.Name, Email: req.Email, Password: req.Password})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			s.requestLogger(r).Info(r.Context(), "registration conflict", "email", redact.Email(req.Email))
		}
		s.writeError(w, r, err)
		return
	}

	s.requestLogger(r).Info(r.Context(), "user created", "user_id", u.ID)
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	all, err := s.users.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func isRejection(err error) bool {
	k := common.KindOf(err)
	return k == common.KindInvalidCredentials || k == common.KindInvalidInput
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeStrict(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.auth.Login(r.Context(), req.Email, req.Password)
	s.metrics.Logins.WithLabelValues(metrics.Outcome(err, isRejection)).Inc()
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.requestLogger(r).Info(r.Context(), "login rejected", "email", redact.Email(req.Email))
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeStrict(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.auth.Refresh(r.Context(), req.token())
	s.metrics.Refreshes.WithLabelValues(metrics.Outcome(err, isRejection)).Inc()
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.requestLogger(r).Info(r.Context(), "refresh rejected", "token", redact.Token(req.token()))
		}
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: res.AccessToken})
}

// callerHandler receives the identity verified from the access token.
type callerHandler func(w http.ResponseWriter, r *http.Request, caller services.Caller)

// withCaller verifies the bearer token and passes the caller to h.
func (s *Server) withCaller(h callerHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.writeError(w, r, common.ErrInvalidCredentials)
			return
		}
		caller, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			s.requestLogger(r).Info(r.Context(), "access token rejected", "token", redact.Token(token))
			s.writeError(w, r, err)
			return
		}
		h(w, r, caller)
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request, caller services.Caller) {
	u, err := s.users.Profile(r.Context(), caller.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request, caller services.Caller) {
	var req updateUserRequest
	if err := decodeStrict(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	u, err := s.users.Update(r.Context(), caller.ID, services.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request, caller services.Caller) {
	if err := s.users.Delete(r.Context(), caller.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.requestLogger(r).Info(r.Context(), "user deleted", "user_id", caller.ID)
	w.WriteHeader(http.StatusNoContent)
}
