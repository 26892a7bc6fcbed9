package fakeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/users"
)

type contextKey string

const contextKeyEmail contextKey = "email"

// AddUser creates an account directly, bypassing registration, and returns its profile.
func (s *Server) AddUser(email, password string, active, staff bool, groups ...users.GroupType) users.Profile {
	hash, err := hashPassword(password)
	if err != nil {
		panic(err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.nextUserID++
	a := &account{
		profile: users.Profile{
			ID:        s.nextUserID,
			Email:     email,
			FirstName: "Test",
			LastName:  "User",
			IsActive:  active,
			IsStaff:   staff,
			Groups:    groups,
		},
		passwordHash: hash,
	}
	s.accounts[email] = a
	return a.profile
}

// Activate flips the activation flag of a registered account.
func (s *Server) Activate(email string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if a, ok := s.accounts[email]; ok {
		a.profile.IsActive = true
	}
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.refresh = make(map[string]string)
}

// IssueTokens mints a valid access/refresh pair for email as if it had logged in.
func (s *Server) IssueTokens(email string) (access, refresh string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.issueAccessLocked(email), s.issueRefreshLocked(email)
}

// SetLogoutStatus makes the logout endpoint answer with status (0 restores normal behavior).
func (s *Server) SetLogoutStatus(status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.logoutStatus = status
}

// RefreshTokenValid reports whether refresh would still be accepted.
func (s *Server) RefreshTokenValid(refresh string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	_, ok := s.refresh[refresh]
	return ok
}

func (s *Server) issueAccessLocked(email string) string {
	s.accessSeq++
	tok := fmt.Sprintf("tok%d", s.accessSeq)
	if s.jwtSecret != nil {
		claims := jwtlib.RegisteredClaims{
			Subject:   email,
			ID:        uuid.New().String(),
			IssuedAt:  jwtlib.NewNumericDate(time.Now()),
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(s.accessTTL)),
		}
		signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.jwtSecret)
		if err != nil {
			panic(err)
		}
		tok = signed
	}
	s.access[tok] = email
	return tok
}

func (s *Server) issueRefreshLocked(email string) string {
	s.refreshSeq++
	tok := fmt.Sprintf("ref%d", s.refreshSeq)
	s.refresh[tok] = email
	return tok
}

// authenticate resolves the bearer token. ok is false only when a header was sent and
// is not valid; an absent header is anonymous.
func (s *Server) authenticate(r *http.Request) (email string, ok bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", true
	}
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found {
		return "", false
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	email, ok = s.access[raw]
	if ok && s.jwtSecret != nil {
		_, err := jwtlib.Parse(raw, func(*jwtlib.Token) (any, error) { return s.jwtSecret, nil },
			jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}))
		ok = err == nil
	}
	return email, ok
}

func (s *Server) optionalAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, ok := s.authenticate(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, apimodel.DetailResponse{Detail: "Given token not valid for any token type", Code: "token_not_valid"})
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), contextKeyEmail, email)))
	}
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.optionalAuth(func(w http.ResponseWriter, r *http.Request) {
		if currentEmail(r) == "" {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		next(w, r)
	})
}

func currentEmail(r *http.Request) string {
	email, _ := r.Context().Value(contextKeyEmail).(string)
	return email
}

func (s *Server) currentProfile(r *http.Request) (users.Profile, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	a, ok := s.accounts[currentEmail(r)]
	if !ok {
		return users.Profile{}, false
	}
	return a.profile, true
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	var req apimodel.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}
	if err := req.Validate(); err != nil {
		fe := err.(*apimodel.FieldErrors)
		writeJSON(w, http.StatusBadRequest, fe.Fields)
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"user with this email already exists."}})
		return
	}

	// New accounts wait for an administrator to activate them
	s.nextUserID++
	a := &account{
		profile: users.Profile{
			ID:        s.nextUserID,
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		},
		passwordHash: hash,
	}
	s.accounts[req.Email] = a
	writeJSON(w, http.StatusCreated, a.profile)
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req apimodel.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error")
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	a, ok := s.accounts[req.Email]
	if !ok || !a.profile.IsActive || !checkPasswordHash(req.Password, a.passwordHash) {
		writeDetail(w, http.StatusUnauthorized, "No active account found with the given credentials")
		return
	}

	profile := a.profile
	writeJSON(w, http.StatusOK, apimodel.LoginResponse{
		Access:  s.issueAccessLocked(req.Email),
		Refresh: s.issueRefreshLocked(req.Email),
		User:    &profile,
	})
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	if s.refreshGate != nil {
		<-s.refreshGate
	}

	var req apimodel.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh": {"This field is required."}})
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	email, ok := s.refresh[req.Refresh]
	if !ok {
		writeJSON(w, http.StatusUnauthorized, apimodel.DetailResponse{Detail: "Token is invalid or expired", Code: "token_not_valid"})
		return
	}

	resp := apimodel.RefreshResponse{Access: s.issueAccessLocked(email)}
	if s.rotate {
		delete(s.refresh, req.Refresh)
		resp.Refresh = s.issueRefreshLocked(email)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	status := s.logoutStatus
	s.lock.Unlock()
	if status != 0 {
		writeDetail(w, status, "logout unavailable")
		return
	}

	var req apimodel.LogoutRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.lock.Lock()
	delete(s.refresh, req.Refresh)
	s.lock.Unlock()

	writeDetail(w, http.StatusOK, "Successfully logged out.")
}

func (s *Server) meHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := s.currentProfile(r)
	if !ok {
		writeDetail(w, http.StatusNotFound, "User not found.")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
