package fakeapi

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/jrsteele09/weeb-client/users"
)

// requireStaff is requireAuth restricted to staff accounts.
func (s *Server) requireStaff(next http.HandlerFunc) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := s.currentProfile(r); !ok || !p.IsStaff {
			writeDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		next(w, r)
	})
}

func (s *Server) listUsersHandler(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.accounts) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "results": "No users found."})
		return
	}

	profiles := make([]users.Profile, 0, len(s.accounts))
	for _, a := range s.accounts {
		profiles = append(profiles, a.profile)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].ID < profiles[j].ID })
	writeJSON(w, http.StatusOK, envelope(profiles, ""))
}

func (s *Server) getUserHandler(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.lock.Lock()
	defer s.lock.Unlock()
	for _, a := range s.accounts {
		if a.profile.ID == id {
			writeJSON(w, http.StatusOK, envelope(a.profile, ""))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "results": "No user found."})
}
