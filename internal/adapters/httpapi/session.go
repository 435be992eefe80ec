package httpapi

import (
	"net/http"
	"strings"

	"elevadorpro/internal/auth"
	"elevadorpro/internal/format"
	"elevadorpro/internal/portal"
	"elevadorpro/internal/sales"
	"elevadorpro/pkg/domain"
)

type loginRequest struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.message(w, r, http.StatusBadRequest, "invalid_body")
		return
	}
	s, err := h.auth.Login(r.Context(), req.Email, req.Senha)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, s)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if token := sessionToken(r); token != "" {
		h.auth.Logout(token)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	s, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// sessionToken reads a bearer token, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// requireSession resolves the caller's session or answers 401.
func (h *Handler) requireSession(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	token := sessionToken(r)
	if token != "" {
		if s, ok := h.auth.Session(token); ok {
			return s, true
		}
	}
	h.message(w, r, http.StatusUnauthorized, "auth_required")
	return auth.Session{}, false
}

type summaryResponse struct {
	sales.Summary
	FaturamentoTexto string `json:"faturamentoTexto"`
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request, view string) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	s, ok := h.requireSession(w, r)
	if !ok {
		return
	}
	if err := auth.Authorize(s.User.Role, domain.RoleFuncionario); err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	switch view {
	case "summary":
		sum, err := h.dashboard.Summary(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, summaryResponse{Summary: sum, FaturamentoTexto: format.Money(sum.Faturamento)})
	case "status":
		counts, err := h.dashboard.Status(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"buckets": sales.Buckets, "counts": counts})
	case "months":
		counts, err := h.dashboard.Months(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"counts": counts})
	case "open":
		ops, err := h.dashboard.Open(ctx)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": ops, "total": len(ops)})
	default:
		h.message(w, r, http.StatusNotFound, "not_found")
	}
}

type portalResponse struct {
	portal.Result
	Message string `json:"message,omitempty"`
}

func (h *Handler) handlePortal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w, r, http.MethodGet)
		return
	}
	q := r.URL.Query()
	res, err := h.portal.Lookup(r.Context(), portal.Query{
		Document: q.Get("documento"),
		Product:  strings.TrimSpace(q.Get("produto")),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := portalResponse{Result: res}
	switch {
	case !res.Found:
		out.Message = h.translator(r).T("portal_no_client")
	case len(res.Orders) == 0:
		out.Message = h.translator(r).T("portal_no_orders")
	}
	writeJSON(w, http.StatusOK, out)
}
