package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/hongminglow/guest-account/internal/http/respond"
	"github.com/hongminglow/guest-account/internal/middleware"
	"github.com/hongminglow/guest-account/internal/models/dto"
)

const maxSignInBody = 4 << 10

// SignInService is the guest sign-in operation the handler exposes.
type SignInService interface {
	SignIn(ctx context.Context, req dto.SignInRequest) (dto.Account, error)
}

// SessionIssuer signs a session token for a signed-in guest.
type SessionIssuer interface {
	Generate(account dto.Account) (string, error)
}

// GuestHandler owns the guest sign-in endpoints.
type GuestHandler struct {
	svc      SignInService
	sessions SessionIssuer
}

// NewGuestHandler constructs the handler. sessions may be nil, in which case
// no session token is issued.
func NewGuestHandler(svc SignInService, sessions SessionIssuer) *GuestHandler {
	return &GuestHandler{svc: svc, sessions: sessions}
}

// Register attaches the sign-in routes to the /api router, both at the top
// level and under the Account group.
func (h *GuestHandler) Register(api *mux.Router) {
	api.HandleFunc("/GuestSignIn", h.handleSignIn).Methods(http.MethodPost)

	account := api.PathPrefix("/Account").Subrouter()
	account.HandleFunc("/GuestSignIn", h.handleSignIn).Methods(http.MethodPost)
}

func (h *GuestHandler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSignIn(w, r)
	if err != nil {
		respond.Status(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if req.CorrelationToken == "" {
		req.CorrelationToken = strings.TrimSpace(r.Header.Get(middleware.CorrelationHeader))
	}

	account, err := h.svc.SignIn(r.Context(), req)
	if err != nil {
		respond.Error(w, err)
		return
	}

	if h.sessions != nil {
		token, err := h.sessions.Generate(account)
		if err != nil {
			respond.Status(w, http.StatusInternalServerError, "failed to issue session token")
			return
		}
		w.Header().Set(middleware.SessionHeader, token)
	}

	respond.JSON(w, http.StatusOK, account)
}

// decodeSignIn reads the optional request body. An empty body is a valid
// request with no correlation token.
func decodeSignIn(w http.ResponseWriter, r *http.Request) (dto.SignInRequest, error) {
	var req dto.SignInRequest
	if r.Body == nil {
		return req, nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSignInBody))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return dto.SignInRequest{}, err
	}
	req.CorrelationToken = strings.TrimSpace(req.CorrelationToken)
	return req, nil
}
