package auth

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	svc         *Service
	google      *GoogleOAuth
	frontendURL string
}

// NewHandlers wires the auth routes. google may be nil when OAuth is not
// configured.
func NewHandlers(svc *Service, google *GoogleOAuth, frontendURL string) *Handlers {
	return &Handlers{svc: svc, google: google, frontendURL: strings.TrimRight(frontendURL, "/")}
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in RegisterInput
	if err := utils.DecodeAndValidate(r, &in); err != nil {
		log.Println("Register decode error:", err)
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sess, err := h.svc.Register(ctx, in)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, sess)
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in LoginInput
	if err := utils.DecodeAndValidate(r, &in); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sess, err := h.svc.Login(ctx, in)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user, err := h.svc.Profile(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"user": user})
}

func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in ProfileInput
	if err := utils.DecodeAndValidate(r, &in); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sess, err := h.svc.UpdateProfile(ctx, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sess)
}

func (h *Handlers) GoogleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.google == nil {
		utils.RespondWithError(w, apperr.New(http.StatusServiceUnavailable, "Google sign-in is not configured"))
		return
	}
	state, err := h.google.State()
	if err != nil {
		utils.RespondWithError(w, apperr.Internal(err, "Failed to start Google sign-in"))
		return
	}
	http.Redirect(w, r, h.google.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback finishes the OAuth flow and hands the token to the
// frontend through a redirect.
func (h *Handlers) GoogleCallback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if h.google == nil {
		utils.RespondWithError(w, apperr.New(http.StatusServiceUnavailable, "Google sign-in is not configured"))
		return
	}

	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.redirectError(w, r, e)
		return
	}
	if err := h.google.VerifyState(q.Get("state")); err != nil {
		h.redirectError(w, r, "invalid_state")
		return
	}
	code := q.Get("code")
	if code == "" {
		h.redirectError(w, r, "missing_code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	profile, err := h.google.Exchange(ctx, code)
	if err != nil {
		log.Printf("google oauth exchange failed: %v", err)
		h.redirectError(w, r, "exchange_failed")
		return
	}

	sess, err := h.svc.GoogleSignIn(ctx, profile)
	if err != nil {
		log.Printf("google sign-in failed: %v", err)
		h.redirectError(w, r, "signin_failed")
		return
	}

	http.Redirect(w, r, h.frontendURL+"/auth/callback?token="+url.QueryEscape(sess.Token), http.StatusTemporaryRedirect)
}

func (h *Handlers) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(reason), http.StatusTemporaryRedirect)
}
