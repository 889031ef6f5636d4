package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/focusnest/auth-service/internal/apperror"
	"github.com/focusnest/auth-service/internal/auth"
	"github.com/focusnest/auth-service/internal/dto"
	"github.com/focusnest/auth-service/internal/user"
)

// Dependencies are the collaborators of the account routes.
type Dependencies struct {
	Users    *user.Service
	Verifier auth.Verifier
	// Issuer is nil when tokens come from an external identity provider; the
	// register and login routes are then not mounted.
	Issuer  auth.TokenIssuer
	Respond apperror.RespondFunc
}

// RegisterRoutes wires account routes onto the provided router.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	h := &handler{users: deps.Users, issuer: deps.Issuer}
	respond := deps.Respond

	r.Route("/v1", func(r chi.Router) {
		if deps.Issuer != nil {
			r.Post("/auth/register", handle(respond, h.register))
			r.Post("/auth/login", handle(respond, h.login))
		}

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(deps.Verifier, respond))

			r.Get("/users", handle(respond, h.list))
			r.Get("/users/me", handle(respond, h.me))
			r.Patch("/users/me", handle(respond, h.updateMe))
			r.Delete("/users/me", handle(respond, h.deleteMe))
			r.Get("/users/{id}", handle(respond, h.get))
		})
	})
}

type handler struct {
	users  *user.Service
	issuer auth.TokenIssuer
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=80"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type updateRequest struct {
	Name string `json:"name" validate:"required,max=80"`
}

type userEnvelope struct {
	Success bool             `json:"success"`
	User    dto.UserResponse `json:"user"`
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) error {
	var body registerRequest
	if err := decodeJSON(w, r, &body); err != nil {
		return err
	}

	created, err := h.users.Register(r.Context(), user.RegisterInput{
		Name:     body.Name,
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		return err
	}

	return h.writeToken(w, http.StatusCreated, created)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) error {
	var body loginRequest
	if err := decodeJSON(w, r, &body); err != nil {
		return err
	}

	account, err := h.users.Authenticate(r.Context(), body.Email, body.Password)
	if err != nil {
		return err
	}

	return h.writeToken(w, http.StatusOK, account)
}

func (h *handler) writeToken(w http.ResponseWriter, status int, account user.User) error {
	token, err := h.issuer.Issue(account.ID)
	if err != nil {
		return apperror.WithStack(fmt.Errorf("issue token: %w", err))
	}

	writeJSON(w, status, dto.TokenResponse{
		Success:   true,
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
		User:      mapUser(account),
	})
	return nil
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) error {
	current, err := currentUser(r)
	if err != nil {
		return err
	}

	account, err := h.users.Get(r.Context(), current.UserID)
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, userEnvelope{Success: true, User: mapUser(account)})
	return nil
}

func (h *handler) updateMe(w http.ResponseWriter, r *http.Request) error {
	current, err := currentUser(r)
	if err != nil {
		return err
	}

	var body updateRequest
	if err := decodeJSON(w, r, &body); err != nil {
		return err
	}

	account, err := h.users.Update(r.Context(), user.UpdateInput{UserID: current.UserID, Name: body.Name})
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, userEnvelope{Success: true, User: mapUser(account)})
	return nil
}

func (h *handler) deleteMe(w http.ResponseWriter, r *http.Request) error {
	current, err := currentUser(r)
	if err != nil {
		return err
	}

	if err := h.users.Delete(r.Context(), current.UserID); err != nil {
		return err
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) error {
	account, err := h.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return err
	}

	writeJSON(w, http.StatusOK, userEnvelope{Success: true, User: mapUser(account)})
	return nil
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	page := user.Pagination{
		Page:     parsePositiveInt(query.Get("page"), 1),
		PageSize: parsePositiveInt(query.Get("pageSize"), 20),
	}
	if page.Page > user.MaxPage {
		return apperror.Invalid(apperror.Detail{
			Field:   "page",
			Message: fmt.Sprintf("page must be at most %d", user.MaxPage),
		})
	}

	accounts, info, err := h.users.List(r.Context(), page)
	if err != nil {
		return err
	}

	payload := dto.UserListResponse{
		Success: true,
		Data:    make([]dto.UserResponse, len(accounts)),
		Pagination: dto.PageInfo{
			Page:       info.Page,
			PageSize:   info.PageSize,
			TotalItems: info.TotalItems,
			TotalPages: info.TotalPages,
			HasNext:    info.HasNext,
		},
	}
	for i, account := range accounts {
		payload.Data[i] = mapUser(account)
	}

	writeJSON(w, http.StatusOK, payload)
	return nil
}

func currentUser(r *http.Request) (auth.AuthenticatedUser, error) {
	current, ok := auth.UserFromContext(r.Context())
	if !ok {
		return auth.AuthenticatedUser{}, apperror.New(http.StatusUnauthorized, "Not authorized")
	}
	return current, nil
}
