package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/progress"
	"github.com/2beens/calorietracker/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=api_test

type progressService interface {
	Progress(ctx context.Context, username string) (*progress.Report, error)
	BMI(ctx context.Context, username string) (*progress.BMISummary, error)
}

type profileRepo interface {
	Lookup(ctx context.Context, username string) (accounts.Profile, error)
}

// Handler serves read-only views of a user's data.
type Handler struct {
	progress progressService
	profiles profileRepo
}

func NewHandler(progress progressService, profiles profileRepo) *Handler {
	return &Handler{
		progress: progress,
		profiles: profiles,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/users/{username}/progress", handler.HandleProgress).Methods("GET").Name("user-progress")
	r.HandleFunc("/users/{username}/bmi", handler.HandleBMI).Methods("GET").Name("user-bmi")
	r.HandleFunc("/users/{username}/profile", handler.HandleProfile).Methods("GET").Name("user-profile")
}

func (handler *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	report, err := handler.progress.Progress(r.Context(), username)
	if err != nil {
		writeError(w, username, err)
		return
	}
	pkg.WriteJSON(w, report, http.StatusOK)
}

func (handler *Handler) HandleBMI(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	summary, err := handler.progress.BMI(r.Context(), username)
	if err != nil {
		writeError(w, username, err)
		return
	}
	pkg.WriteJSON(w, summary, http.StatusOK)
}

func (handler *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	profile, err := handler.profiles.Lookup(r.Context(), username)
	if err != nil {
		writeError(w, username, err)
		return
	}
	pkg.WriteJSON(w, profile, http.StatusOK)
}

func writeError(w http.ResponseWriter, username string, err error) {
	if errors.Is(err, accounts.ErrNotFound) {
		pkg.WriteResponse(w, pkg.ContentType.Text, "user not found", http.StatusNotFound)
		return
	}
	log.Errorf("api: request for [%s] failed: %s", username, err)
	pkg.WriteResponse(w, pkg.ContentType.Text, "internal error", http.StatusInternalServerError)
}
