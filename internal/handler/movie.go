package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cinebook/booking-core/internal/repository"
)

// MovieHandler exposes the administrative movie catalog: movies with
// their cast and crew credits. Shows reference these records, so a
// movie must exist before a show can be scheduled for it.
type MovieHandler struct {
	MovieRepo *repository.MovieRepo
}

// NewMovieHandler constructs a MovieHandler. The repo must be non-nil.
func NewMovieHandler(movieRepo *repository.MovieRepo) *MovieHandler {
	if movieRepo == nil {
		panic("nil repository passed to NewMovieHandler")
	}
	return &MovieHandler{MovieRepo: movieRepo}
}

// CreateMovie handles POST /v1/movies. Duration must be positive; the
// languages, genres and screen type sets may be empty. Optional cast
// and crew ids must reference existing credit records.
func (h *MovieHandler) CreateMovie(c echo.Context) error {
	var body struct {
		Title       string   `json:"title"`
		Synopsis    string   `json:"synopsis"`
		PosterURL   string   `json:"poster_url"`
		TrailerURL  string   `json:"trailer_url"`
		DurationMin uint32   `json:"duration_min"`
		Languages   []string `json:"languages"`
		Genres      []string `json:"genres"`
		ScreenTypes []string `json:"screen_types"`
		ReleaseOn   string   `json:"release_on"`
		Certificate string   `json:"certificate"`
		CastIDs     []uint64 `json:"cast_ids"`
		CrewIDs     []uint64 `json:"crew_ids"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title is required"})
	}
	if body.DurationMin == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_min must be positive"})
	}
	releaseOn, err := time.Parse("2006-01-02", body.ReleaseOn)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid release_on format, want YYYY-MM-DD"})
	}

	rec := &repository.MovieRecord{
		Title:       title,
		Synopsis:    body.Synopsis,
		PosterURL:   body.PosterURL,
		TrailerURL:  body.TrailerURL,
		DurationMin: body.DurationMin,
		Languages:   body.Languages,
		Genres:      body.Genres,
		ScreenTypes: body.ScreenTypes,
		ReleaseOn:   releaseOn,
		Certificate: body.Certificate,
	}
	if err := h.MovieRepo.Create(c.Request().Context(), rec, body.CastIDs, body.CrewIDs); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create movie"})
	}
	return c.JSON(http.StatusCreated, rec)
}

// GetMovie handles GET /v1/movies/:id and includes cast/crew credits.
func (h *MovieHandler) GetMovie(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	ctx := c.Request().Context()
	m, err := h.MovieRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMovieNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	cast, crew, err := h.MovieRepo.Credits(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"movie": m,
		"cast":  cast,
		"crew":  crew,
	})
}

// DeleteMovie handles DELETE /v1/movies/:id. A movie with scheduled
// shows cannot be deleted; the shows must be cancelled and aged out of
// the schedule first.
func (h *MovieHandler) DeleteMovie(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid movie id"})
	}
	if err := h.MovieRepo.Delete(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, repository.ErrMovieNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "movie not found"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "movie has scheduled shows"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMovies handles GET /v1/movies.
func (h *MovieHandler) ListMovies(c echo.Context) error {
	movies, err := h.MovieRepo.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if movies == nil {
		movies = []repository.MovieRecord{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": movies})
}

// CreateCredit handles POST /v1/casts and POST /v1/crews; the table is
// chosen by the registered route.
func (h *MovieHandler) CreateCredit(table string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			Name     string `json:"name"`
			PhotoURL string `json:"photo_url"`
		}
		if err := c.Bind(&body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
		}
		rec := &repository.CreditRecord{Name: name, PhotoURL: body.PhotoURL}
		if err := h.MovieRepo.CreateCredit(c.Request().Context(), table, rec); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create record"})
		}
		return c.JSON(http.StatusCreated, rec)
	}
}
