package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// MovieRecord is the persistence model for a catalog movie. The
// Languages, Genres and ScreenTypes sets are stored as JSON arrays in
// string columns, matching how the original schema documented them.
type MovieRecord struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Synopsis    string    `json:"synopsis"`
	PosterURL   string    `json:"poster_url"`
	TrailerURL  string    `json:"trailer_url"`
	DurationMin uint32    `json:"duration_min"`
	Languages   []string  `json:"languages"`
	Genres      []string  `json:"genres"`
	ScreenTypes []string  `json:"screen_types"`
	ReleaseOn   time.Time `json:"release_on"`
	Certificate string    `json:"certificate"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreditRecord is a cast or crew member credited on a movie.
type CreditRecord struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	PhotoURL string `json:"photo_url"`
}

// MovieRepo encapsulates database operations for the movies, casts and
// crews tables plus their mapping tables.
type MovieRepo struct {
	db *sql.DB
}

// NewMovieRepo returns a MovieRepo bound to the provided database.
func NewMovieRepo(db *sql.DB) *MovieRepo { return &MovieRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions
// spanning multiple repositories.
func (r *MovieRepo) DB() *sql.DB { return r.db }

// Create inserts a movie and links the given cast and crew member ids.
// The whole write runs in one transaction; the record's ID and
// CreatedAt are populated on success.
func (r *MovieRepo) Create(ctx context.Context, m *MovieRecord, castIDs, crewIDs []uint64) error {
	langs, err := json.Marshal(m.Languages)
	if err != nil {
		return err
	}
	genres, err := json.Marshal(m.Genres)
	if err != nil {
		return err
	}
	screens, err := json.Marshal(m.ScreenTypes)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO movies (title, synopsis, poster_url, trailer_url, duration_min, languages, genres, screen_types, release_on, certificate)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Title, m.Synopsis, m.PosterURL, m.TrailerURL, m.DurationMin,
		string(langs), string(genres), string(screens),
		m.ReleaseOn.UTC().Format("2006-01-02"), m.Certificate,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)

	if err := linkCredits(ctx, tx, "movie_casts", "cast_id", m.ID, castIDs); err != nil {
		return err
	}
	if err := linkCredits(ctx, tx, "movie_crews", "crew_id", m.ID, crewIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	m.CreatedAt = time.Now().UTC()
	return nil
}

// linkCredits bulk-inserts mapping rows for a movie's cast or crew.
func linkCredits(ctx context.Context, tx *sql.Tx, table, column string, movieID uint64, ids []uint64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `INSERT INTO ` + table + ` (movie_id, ` + column + `) VALUES `
	args := make([]interface{}, 0, len(ids)*2)
	for i, id := range ids {
		if i > 0 {
			query += ","
		}
		query += "(?, ?)"
		args = append(args, movieID, id)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Delete removes a movie and its credit links. A movie that still has
// shows scheduled cannot be deleted and returns ErrConflict; an unknown
// id returns ErrMovieNotFound.
func (r *MovieRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM shows WHERE movie_id = ?`, id).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrConflict
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM movie_casts WHERE movie_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM movie_crews WHERE movie_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM movies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMovieNotFound
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID loads a movie by id. It returns ErrMovieNotFound when no row
// exists.
func (r *MovieRepo) GetByID(ctx context.Context, id uint64) (*MovieRecord, error) {
	const q = `SELECT id, title, synopsis, poster_url, trailer_url, duration_min,
	                  languages, genres, screen_types, release_on, certificate, created_at
	           FROM movies WHERE id = ?`
	var m MovieRecord
	var langs, genres, screens string
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&m.ID, &m.Title, &m.Synopsis, &m.PosterURL, &m.TrailerURL, &m.DurationMin,
		&langs, &genres, &screens, &m.ReleaseOn, &m.Certificate, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrMovieNotFound
	}
	if err != nil {
		return nil, err
	}
	// Set columns are best-effort JSON; a bad value yields an empty set.
	_ = json.Unmarshal([]byte(langs), &m.Languages)
	_ = json.Unmarshal([]byte(genres), &m.Genres)
	_ = json.Unmarshal([]byte(screens), &m.ScreenTypes)
	return &m, nil
}

// List returns all movies ordered by release date, newest first.
func (r *MovieRepo) List(ctx context.Context) ([]MovieRecord, error) {
	const q = `SELECT id, title, synopsis, poster_url, trailer_url, duration_min,
	                  languages, genres, screen_types, release_on, certificate, created_at
	           FROM movies ORDER BY release_on DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MovieRecord
	for rows.Next() {
		var m MovieRecord
		var langs, genres, screens string
		if err := rows.Scan(
			&m.ID, &m.Title, &m.Synopsis, &m.PosterURL, &m.TrailerURL, &m.DurationMin,
			&langs, &genres, &screens, &m.ReleaseOn, &m.Certificate, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(langs), &m.Languages)
		_ = json.Unmarshal([]byte(genres), &m.Genres)
		_ = json.Unmarshal([]byte(screens), &m.ScreenTypes)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Credits returns the cast and crew credited on a movie.
func (r *MovieRepo) Credits(ctx context.Context, movieID uint64) (cast, crew []CreditRecord, err error) {
	cast, err = r.credits(ctx, "movie_casts", "casts", "cast_id", movieID)
	if err != nil {
		return nil, nil, err
	}
	crew, err = r.credits(ctx, "movie_crews", "crews", "crew_id", movieID)
	if err != nil {
		return nil, nil, err
	}
	return cast, crew, nil
}

func (r *MovieRepo) credits(ctx context.Context, mapTable, table, column string, movieID uint64) ([]CreditRecord, error) {
	q := `SELECT c.id, c.name, c.photo_url FROM ` + table + ` c
	      JOIN ` + mapTable + ` mc ON mc.` + column + ` = c.id
	      WHERE mc.movie_id = ? ORDER BY c.id`
	rows, err := r.db.QueryContext(ctx, q, movieID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CreditRecord
	for rows.Next() {
		var c CreditRecord
		if err := rows.Scan(&c.ID, &c.Name, &c.PhotoURL); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCredit inserts a cast or crew member. table must be "casts" or
// "crews"; anything else is a programming error.
func (r *MovieRepo) CreateCredit(ctx context.Context, table string, c *CreditRecord) error {
	if table != "casts" && table != "crews" {
		panic("repository: CreateCredit called with table " + table)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO `+table+` (name, photo_url) VALUES (?, ?)`, c.Name, c.PhotoURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	return nil
}
