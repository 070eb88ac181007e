package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okunev/tamada/pkg/tamada/internalerr"
	"github.com/okunev/tamada/pkg/tamada/stage"
	"github.com/okunev/tamada/pkg/tamada/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// Open opens a SQLite database with WAL mode enabled and creates the
// schema if missing. Any failure to reach or prepare the database wraps
// internalerr.ErrStoreUnavailable so callers can tell "no store" from
// query-level errors.
func Open(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, unavailable(path, err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, unavailable(path, err)
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, unavailable(path, err)
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, unavailable(path, err)
	}

	return &sqliteStore{db: db}, nil
}

func unavailable(path string, err error) error {
	return fmt.Errorf("open %s: %w: %w", path, internalerr.ErrStoreUnavailable, err)
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS toasts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS toast_tags (
	toast_id INTEGER NOT NULL,
	tag_id INTEGER NOT NULL,
	PRIMARY KEY(toast_id, tag_id),
	FOREIGN KEY(toast_id) REFERENCES toasts(id) ON DELETE CASCADE,
	FOREIGN KEY(tag_id) REFERENCES tags(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS stages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT UNIQUE NOT NULL
);

CREATE TABLE IF NOT EXISTS stage_visits (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id INTEGER NOT NULL,
	stage_id INTEGER NOT NULL,
	FOREIGN KEY(stage_id) REFERENCES stages(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS exposures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id INTEGER NOT NULL,
	generated_text TEXT,
	toast_id INTEGER REFERENCES toasts(id) ON DELETE CASCADE,
	liked INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS tag_queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id INTEGER NOT NULL,
	tags TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	toasts INTEGER NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_exposures_chat ON exposures(chat_id);
CREATE INDEX IF NOT EXISTS idx_stage_visits_chat ON stage_visits(chat_id);
CREATE INDEX IF NOT EXISTS idx_tag_queries_chat ON tag_queries(chat_id);
`

	_, err := db.ExecContext(ctx, schema)
	return err
}

// IsEmpty reports whether the corpus has no toasts yet.
func (s *sqliteStore) IsEmpty(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM toasts`).Scan(&count); err != nil {
		return false, err
	}
	return count == 0, nil
}

// InsertToast creates the toast, resolves each tag name to an id
// (creating Tag rows as needed, via the cache), and links them. The
// whole write is one transaction.
func (s *sqliteStore) InsertToast(ctx context.Context, text string, tags []string, cache *store.TagCache) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	toastID, err := insertToastTx(ctx, tx, text, tags, cache)
	if err != nil {
		return 0, err
	}

	return toastID, tx.Commit()
}

func insertToastTx(ctx context.Context, tx *sql.Tx, text string, tags []string, cache *store.TagCache) (int64, error) {
	var toastID int64
	if err := tx.QueryRowContext(ctx, `INSERT INTO toasts (text) VALUES (?) RETURNING id`, text).Scan(&toastID); err != nil {
		return 0, err
	}

	for _, tag := range uniqueStrings(tags) {
		tagID, err := resolveTagTx(ctx, tx, tag, cache)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO toast_tags (toast_id, tag_id) VALUES (?, ?)`, toastID, tagID); err != nil {
			return 0, err
		}
	}

	return toastID, nil
}

func resolveTagTx(ctx context.Context, tx *sql.Tx, name string, cache *store.TagCache) (int64, error) {
	if id, ok := cache.Get(name); ok {
		return id, nil
	}

	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		err = tx.QueryRowContext(ctx, `INSERT INTO tags (name) VALUES (?) RETURNING id`, name).Scan(&id)
	}
	if err != nil {
		return 0, err
	}

	cache.Put(name, id)
	return id, nil
}

// AllTagNamesToIDs returns the full tag name -> id mapping.
func (s *sqliteStore) AllTagNamesToIDs(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, id FROM tags`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var name string
		var id int64
		if err := rows.Scan(&name, &id); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// SeedStages inserts the stage vocabulary, ignoring names already there.
func (s *sqliteStore) SeedStages(ctx context.Context, names []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO stages (name) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, name := range names {
		if _, err := stmt.ExecContext(ctx, name); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecordStage appends a stage visit. Fails with ErrNotFound when the
// stage name was never seeded; that is a data-integrity problem, not a
// user condition.
func (s *sqliteStore) RecordStage(ctx context.Context, chatID int64, st stage.Stage) error {
	var stageID int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM stages WHERE name = ?`, st.Name()).Scan(&stageID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("stage %q: %w", st.Name(), internalerr.ErrNotFound)
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO stage_visits (chat_id, stage_id) VALUES (?, ?)`, chatID, stageID)
	return err
}

// LastStage returns the most recently recorded stage for the chat.
func (s *sqliteStore) LastStage(ctx context.Context, chatID int64) (stage.Stage, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `
SELECT s.name
FROM stages s
JOIN stage_visits v ON v.stage_id = s.id
WHERE v.chat_id = ?
ORDER BY v.id DESC
LIMIT 1;
`, chatID).Scan(&name)
	if err == sql.ErrNoRows {
		return stage.Unknown, fmt.Errorf("chat %d has no stage: %w", chatID, internalerr.ErrNotFound)
	}
	if err != nil {
		return stage.Unknown, err
	}
	return stage.FromName(name)
}

// MarkExposure appends an exposure row for the chat.
func (s *sqliteStore) MarkExposure(ctx context.Context, chatID int64, e store.Exposure) error {
	var genText sql.NullString
	var toastID sql.NullInt64
	switch e.Kind {
	case store.Generated:
		genText = sql.NullString{String: e.Text, Valid: true}
	case store.Stored:
		toastID = sql.NullInt64{Int64: e.ToastID, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO exposures (chat_id, generated_text, toast_id, liked)
VALUES (?, ?, ?, ?);
`, chatID, genText, toastID, boolToInt(e.Liked))
	return err
}

// SetLastExposureReaction updates the most recent exposure row for the
// chat and returns its previous generated text (empty for stored
// toasts). The lookup and the update run as one statement so two
// concurrent reactions for the same chat cannot cross rows.
func (s *sqliteStore) SetLastExposureReaction(ctx context.Context, chatID int64, liked bool) (string, error) {
	var prev sql.NullString
	err := s.db.QueryRowContext(ctx, `
UPDATE exposures
SET liked = ?
WHERE id = (SELECT MAX(id) FROM exposures WHERE chat_id = ?)
RETURNING generated_text;
`, boolToInt(liked), chatID).Scan(&prev)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("chat %d has no exposure: %w", chatID, internalerr.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return prev.String, nil
}

// PromoteGeneratedToToast inserts the generated text as a corpus toast
// with its derived tags, then rewrites the chat's most recent exposure
// to reference the new id, all in one transaction.
func (s *sqliteStore) PromoteGeneratedToToast(ctx context.Context, chatID int64, text string, tags []string, cache *store.TagCache) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	toastID, err := insertToastTx(ctx, tx, text, tags, cache)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE exposures
SET toast_id = ?, generated_text = NULL
WHERE id = (SELECT MAX(id) FROM exposures WHERE chat_id = ?);
`, toastID, chatID)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, fmt.Errorf("chat %d has no exposure to promote: %w", chatID, internalerr.ErrNotFound)
	}

	return toastID, tx.Commit()
}

// GeneratedTextsSeen returns every generated text recorded for the chat.
func (s *sqliteStore) GeneratedTextsSeen(ctx context.Context, chatID int64) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT generated_text FROM exposures
WHERE chat_id = ? AND generated_text IS NOT NULL;
`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		seen[text] = struct{}{}
	}
	return seen, rows.Err()
}

// RandomUnseenToast picks one toast the chat has never been sent,
// uniformly at random. ErrNoMatch when the chat exhausted the corpus.
func (s *sqliteStore) RandomUnseenToast(ctx context.Context, chatID int64) (store.Toast, error) {
	var t store.Toast
	err := s.db.QueryRowContext(ctx, `
SELECT id, text FROM toasts
WHERE id NOT IN (
	SELECT toast_id FROM exposures
	WHERE chat_id = ? AND toast_id IS NOT NULL
)
ORDER BY RANDOM()
LIMIT 1;
`, chatID).Scan(&t.ID, &t.Text)
	if err == sql.ErrNoRows {
		return store.Toast{}, internalerr.ErrNoMatch
	}
	if err != nil {
		return store.Toast{}, err
	}
	return t, nil
}

// NotDislikedTexts returns the texts of all toasts the chat has not
// explicitly disliked, in corpus order.
func (s *sqliteStore) NotDislikedTexts(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT text FROM toasts
WHERE id NOT IN (
	SELECT toast_id FROM exposures
	WHERE chat_id = ? AND toast_id IS NOT NULL AND liked = 0
)
ORDER BY id;
`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var texts []string
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		texts = append(texts, text)
	}
	return texts, rows.Err()
}

// ToastsMatchingTags returns toasts carrying any of the given tags,
// ranked by descending count of matching tags. Scope decides whether
// already-seen or only disliked toasts are excluded. An empty result is
// a valid outcome.
func (s *sqliteStore) ToastsMatchingTags(ctx context.Context, tags []string, chatID int64, scope store.MatchScope) ([]store.Toast, error) {
	unique := uniqueStrings(tags)
	if len(unique) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",")

	var exclusion string
	switch scope {
	case store.ScopeUnseen:
		exclusion = `t.id NOT IN (SELECT toast_id FROM exposures WHERE chat_id = ? AND toast_id IS NOT NULL)`
	case store.ScopeNotDisliked:
		exclusion = `t.id NOT IN (SELECT toast_id FROM exposures WHERE chat_id = ? AND toast_id IS NOT NULL AND liked = 0)`
	default:
		return nil, fmt.Errorf("match scope %d: %w", scope, internalerr.ErrInvalidInput)
	}

	query := fmt.Sprintf(`
SELECT t.id, t.text
FROM toasts t
JOIN toast_tags tt ON tt.toast_id = t.id
JOIN tags g ON g.id = tt.tag_id
WHERE g.name IN (%s) AND %s
GROUP BY t.id
ORDER BY COUNT(g.name) DESC;
`, placeholders, exclusion)

	args := make([]interface{}, 0, len(unique)+1)
	for _, tag := range unique {
		args = append(args, tag)
	}
	args = append(args, chatID)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var toasts []store.Toast
	for rows.Next() {
		var t store.Toast
		if err := rows.Scan(&t.ID, &t.Text); err != nil {
			return nil, err
		}
		toasts = append(toasts, t)
	}
	return toasts, rows.Err()
}

// RecordTagQuery appends the chat's entered tag set as a JSON array.
func (s *sqliteStore) RecordTagQuery(ctx context.Context, chatID int64, tags []string) error {
	encoded, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tag_queries (chat_id, tags) VALUES (?, ?)`, chatID, string(encoded))
	return err
}

// LastTagQuery returns the most recent tag set the chat entered.
func (s *sqliteStore) LastTagQuery(ctx context.Context, chatID int64) ([]string, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx, `
SELECT tags FROM tag_queries
WHERE chat_id = ?
ORDER BY id DESC
LIMIT 1;
`, chatID).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("chat %d has no tag query: %w", chatID, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	var tags []string
	if err := json.Unmarshal([]byte(encoded), &tags); err != nil {
		return nil, err
	}
	return tags, nil
}

// RecordIngestRun writes one ingestion audit row.
func (s *sqliteStore) RecordIngestRun(ctx context.Context, run store.IngestRun) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO ingest_runs (id, source, toasts, started_at, finished_at)
VALUES (?, ?, ?, ?, ?);
`, run.ID, run.Source, run.Toasts,
		run.StartedAt.UTC().Format(time.RFC3339),
		run.FinishedAt.UTC().Format(time.RFC3339))
	return err
}

// IngestRuns returns all ingestion audit rows, oldest first.
func (s *sqliteStore) IngestRuns(ctx context.Context) ([]store.IngestRun, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, source, toasts, started_at, finished_at
FROM ingest_runs
ORDER BY started_at, id;
`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []store.IngestRun
	for rows.Next() {
		var run store.IngestRun
		var started, finished string
		if err := rows.Scan(&run.ID, &run.Source, &run.Toasts, &started, &finished); err != nil {
			return nil, err
		}
		if parsed, perr := time.Parse(time.RFC3339, started); perr == nil {
			run.StartedAt = parsed
		}
		if parsed, perr := time.Parse(time.RFC3339, finished); perr == nil {
			run.FinishedAt = parsed
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func uniqueStrings(in []string) []string {
	set := make(map[string]struct{}, len(in))
	var out []string
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
