package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deemkeen/nostrodon/domain"
	"github.com/deemkeen/nostrodon/logging"
	"github.com/deemkeen/nostrodon/util"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// ErrNotFound is returned by single-row reads that match nothing.
var ErrNotFound = errors.New("not found")

// DB is the local event cache.
type DB struct {
	db  *sql.DB
	log zerolog.Logger
}

var (
	dbInstance *DB
	dbOnce     sync.Once
	dbPath     = util.DefaultDatabase
)

// Events
const (
	sqlInsertEvent = `INSERT OR IGNORE INTO events(id, pubkey, created_at, kind, tags, content, sig, target_id)
                        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	sqlSelectEventById   = `SELECT id, pubkey, created_at, kind, tags, content, sig FROM events WHERE id = ?`
	sqlSelectTextNotes   = `SELECT id, pubkey, created_at, kind, tags, content, sig FROM events
                        WHERE kind = 1
                        ORDER BY created_at DESC, id ASC LIMIT ?`
	sqlSelectTextNotesByAuthor = `SELECT id, pubkey, created_at, kind, tags, content, sig FROM events
                        WHERE kind = 1 AND pubkey = ?
                        ORDER BY created_at DESC, id ASC LIMIT ?`
	sqlSelectTextNotesByAuthors = `SELECT id, pubkey, created_at, kind, tags, content, sig FROM events
                        WHERE kind = 1 AND pubkey IN (%s)
                        ORDER BY created_at DESC, id ASC LIMIT ?`
	sqlSelectEngagementFor = `SELECT id, pubkey, created_at, kind, tags, content, sig FROM events
                        WHERE kind IN (6, 7, 9735) AND target_id IN (%s)
                        ORDER BY created_at ASC`
	sqlSelectLatestContactList = `SELECT id, pubkey, created_at, kind, tags, content, sig FROM events
                        WHERE kind = 3 AND pubkey = ?
                        ORDER BY created_at DESC LIMIT 1`
)

// Profiles
const (
	sqlUpsertProfile = `INSERT INTO profiles(pubkey, created_at, name, display_name, about, picture)
                        VALUES (?, ?, ?, ?, ?, ?)
                        ON CONFLICT(pubkey) DO UPDATE SET
                            created_at = excluded.created_at,
                            name = excluded.name,
                            display_name = excluded.display_name,
                            about = excluded.about,
                            picture = excluded.picture
                        WHERE excluded.created_at > profiles.created_at`
	sqlSelectProfile  = `SELECT pubkey, created_at, name, display_name, about, picture FROM profiles WHERE pubkey = ?`
	sqlSelectProfiles = `SELECT pubkey, created_at, name, display_name, about, picture FROM profiles WHERE pubkey IN (%s)`
)

// Outbox
const (
	sqlInsertDraft        = `INSERT INTO outbox(id, event_id, event_json, created_at) VALUES (?, ?, ?, ?)`
	sqlSelectPendingDraft = `SELECT id, event_id, event_json, created_at FROM outbox ORDER BY created_at ASC LIMIT ? OFFSET ?`
	sqlSelectDraft        = `SELECT id, event_id, event_json, created_at FROM outbox WHERE id = ?`
	sqlCountDrafts        = `SELECT COUNT(*) FROM outbox`
	sqlDeleteDraft        = `DELETE FROM outbox WHERE id = ?`
)

// SetPath chooses the database file used by GetDB. It has no effect once the
// shared instance is open.
func SetPath(path string) {
	dbPath = path
}

// GetDB returns the shared cache, opening it on first use.
func GetDB() *DB {
	dbOnce.Do(func() {
		db, err := Open(util.ResolveFilePath(dbPath))
		if err != nil {
			panic(err)
		}
		dbInstance = db
	})

	return dbInstance
}

// Open connects to the sqlite file at path and brings its schema up to date.
// ":memory:" yields a private in-memory cache.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	log := logging.Component("db")

	if path == ":memory:" {
		// every pooled connection would get its own empty database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(time.Hour)

		var journalMode string
		if err := sqlDB.QueryRow("PRAGMA journal_mode=WAL").Scan(&journalMode); err != nil {
			log.Warn().Err(err).Msg("failed to enable WAL mode")
		} else {
			log.Debug().Str("journal_mode", journalMode).Msg("database journal mode")
		}
	}

	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA temp_store = MEMORY")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")

	db := &DB{db: sqlDB, log: log}
	if err := db.RunMigrations(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("event cache ready")
	return db, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// SaveEvent stores ev unless an event with the same id is already cached.
func (db *DB) SaveEvent(ev domain.Event) error {
	tags, err := json.Marshal(ev.Tags)
	if err != nil {
		return fmt.Errorf("encoding tags of %s: %w", domain.ShortKey(ev.ID), err)
	}
	var target sql.NullString
	if _, ok := domain.EngagementKindOf(ev.Kind); ok {
		if id, ok := ev.LastEventRef(); ok {
			target = sql.NullString{String: id, Valid: true}
		}
	}
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertEvent, ev.ID, ev.PubKey, int64(ev.CreatedAt), int(ev.Kind), string(tags), ev.Content, ev.Sig, target)
		return err
	})
}

func (db *DB) ReadEventById(id string) (*domain.Event, error) {
	ev, err := scanEvent(db.db.QueryRow(sqlSelectEventById, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// ReadTextNotes returns the newest cached notes, newest first.
func (db *DB) ReadTextNotes(limit int) ([]domain.Event, error) {
	return db.queryEvents(sqlSelectTextNotes, limit)
}

func (db *DB) ReadTextNotesByAuthor(pubkey string, limit int) ([]domain.Event, error) {
	return db.queryEvents(sqlSelectTextNotesByAuthor, pubkey, limit)
}

// ReadTextNotesByAuthors returns the newest notes of any of the given authors.
// An empty author list means everyone.
func (db *DB) ReadTextNotesByAuthors(pubkeys []string, limit int) ([]domain.Event, error) {
	if len(pubkeys) == 0 {
		return db.ReadTextNotes(limit)
	}
	args := stringArgs(pubkeys)
	args = append(args, limit)
	return db.queryEvents(fmt.Sprintf(sqlSelectTextNotesByAuthors, placeholders(len(pubkeys))), args...)
}

// ReadEngagementFor returns the reactions, reposts and zap receipts whose last
// "e" tag points at one of ids, oldest first.
func (db *DB) ReadEngagementFor(ids []string) ([]domain.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return db.queryEvents(fmt.Sprintf(sqlSelectEngagementFor, placeholders(len(ids))), stringArgs(ids)...)
}

// ReadContactList returns the newest kind-3 event published by pubkey.
func (db *DB) ReadContactList(pubkey string) (*domain.Event, error) {
	ev, err := scanEvent(db.db.QueryRow(sqlSelectLatestContactList, pubkey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}

// UpsertProfile stores p unless a newer profile for the same key is cached.
func (db *DB) UpsertProfile(p *domain.Profile) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlUpsertProfile, p.PubKey, int64(p.CreatedAt), p.Name, p.DisplayName, p.About, p.Picture)
		return err
	})
}

func (db *DB) ReadProfile(pubkey string) (*domain.Profile, error) {
	p, err := scanProfile(db.db.QueryRow(sqlSelectProfile, pubkey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ReadProfiles returns the cached profiles of pubkeys keyed by pubkey. Unknown
// keys are absent from the result.
func (db *DB) ReadProfiles(pubkeys []string) (map[string]*domain.Profile, error) {
	profiles := make(map[string]*domain.Profile)
	if len(pubkeys) == 0 {
		return profiles, nil
	}
	rows, err := db.db.Query(fmt.Sprintf(sqlSelectProfiles, placeholders(len(pubkeys))), stringArgs(pubkeys)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return profiles, err
		}
		profiles[p.PubKey] = p
	}
	return profiles, rows.Err()
}

func (db *DB) EnqueueDraft(item *domain.OutboxItem) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlInsertDraft, item.Id.String(), item.EventId, item.EventJSON, item.CreatedAt)
		return err
	})
}

// ReadPendingDrafts returns queued drafts, oldest first.
func (db *DB) ReadPendingDrafts(limit, offset int) ([]domain.OutboxItem, error) {
	rows, err := db.db.Query(sqlSelectPendingDraft, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.OutboxItem
	for rows.Next() {
		item, err := scanDraft(rows)
		if err != nil {
			return items, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (db *DB) ReadDraft(id uuid.UUID) (*domain.OutboxItem, error) {
	item, err := scanDraft(db.db.QueryRow(sqlSelectDraft, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (db *DB) CountDrafts() (int, error) {
	var n int
	err := db.db.QueryRow(sqlCountDrafts).Scan(&n)
	return n, err
}

func (db *DB) DeleteDraft(id uuid.UUID) error {
	return db.wrapTransaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(sqlDeleteDraft, id.String())
		return err
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (*domain.OutboxItem, error) {
	var item domain.OutboxItem
	var idStr string
	if err := row.Scan(&idStr, &item.EventId, &item.EventJSON, &item.CreatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("draft id %q: %w", idStr, err)
	}
	item.Id = id
	return &item, nil
}

func scanEvent(row scanner) (*domain.Event, error) {
	var ev domain.Event
	var createdAt int64
	var kind int
	var tags string
	if err := row.Scan(&ev.ID, &ev.PubKey, &createdAt, &kind, &tags, &ev.Content, &ev.Sig); err != nil {
		return nil, err
	}
	ev.CreatedAt = domain.Timestamp(createdAt)
	ev.Kind = domain.Kind(kind)
	if err := json.Unmarshal([]byte(tags), &ev.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of %s: %w", domain.ShortKey(ev.ID), err)
	}
	return &ev, nil
}

func scanProfile(row scanner) (*domain.Profile, error) {
	var p domain.Profile
	var createdAt int64
	if err := row.Scan(&p.PubKey, &createdAt, &p.Name, &p.DisplayName, &p.About, &p.Picture); err != nil {
		return nil, err
	}
	p.CreatedAt = domain.Timestamp(createdAt)
	return &p, nil
}

func (db *DB) queryEvents(query string, args ...any) ([]domain.Event, error) {
	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return events, err
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// wrapTransaction runs the given function within a transaction, retrying
// while sqlite reports the database as busy.
func (db *DB) wrapTransaction(f func(tx *sql.Tx) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		db.log.Error().Err(err).Msg("error starting transaction")
		return err
	}
	for {
		err = f(tx)
		if err != nil {
			var serr *sqlite.Error
			if errors.As(err, &serr) && serr.Code() == sqlitelib.SQLITE_BUSY && ctx.Err() == nil {
				continue
			}
			tx.Rollback()
			db.log.Error().Err(err).Msg("error in transaction")
			return err
		}
		err = tx.Commit()
		if err != nil {
			db.log.Error().Err(err).Msg("error committing transaction")
			return err
		}
		break
	}
	return nil
}
