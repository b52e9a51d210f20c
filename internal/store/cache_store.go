package store

import (
	"time"

	"github.com/forattini-dev/recker/internal/cache"
	"github.com/forattini-dev/recker/internal/recker"
)

// CacheStore is a cache.Store backed by the cache_entries table, for
// surviving process restarts — the persistent counterpart to
// cache.MemoryStore and cache.RedisStore.
type CacheStore struct {
	db *DB
}

// NewCacheStore builds a CacheStore over an already-migrated DB.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

var _ cache.Store = (*CacheStore)(nil)

// Get implements cache.Store.
func (s *CacheStore) Get(fingerprint string) (cache.Entry, bool) {
	query := `SELECT status, status_text, headers, body, inserted_at FROM cache_entries WHERE fingerprint = ` + placeholder(s.db.Driver, 1)
	row := s.db.Conn.QueryRow(query, fingerprint)
	var status int
	var statusText, headersRaw string
	var body []byte
	var insertedAtMillis int64
	if err := row.Scan(&status, &statusText, &headersRaw, &body, &insertedAtMillis); err != nil {
		return cache.Entry{}, false
	}

	return cache.Entry{
		Status:     status,
		StatusText: statusText,
		Headers:    decodeHeaders(headersRaw),
		Body:       body,
		InsertedAt: time.UnixMilli(insertedAtMillis),
	}, true
}

// Put implements cache.Store.
func (s *CacheStore) Put(fingerprint string, entry cache.Entry) {
	headersRaw := encodeHeaders(entry.Headers)
	_, _ = s.db.Conn.Exec(upsertCacheEntrySQL(s.db.Driver),
		fingerprint, entry.Status, entry.StatusText, headersRaw, entry.Body, entry.InsertedAt.UnixMilli())
}

// Delete implements cache.Store.
func (s *CacheStore) Delete(fingerprint string) {
	query := `DELETE FROM cache_entries WHERE fingerprint = ` + placeholder(s.db.Driver, 1)
	_, _ = s.db.Conn.Exec(query, fingerprint)
}

// upsertCacheEntrySQL returns a dialect-appropriate INSERT-or-replace
// statement; sqlite/mysql support INSERT OR REPLACE / ON DUPLICATE KEY,
// postgres needs ON CONFLICT.
func upsertCacheEntrySQL(driver Driver) string {
	switch driver {
	case DriverPostgres:
		return `INSERT INTO cache_entries (fingerprint, status, status_text, headers, body, inserted_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (fingerprint) DO UPDATE SET
				status = EXCLUDED.status, status_text = EXCLUDED.status_text,
				headers = EXCLUDED.headers, body = EXCLUDED.body, inserted_at = EXCLUDED.inserted_at`
	case DriverMySQL:
		return `INSERT INTO cache_entries (fingerprint, status, status_text, headers, body, inserted_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE status = VALUES(status), status_text = VALUES(status_text),
				headers = VALUES(headers), body = VALUES(body), inserted_at = VALUES(inserted_at)`
	default:
		return `INSERT OR REPLACE INTO cache_entries (fingerprint, status, status_text, headers, body, inserted_at)
			VALUES (?, ?, ?, ?, ?, ?)`
	}
}

func encodeHeaders(h recker.Headers) string {
	var b []byte
	h.Range(func(name, value string) {
		b = append(b, []byte(name+": "+value+"\n")...)
	})
	return string(b)
}

func decodeHeaders(raw string) recker.Headers {
	h := recker.Headers{}
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\n' {
			continue
		}
		line := raw[start:i]
		start = i + 1
		idx := indexColonSpace(line)
		if idx < 0 {
			continue
		}
		h.Add(line[:idx], line[idx+2:])
	}
	return h
}

func indexColonSpace(s string) int {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == ':' && s[i+1] == ' ' {
			return i
		}
	}
	return -1
}
