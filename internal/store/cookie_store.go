package store

import (
	"fmt"
	"time"

	"github.com/forattini-dev/recker/internal/cookiejar"
	"github.com/forattini-dev/recker/internal/encryption"
)

// CookieStore persists a cookiejar.Jar's contents across process
// restarts, encrypting cookie values at rest via an
// encryption.FieldEncryptor.
type CookieStore struct {
	db        *DB
	encryptor encryption.FieldEncryptor
}

// NewCookieStore builds a CookieStore. A nil encryptor stores cookie
// values in plaintext, matching encryption.NewNullEncryptor's semantics.
func NewCookieStore(db *DB, encryptor encryption.FieldEncryptor) *CookieStore {
	if encryptor == nil {
		encryptor = encryption.NewNullEncryptor()
	}
	return &CookieStore{db: db, encryptor: encryptor}
}

// SaveAll replaces the persisted cookie set with jar's current contents.
func (s *CookieStore) SaveAll(jar *cookiejar.Jar) error {
	cookies := jar.GetAll()

	tx, err := s.db.Conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin cookie save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM cookies`); err != nil {
		return fmt.Errorf("store: clear cookies: %w", err)
	}

	for _, c := range cookies {
		encryptedValue, err := s.encryptor.Encrypt(c.Value)
		if err != nil {
			return fmt.Errorf("store: encrypt cookie %s: %w", c.Name, err)
		}
		var expiresAtMillis int64
		if !c.Expires.IsZero() {
			expiresAtMillis = c.Expires.UnixMilli()
		}
		if _, err := tx.Exec(insertCookieSQL(s.db.Driver),
			c.Domain, c.Path, c.Name, encryptedValue, expiresAtMillis,
			c.Secure, c.HTTPOnly, string(c.SameSite), c.HostOnly,
		); err != nil {
			return fmt.Errorf("store: insert cookie %s: %w", c.Name, err)
		}
	}

	return tx.Commit()
}

// LoadAll reads every persisted cookie into jar.
func (s *CookieStore) LoadAll(jar *cookiejar.Jar) error {
	rows, err := s.db.Conn.Query(`SELECT domain, path, name, value, expires_at, secure, http_only, same_site, host_only FROM cookies`)
	if err != nil {
		return fmt.Errorf("store: load cookies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var domain, path, name, value, sameSite string
		var expiresAtMillis int64
		var secure, httpOnly, hostOnly bool
		if err := rows.Scan(&domain, &path, &name, &value, &expiresAtMillis, &secure, &httpOnly, &sameSite, &hostOnly); err != nil {
			return fmt.Errorf("store: scan cookie row: %w", err)
		}
		decryptedValue, err := s.encryptor.Decrypt(value)
		if err != nil {
			return fmt.Errorf("store: decrypt cookie %s: %w", name, err)
		}
		cookie := cookiejar.Cookie{
			Name: name, Value: decryptedValue, Domain: domain, Path: path,
			Secure: secure, HTTPOnly: httpOnly, SameSite: cookiejar.SameSite(sameSite),
			HostOnly: hostOnly,
		}
		if expiresAtMillis > 0 {
			cookie.Expires = time.UnixMilli(expiresAtMillis)
		}
		jar.Set(cookie)
	}
	return rows.Err()
}

func insertCookieSQL(driver Driver) string {
	switch driver {
	case DriverPostgres:
		return `INSERT INTO cookies (domain, path, name, value, expires_at, secure, http_only, same_site, host_only)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (domain, path, name) DO UPDATE SET
				value = EXCLUDED.value, expires_at = EXCLUDED.expires_at, secure = EXCLUDED.secure,
				http_only = EXCLUDED.http_only, same_site = EXCLUDED.same_site, host_only = EXCLUDED.host_only`
	case DriverMySQL:
		return `INSERT INTO cookies (domain, path, name, value, expires_at, secure, http_only, same_site, host_only)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at),
				secure = VALUES(secure), http_only = VALUES(http_only), same_site = VALUES(same_site), host_only = VALUES(host_only)`
	default:
		return `INSERT OR REPLACE INTO cookies (domain, path, name, value, expires_at, secure, http_only, same_site, host_only)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	}
}
