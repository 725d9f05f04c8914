package cache

import (
	"database/sql"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	_ "modernc.org/sqlite" // Register the sqlite driver.
)

const (
	// DefaultTTL is how long a cached response is considered fresh.
	DefaultTTL = 10 * time.Minute

	// sqliteOptionPrefix is the string prefix sqlite uses to set various
	// options. This is used in the following format:
	//   * sqliteOptionPrefix || option_name = option_value.
	sqliteOptionPrefix = "_pragma"

	// sqliteTxLockImmediate is a dsn option used to ensure that write
	// transactions are started immediately.
	sqliteTxLockImmediate = "_txlock=immediate"
)

// pragmaOption holds a key-value pair for a SQLite pragma setting.
type pragmaOption struct {
	name  string
	value string
}

// Config parameterizes a Store.
type Config struct {
	// DBPath is the sqlite database file.
	DBPath string

	// TTL overrides DefaultTTL when non-zero.
	TTL time.Duration

	// Clock is the time source; tests install a mock.
	Clock clock.Clock

	// OnError, if set, is invoked with every cache I/O failure so the
	// UI can surface a non-fatal notification. Failures are otherwise
	// indistinguishable from misses.
	OnError func(err error)
}

// Store is an on-disk TTL response cache keyed by RPC fingerprint. Writes
// are serialized behind a single lock; reads take no lock and tolerate a
// stale hit that the caller replaces on the next request. A Store is bound
// to a single process.
type Store struct {
	cfg Config
	ttl time.Duration

	// writeMtx serializes Put and Invalidate.
	writeMtx sync.Mutex

	db *sql.DB
}

// New opens (creating if necessary) the cache database at cfg.DBPath.
func New(cfg Config) (*Store, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	// The set of pragma options are accepted using query options. The
	// busy timeout keeps concurrent readers from failing outright while
	// a write transaction holds the file.
	pragmaOptions := []pragmaOption{
		{
			name:  "journal_mode",
			value: "WAL",
		},
		{
			name:  "busy_timeout",
			value: "5000",
		},
	}
	sqliteOptions := make(url.Values)
	for _, option := range pragmaOptions {
		sqliteOptions.Add(
			sqliteOptionPrefix,
			fmt.Sprintf("%v=%v", option.name, option.value),
		)
	}

	dsn := fmt.Sprintf(
		"%v?%v&%v", cfg.DBPath, sqliteOptions.Encode(),
		sqliteTxLockImmediate,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open cache db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS cache (
		key TEXT PRIMARY KEY,
		data BLOB,
		timestamp INTEGER,
		invalid INTEGER DEFAULT 0
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create cache table: %w", err)
	}

	return &Store{
		cfg: cfg,
		ttl: ttl,
		db:  db,
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Fetch looks up key and returns the stored payload plus whether it is still
// fresh. A miss returns (nil, false). Expired or invalidated rows come back
// with their payload and fresh=false so the UI can show stale data while a
// refresh is in flight. I/O failures are reported through OnError and read
// as a miss.
func (s *Store) Fetch(key string) ([]byte, bool) {
	var (
		payload   []byte
		writtenAt int64
		invalid   int64
	)
	err := s.db.QueryRow(
		"SELECT data, timestamp, invalid FROM cache WHERE key = ?",
		key,
	).Scan(&payload, &writtenAt, &invalid)

	switch {
	case err == sql.ErrNoRows:
		return nil, false

	case err != nil:
		s.reportError(fmt.Errorf("cache fetch %s: %w", key, err))
		return nil, false
	}

	age := s.cfg.Clock.Now().Unix() - writtenAt
	fresh := invalid == 0 && age < int64(s.ttl.Seconds())

	log.Tracef("Cache hit for %s (fresh=%v, age=%ds)", key, fresh, age)
	return payload, fresh
}

// Put stores payload under key, overwriting any previous row and clearing
// its invalid mark. Failures are reported through OnError and swallowed; a
// failed cache is indistinguishable from a miss.
func (s *Store) Put(key string, payload []byte) {
	s.writeMtx.Lock()
	defer s.writeMtx.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO cache (key, data, timestamp, invalid)
		VALUES (?, ?, ?, 0)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			timestamp = excluded.timestamp,
			invalid = 0`,
		key, payload, s.cfg.Clock.Now().Unix(),
	)
	if err != nil {
		s.reportError(fmt.Errorf("cache put %s: %w", key, err))
	}
}

// Invalidate marks the given keys as invalid, or every row when called with
// no keys. Mutating RPC calls invoke this on success so no read ever shows
// a pre-mutation value as fresh.
func (s *Store) Invalidate(keys ...string) {
	s.writeMtx.Lock()
	defer s.writeMtx.Unlock()

	var err error
	if len(keys) == 0 {
		_, err = s.db.Exec("UPDATE cache SET invalid = 1")
		log.Debugf("Invalidated all cache entries")
	} else {
		for _, key := range keys {
			_, err = s.db.Exec(
				"UPDATE cache SET invalid = 1 WHERE key = ?",
				key,
			)
			if err != nil {
				break
			}
		}
		log.Debugf("Invalidated cache entries %v", keys)
	}
	if err != nil {
		s.reportError(fmt.Errorf("cache invalidate: %w", err))
	}
}

func (s *Store) reportError(err error) {
	log.Errorf("%v", err)
	if s.cfg.OnError != nil {
		s.cfg.OnError(err)
	}
}
