package flyweight

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type sqlStore struct {
	db         *sql.DB
	table      string
	driverName string
	prefix     string
	loadStmt   *sql.Stmt
	upsertStmt *sql.Stmt
	insertStmt *sql.Stmt
	deleteStmt *sql.Stmt
	clearStmt  *sql.Stmt
}

var sqlIdentPartRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func newSQLStore(cfg StoreConfig) (Store, error) {
	if cfg.SQLDriverName == "" || cfg.SQLDSN == "" {
		return nil, errors.New("sql driver requires driver name and dsn")
	}
	table := cfg.SQLTable
	if table == "" {
		table = defaultSQLTable
	}
	if err := validateSQLTableName(table); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.SQLDriverName, cfg.SQLDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &sqlStore{
		db:         db,
		table:      table,
		driverName: cfg.SQLDriverName,
		prefix:     cfg.Prefix,
	}
	if s.dialect() == "sqlite" {
		// sqlite allows one writer; a single connection keeps Incr from hitting SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure registry schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *sqlStore) Driver() Driver { return DriverSQL }

func (s *sqlStore) ensureSchema() error {
	var stmt string
	switch s.dialect() {
	case "postgres":
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BYTEA NOT NULL
		);`, s.table)
	case "mysql":
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k VARBINARY(255) PRIMARY KEY,
			v LONGBLOB NOT NULL
		) ENGINE=InnoDB;`, s.table)
	default:
		stmt = fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			k TEXT PRIMARY KEY,
			v BLOB NOT NULL
		);`, s.table)
	}
	_, err := s.db.Exec(stmt)
	return err
}

func (s *sqlStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := s.loadStmt.QueryRowContext(ctx, s.rowKey(key)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cloneBytes(v), true, nil
}

func (s *sqlStore) Save(ctx context.Context, key string, value []byte) error {
	_, err := s.upsertStmt.ExecContext(ctx, s.rowKey(key), value, value)
	return err
}

func (s *sqlStore) SaveNew(ctx context.Context, key string, value []byte) (bool, error) {
	res, err := s.insertStmt.ExecContext(ctx, s.rowKey(key), value)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *sqlStore) Incr(ctx context.Context, key string, delta int64) (int64, error) {
	// Seed the row outside the transaction so FOR UPDATE always has a row to lock.
	if _, err := s.insertStmt.ExecContext(ctx, s.rowKey(key), []byte("0")); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	selectSQL := s.loadSQL()
	if s.dialect() != "sqlite" {
		selectSQL += " FOR UPDATE"
	}
	var v []byte
	current := int64(0)
	err = tx.QueryRowContext(ctx, selectSQL, s.rowKey(key)).Scan(&v)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return 0, err
	default:
		current, err = strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("registry key %q does not contain a numeric value", key)
		}
	}

	next := current + delta
	body := []byte(strconv.FormatInt(next, 10))
	upsert := tx.StmtContext(ctx, s.upsertStmt)
	defer upsert.Close()
	if _, err := upsert.ExecContext(ctx, s.rowKey(key), body, body); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *sqlStore) Remove(ctx context.Context, keys ...string) error {
	switch len(keys) {
	case 0:
		return nil
	case 1:
		_, err := s.deleteStmt.ExecContext(ctx, s.rowKey(keys[0]))
		return err
	}
	placeholders := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		placeholders = append(placeholders, s.ph(i+1))
		args = append(args, s.rowKey(k))
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE k IN (%s)", s.table, strings.Join(placeholders, ",")), args...)
	return err
}

// Clear only drops rows under this store's prefix so several registries can
// share a table.
func (s *sqlStore) Clear(ctx context.Context) error {
	_, err := s.clearStmt.ExecContext(ctx, escapeSQLLike(s.rowKey(""))+"%")
	return err
}

// Close releases the underlying connection pool.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

func (s *sqlStore) rowKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}

func (s *sqlStore) dialect() string {
	switch s.driverName {
	case "postgres", "pgx":
		return "postgres"
	case "mysql":
		return "mysql"
	default:
		return "sqlite"
	}
}

func (s *sqlStore) loadSQL() string {
	return fmt.Sprintf("SELECT v FROM %s WHERE k = %s", s.table, s.ph(1))
}

func (s *sqlStore) upsertSQL() string {
	p1, p2, p3 := s.ph(1), s.ph(2), s.ph(3)
	switch s.dialect() {
	case "postgres":
		return fmt.Sprintf("INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT (k) DO UPDATE SET v = %s", s.table, p1, p2, p3)
	case "mysql":
		return fmt.Sprintf("INSERT INTO %s (k, v) VALUES (%s, %s) ON DUPLICATE KEY UPDATE v = %s", s.table, p1, p2, p3)
	default:
		return fmt.Sprintf("INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT(k) DO UPDATE SET v = %s", s.table, p1, p2, p3)
	}
}

func (s *sqlStore) insertSQL() string {
	p1, p2 := s.ph(1), s.ph(2)
	switch s.dialect() {
	case "mysql":
		return fmt.Sprintf("INSERT IGNORE INTO %s (k, v) VALUES (%s, %s)", s.table, p1, p2)
	default:
		return fmt.Sprintf("INSERT INTO %s (k, v) VALUES (%s, %s) ON CONFLICT DO NOTHING", s.table, p1, p2)
	}
}

func (s *sqlStore) deleteSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE k = %s", s.table, s.ph(1))
}

func (s *sqlStore) clearSQL() string {
	return fmt.Sprintf("DELETE FROM %s WHERE k LIKE %s ESCAPE '!'", s.table, s.ph(1))
}

// escapeSQLLike quotes LIKE wildcards with '!' to match the ESCAPE clause.
func escapeSQLLike(s string) string {
	return sqlLikeEscaper.Replace(s)
}

var sqlLikeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func (s *sqlStore) prepareStatements() error {
	var err error
	if s.loadStmt, err = s.db.Prepare(s.loadSQL()); err != nil {
		return err
	}
	if s.upsertStmt, err = s.db.Prepare(s.upsertSQL()); err != nil {
		return err
	}
	if s.insertStmt, err = s.db.Prepare(s.insertSQL()); err != nil {
		return err
	}
	if s.deleteStmt, err = s.db.Prepare(s.deleteSQL()); err != nil {
		return err
	}
	if s.clearStmt, err = s.db.Prepare(s.clearSQL()); err != nil {
		return err
	}
	return nil
}

func (s *sqlStore) ph(i int) string {
	if s.dialect() == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func validateSQLTableName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("sql table name is required")
	}
	for _, part := range strings.Split(name, ".") {
		if !sqlIdentPartRE.MatchString(part) {
			return fmt.Errorf("invalid sql table name %q", name)
		}
	}
	return nil
}
