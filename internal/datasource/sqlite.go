package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/scalefilter/pkg/debug"
	"github.com/vanderheijden86/scalefilter/pkg/model"
)

// ErrNoTable is returned when a SQLite source names no table.
var ErrNoTable = errors.New("sqlite source needs a table")

// SQLiteSource pages through one table of a SQLite database.
type SQLiteSource struct {
	db      *sql.DB
	path    string
	table   string
	columns []string
	search  []string
	orderBy string
}

// NewSQLiteSource opens the database of ds for reading
func NewSQLiteSource(ds DataSource) (*SQLiteSource, error) {
	if ds.Type != "" && ds.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", ds.Type)
	}
	if ds.Table == "" {
		return nil, ErrNoTable
	}

	// Open in read-only mode with various pragmas for read performance
	dsn := fmt.Sprintf("file:%s?mode=ro&_busy_timeout=5000", ds.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA cache_size = -16000", // 16MB cache
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			debug.Log("datasource: %s failed: %v", pragma, err)
		}
	}

	src := &SQLiteSource{
		db:      db,
		path:    ds.Path,
		table:   ds.Table,
		columns: ds.Columns,
		search:  ds.SearchColumns,
		orderBy: ds.OrderBy,
	}
	if len(src.columns) == 0 {
		cols, err := src.tableColumns()
		if err != nil {
			db.Close()
			return nil, err
		}
		src.columns = cols
	}
	if len(src.search) == 0 {
		src.search = src.columns
	}
	return src, nil
}

// Close closes the database connection
func (s *SQLiteSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteSource) tableColumns() ([]string, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(s.table)))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", s.table, err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("reading columns of %s: %w", s.table, err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("table %s not found in %s", s.table, s.path)
	}
	return cols, nil
}

// where builds the search clause and its arguments.
func (s *SQLiteSource) where(pattern string) (string, []any) {
	if pattern == "" {
		return "", nil
	}
	like := "%" + escapeLike(pattern) + "%"
	clauses := make([]string, len(s.search))
	args := make([]any, len(s.search))
	for i, col := range s.search {
		clauses[i] = fmt.Sprintf("CAST(%s AS TEXT) LIKE ? ESCAPE '\\'", quoteIdent(col))
		args[i] = like
	}
	return " WHERE " + strings.Join(clauses, " OR "), args
}

// Fetch returns one page of rows matching req.Pattern, plus the total number
// of matches. LIKE matching in SQLite ignores ASCII case.
func (s *SQLiteSource) Fetch(ctx context.Context, req model.PageRequest) (model.Page, error) {
	where, args := s.where(req.Pattern)
	page := model.Page{Start: req.Offset()}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", quoteIdent(s.table), where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&page.Total); err != nil {
		return model.Page{}, fmt.Errorf("counting rows: %w", err)
	}
	page.HasTotal = true

	cols := make([]string, len(s.columns))
	for i, c := range s.columns {
		cols[i] = quoteIdent(c)
	}
	order := "rowid"
	if s.orderBy != "" {
		order = quoteIdent(s.orderBy)
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		strings.Join(cols, ", "), quoteIdent(s.table), where, order)
	if req.PageSize > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, req.PageSize, page.Start)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return model.Page{}, fmt.Errorf("querying rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return model.Page{}, fmt.Errorf("scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		page.Rows = append(page.Rows, model.Row(values))
	}
	if err := rows.Err(); err != nil {
		return model.Page{}, fmt.Errorf("error iterating rows: %w", err)
	}
	debug.Log("datasource: %s page %d (%d rows of %d, pattern %q)", s.table, req.Page, len(page.Rows), page.Total, req.Pattern)
	return page, nil
}

// Import writes rows into a new table of the database at path, creating the
// file if needed. An existing table of the same name is replaced.
func Import(ctx context.Context, path, table string, columns []string, rows []model.Row) error {
	if table == "" {
		return ErrNoTable
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
		marks[i] = "?"
	}
	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table)),
		fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(quoted, ", ")),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating table %s: %w", table, err)
		}
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer insert.Close()

	for i, row := range rows {
		args := make([]any, len(columns))
		copy(args, row)
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
