package storage

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"remedy/internal/catalog"
	"remedy/internal/errors"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to init schema")
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS categories (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			code TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			class TEXT,
			indications TEXT,
			composition TEXT,
			dosage TEXT,
			contraindications TEXT,
			side_effects TEXT,
			price TEXT,
			manufacturer TEXT,
			warning TEXT,
			image TEXT,
			category_code TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS rules (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			observation_code TEXT NOT NULL,
			categories TEXT NOT NULL,
			confidence REAL NOT NULL CHECK (confidence >= 0 AND confidence <= 1)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_code);`,
		`CREATE INDEX IF NOT EXISTS idx_rules_observation ON rules(observation_code);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const (
	upsertObservation = `
		INSERT INTO observations (code, name) VALUES (?, ?)
		ON CONFLICT(code) DO UPDATE SET name=excluded.name`
	upsertCategory = `
		INSERT INTO categories (code, name) VALUES (?, ?)
		ON CONFLICT(code) DO UPDATE SET name=excluded.name`
	upsertItem = `
		INSERT INTO items (code, name, description, class, indications, composition, dosage,
			contraindications, side_effects, price, manufacturer, warning, image, category_code)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name=excluded.name,
			description=excluded.description,
			class=excluded.class,
			indications=excluded.indications,
			composition=excluded.composition,
			dosage=excluded.dosage,
			contraindications=excluded.contraindications,
			side_effects=excluded.side_effects,
			price=excluded.price,
			manufacturer=excluded.manufacturer,
			warning=excluded.warning,
			image=excluded.image,
			category_code=excluded.category_code`
	insertRule  = `INSERT INTO rules (observation_code, categories, confidence) VALUES (?, ?, ?)`
	itemColumns = `code, name, description, class, indications, composition, dosage,
		contraindications, side_effects, price, manufacturer, warning, image, category_code`
)

// --- CatalogStore Implementation ---

func (s *SQLiteStore) SaveObservation(ctx context.Context, o catalog.Observation) error {
	_, err := s.db.ExecContext(ctx, upsertObservation, o.Code, o.Name)
	return err
}

func (s *SQLiteStore) SaveCategory(ctx context.Context, c catalog.Category) error {
	_, err := s.db.ExecContext(ctx, upsertCategory, c.Code, c.Name)
	return err
}

func (s *SQLiteStore) SaveItem(ctx context.Context, it catalog.Item) error {
	return saveItem(ctx, s.db, it)
}

func saveItem(ctx context.Context, db execer, it catalog.Item) error {
	_, err := db.ExecContext(ctx, upsertItem,
		it.Code, it.Name, it.Description, it.Class, it.Indications, it.Composition, it.Dosage,
		it.Contraindications, it.SideEffects, it.Price, it.Manufacturer, it.Warning, it.Image, it.Category)
	return err
}

func (s *SQLiteStore) ListObservations(ctx context.Context) ([]catalog.Observation, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT code, name FROM observations ORDER BY code")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query observations")
	}
	defer rows.Close()

	var out []catalog.Observation
	for rows.Next() {
		var o catalog.Observation
		if err := rows.Scan(&o.Code, &o.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan observation")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT code, name FROM categories ORDER BY code")
	if err != nil {
		return nil, errors.Wrap(err, "failed to query categories")
	}
	defer rows.Close()

	var out []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan category")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ObservationsByCode(ctx context.Context, codes []string) ([]catalog.Observation, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT code, name FROM observations WHERE code IN ("+placeholders(len(codes))+")",
		anySlice(codes)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query observations")
	}
	defer rows.Close()

	byCode := make(map[string]catalog.Observation, len(codes))
	for rows.Next() {
		var o catalog.Observation
		if err := rows.Scan(&o.Code, &o.Name); err != nil {
			return nil, errors.Wrap(err, "failed to scan observation")
		}
		byCode[o.Code] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var out []catalog.Observation
	for _, c := range codes {
		if o, ok := byCode[c]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *SQLiteStore) ItemsByCategory(ctx context.Context, categories ...string) ([]catalog.Item, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+itemColumns+" FROM items WHERE category_code IN ("+placeholders(len(categories))+") ORDER BY category_code, code",
		anySlice(categories)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query items")
	}
	defer rows.Close()

	var out []catalog.Item
	for rows.Next() {
		var it catalog.Item
		var description, class, indications, composition, dosage, contra, side, price, manufacturer, warning, image sql.NullString
		if err := rows.Scan(&it.Code, &it.Name, &description, &class, &indications, &composition, &dosage,
			&contra, &side, &price, &manufacturer, &warning, &image, &it.Category); err != nil {
			return nil, errors.Wrap(err, "failed to scan item")
		}
		it.Description = description.String
		it.Class = class.String
		it.Indications = indications.String
		it.Composition = composition.String
		it.Dosage = dosage.String
		it.Contraindications = contra.String
		it.SideEffects = side.String
		it.Price = price.String
		it.Manufacturer = manufacturer.String
		it.Warning = warning.String
		it.Image = image.String
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ImportCatalog(ctx context.Context, c *catalog.Catalog) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, o := range c.Observations {
		if _, err := tx.ExecContext(ctx, upsertObservation, o.Code, o.Name); err != nil {
			return errors.Wrapf(err, "failed to save observation %s", o.Code)
		}
	}
	for _, k := range c.Categories {
		if _, err := tx.ExecContext(ctx, upsertCategory, k.Code, k.Name); err != nil {
			return errors.Wrapf(err, "failed to save category %s", k.Code)
		}
	}
	for _, it := range c.Items {
		if err := saveItem(ctx, tx, it); err != nil {
			return errors.Wrapf(err, "failed to save item %s", it.Code)
		}
	}

	// Replace the rules of every observation the catalog covers.
	replaced := make(map[string]bool)
	for _, r := range c.Rules {
		if replaced[r.Observation] {
			continue
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM rules WHERE observation_code = ?", r.Observation); err != nil {
			return errors.Wrapf(err, "failed to clear rules of %s", r.Observation)
		}
		replaced[r.Observation] = true
	}

	stmt, err := tx.PrepareContext(ctx, insertRule)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range c.Rules {
		if _, err := stmt.ExecContext(ctx, r.Observation, strings.Join(r.Categories, ","), r.Confidence); err != nil {
			return errors.Wrapf(err, "failed to save rule for %s", r.Observation)
		}
	}

	return tx.Commit()
}

// --- RuleStore Implementation ---

func (s *SQLiteStore) SaveRule(ctx context.Context, r *catalog.Rule) error {
	categories := strings.Join(r.Categories, ",")
	if r.ID != 0 {
		res, err := s.db.ExecContext(ctx,
			"UPDATE rules SET observation_code = ?, categories = ?, confidence = ? WHERE id = ?",
			r.Observation, categories, r.Confidence, r.ID)
		if err != nil {
			return errors.Wrapf(err, "failed to update rule %d", r.ID)
		}
		return requireAffected(res, r.ID)
	}

	res, err := s.db.ExecContext(ctx, insertRule, r.Observation, categories, r.Confidence)
	if err != nil {
		return errors.Wrapf(err, "failed to insert rule for %s", r.Observation)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (s *SQLiteStore) DeleteRule(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return errors.Wrapf(err, "failed to delete rule %d", id)
	}
	return requireAffected(res, id)
}

func (s *SQLiteStore) ListRules(ctx context.Context) ([]catalog.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, observation_code, categories, confidence FROM rules
		ORDER BY CAST(SUBSTR(observation_code, 2) AS INTEGER), observation_code, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query rules")
	}
	defer rows.Close()
	return scanRules(rows)
}

func (s *SQLiteStore) RulesFor(ctx context.Context, observations []string) (map[string]catalog.Rule, error) {
	out := make(map[string]catalog.Rule, len(observations))
	if len(observations) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, observation_code, categories, confidence FROM rules WHERE observation_code IN ("+placeholders(len(observations))+") ORDER BY id",
		anySlice(observations)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query rules")
	}
	defer rows.Close()

	rules, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	for _, r := range rules {
		if _, seen := out[r.Observation]; !seen {
			out[r.Observation] = r
		}
	}
	return out, nil
}

func scanRules(rows *sql.Rows) ([]catalog.Rule, error) {
	var out []catalog.Rule
	for rows.Next() {
		var r catalog.Rule
		var categories string
		if err := rows.Scan(&r.ID, &r.Observation, &categories, &r.Confidence); err != nil {
			return nil, errors.Wrap(err, "failed to scan rule")
		}
		r.Categories = catalog.CanonicalCodes(strings.Split(categories, ","))
		out = append(out, r)
	}
	return out, rows.Err()
}

// ErrNotFound is returned when an update or delete matches no row.
var ErrNotFound = errors.New("not found")

func requireAffected(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "rule %d", id)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func anySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
