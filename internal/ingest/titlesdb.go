package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/CJohnsonADAH/adpn-cli/internal/logging"
)

// TitlesDB loads finalized packets into the titles database consumed by the
// preservation network's configuration server.
type TitlesDB struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	// Echo, when set, receives the SQL applied for each load so it can be
	// captured into a reusable script.
	Echo io.Writer
}

// OpenTitlesDB connects to (or initializes) the titles database.
func OpenTitlesDB(path string, logger *slog.Logger) (*TitlesDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open titles db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &TitlesDB{db: db, path: path, logger: logging.NewComponentLogger(logger, "titlesdb")}
	if err := store.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (t *TitlesDB) Close() error {
	if t == nil || t.db == nil {
		return nil
	}
	return t.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS au_titlelist (
	au_id INTEGER PRIMARY KEY AUTOINCREMENT,
	au_name TEXT NOT NULL,
	au_title TEXT NOT NULL,
	au_plugin TEXT NOT NULL DEFAULT '',
	au_approved_for_removal TEXT NOT NULL DEFAULT 'n'
);
CREATE TABLE IF NOT EXISTS au_titlelist_params (
	au_id INTEGER NOT NULL REFERENCES au_titlelist(au_id),
	au_param INTEGER NOT NULL,
	au_param_key TEXT NOT NULL,
	au_param_value TEXT NOT NULL,
	is_definitional TEXT NOT NULL DEFAULT 'y',
	PRIMARY KEY (au_id, au_param)
);
CREATE TABLE IF NOT EXISTS adpn_peer_titles (
	peer_id TEXT NOT NULL,
	au_id INTEGER NOT NULL REFERENCES au_titlelist(au_id),
	PRIMARY KEY (peer_id, au_id)
);
`

func (t *TitlesDB) applySchema(ctx context.Context) error {
	if _, err := t.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply titles schema: %w", err)
	}
	return nil
}

// Load inserts the packet as one archival unit: a title row, its plugin
// parameters, and the peer assignment. The whole load is transactional; a
// failed load leaves the database untouched and reports status 1.
func (t *TitlesDB) Load(ctx context.Context, req Request) (int, error) {
	title, ok := req.Packet.Get("title")
	if !ok || strings.TrimSpace(title) == "" {
		return 1, fmt.Errorf("packet has no title")
	}
	peer := req.Params["peer"]
	if peer == "" {
		peer, _ = req.Packet.Get("peer")
	}
	if strings.TrimSpace(peer) == "" {
		return 1, fmt.Errorf("no peer resolved for %q", title)
	}
	plugin, _ := req.Packet.Get("plugin_id")

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 1, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	insertTitle := "INSERT INTO au_titlelist (au_name, au_title, au_plugin) VALUES (?, ?, ?);"
	t.echo(insertTitle, auName(title), title, plugin)
	result, err := tx.ExecContext(ctx, insertTitle, auName(title), title, plugin)
	if err != nil {
		return 1, fmt.Errorf("insert title: %w", err)
	}
	auID, err := result.LastInsertId()
	if err != nil {
		return 1, fmt.Errorf("title id: %w", err)
	}

	insertParam := "INSERT INTO au_titlelist_params (au_id, au_param, au_param_key, au_param_value) VALUES (?, ?, ?, ?);"
	for i, pair := range req.Packet.Parameters() {
		t.echo(insertParam, auID, i+1, pair[0], pair[1])
		if _, err := tx.ExecContext(ctx, insertParam, auID, i+1, pair[0], pair[1]); err != nil {
			return 1, fmt.Errorf("insert parameter %s: %w", pair[0], err)
		}
	}

	insertPeer := "INSERT INTO adpn_peer_titles (peer_id, au_id) VALUES (?, ?);"
	t.echo(insertPeer, peer, auID)
	if _, err := tx.ExecContext(ctx, insertPeer, peer, auID); err != nil {
		return 1, fmt.Errorf("insert peer title: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 1, fmt.Errorf("commit load: %w", err)
	}

	t.logger.Info("loaded archival unit",
		logging.String("title", title),
		logging.String("peer", peer),
		logging.Int("au_id", int(auID)))
	return 0, nil
}

// CountTitles reports how many archival units the database holds.
func (t *TitlesDB) CountTitles(ctx context.Context) (int, error) {
	var count int
	if err := t.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM au_titlelist").Scan(&count); err != nil {
		return 0, fmt.Errorf("count titles: %w", err)
	}
	return count, nil
}

func (t *TitlesDB) echo(query string, args ...any) {
	if t.Echo == nil {
		return
	}
	rendered := query
	for _, arg := range args {
		rendered = strings.Replace(rendered, "?", fmt.Sprintf("'%v'", arg), 1)
	}
	fmt.Fprintln(t.Echo, rendered)
}

// auName derives the compact AU identifier from a human title.
func auName(title string) string {
	var sb strings.Builder
	for _, r := range title {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
