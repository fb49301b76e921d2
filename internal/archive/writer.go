package archive

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultBatchSize is the number of images buffered before flushing.
const DefaultBatchSize = 16

type pending struct {
	name   string
	data   []byte // PNG data, gzip-compressed on flush
	width  int
	height int
}

// Writer writes images to an archive. It is safe for concurrent use.
type Writer struct {
	db        *sql.DB
	path      string
	batch     []pending
	batchSize int
	mu        sync.Mutex
}

// Create opens or creates the archive at path and replaces its metadata.
func Create(path string, meta Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := replaceMetadata(db, meta); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:        db,
		path:      path,
		batch:     make([]pending, 0, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS images (
			name TEXT NOT NULL PRIMARY KEY,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			data BLOB NOT NULL
		);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

func replaceMetadata(db *sql.DB, meta Metadata) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if _, err := tx.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	for key, value := range meta.ToMap() {
		if _, err := tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}
	return tx.Commit()
}

// WriteImage queues an encoded PNG under name, replacing any earlier image
// with the same name. Full batches are flushed automatically.
func (w *Writer) WriteImage(name string, width, height int, pngData []byte) error {
	if name == "" {
		return fmt.Errorf("image name must not be empty")
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, pending{name: name, width: width, height: height, data: pngData})
	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush writes buffered images to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO images (name, width, height, data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, img := range w.batch {
		compressed, err := gzipCompress(img.data)
		if err != nil {
			return fmt.Errorf("failed to compress %s: %w", img.name, err)
		}
		if _, err := stmt.Exec(img.name, img.width, img.height, compressed); err != nil {
			return fmt.Errorf("failed to insert %s: %w", img.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.batch = w.batch[:0]
	return nil
}

// Close flushes remaining images and closes the database.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.db.Close()
		return err
	}
	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
