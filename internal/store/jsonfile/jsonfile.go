package jsonfile

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/loykin/taskr/internal/store"
	"github.com/loykin/taskr/internal/todo"
)

//go:embed snapshot.schema.json
var schemaJSON []byte

const schemaURL = "snapshot.schema.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// File persists the store as a single JSON document:
//
//	{"sessions": {"<key>": {"todos": [...], "last_updated": <epoch>}}, "last_saved": <epoch>}
//
// Every Save rewrites the whole document.
type File struct {
	path string
	mu   sync.Mutex
}

// New returns a persister for path. A leading "~/" expands to the home directory.
func New(path string) (*File, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty storage file path")
	}
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", p, err)
		}
		p = filepath.Join(home, p[2:])
	}
	return &File{path: filepath.Clean(p)}, nil
}

func (f *File) Kind() string     { return "jsonfile" }
func (f *File) Location() string { return f.path }
func (f *File) Close() error     { return nil }

type fileSession struct {
	Todos       []todo.Record `json:"todos"`
	LastUpdated float64       `json:"last_updated"`
}

// sessionList marshals as a JSON object whose keys keep slice order.
type sessionList []store.Session

func (l sessionList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(s.Key)
		if err != nil {
			return nil, err
		}
		todos := s.Todos
		if todos == nil {
			todos = []todo.Record{}
		}
		v, err := json.Marshal(fileSession{Todos: todos, LastUpdated: store.UnixSeconds(s.LastUpdated)})
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type document struct {
	Sessions  sessionList `json:"sessions"`
	LastSaved float64     `json:"last_saved"`
}

// Save writes snap to a temporary file next to the target and renames it into place.
func (f *File) Save(_ context.Context, snap *store.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc := document{Sessions: sessionList(snap.Sessions), LastSaved: store.UnixSeconds(snap.LastSaved)}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

// Load reads the document. A missing file is an empty snapshot; a file that
// does not parse or does not match the snapshot schema is an error.
func (f *File) Load(_ context.Context) (*store.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &store.Snapshot{}, nil
		}
		return nil, err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile snapshot schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("check %s: %w", f.path, firstSchemaError(err))
	}

	var raw struct {
		Sessions  json.RawMessage `json:"sessions"`
		LastSaved float64         `json:"last_saved"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	sessions, err := decodeSessions(raw.Sessions)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return &store.Snapshot{Sessions: sessions, LastSaved: store.FromUnixSeconds(raw.LastSaved)}, nil
}

// decodeSessions walks the sessions object token by token so the file's key
// order becomes the store's insertion order.
func decodeSessions(raw json.RawMessage) ([]store.Session, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []store.Session
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		var fs fileSession
		if err := dec.Decode(&fs); err != nil {
			return nil, fmt.Errorf("session %s: %w", key, err)
		}
		if fs.Todos == nil {
			fs.Todos = []todo.Record{}
		}
		out = append(out, store.Session{Key: key, Todos: fs.Todos, LastUpdated: store.FromUnixSeconds(fs.LastUpdated)})
	}
	return out, nil
}

// firstSchemaError digs out the innermost cause so the log line names the
// offending location instead of the schema root.
func firstSchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return fmt.Errorf("%s: %s", loc, ve.Message)
}
