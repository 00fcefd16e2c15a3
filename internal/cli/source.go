package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/api"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/entity"
	"github.com/MetinAbaszade/Project-Management-System-sub000/internal/record"
)

var errNoSource = errors.New("no data source: set api_url and project, or pass --from")

// source yields raw list payloads for a kind, either from a local file or
// from the backend.
type source struct {
	app  *app
	in   io.Reader
	from string // file, directory (dashboard) or "-" for stdin
}

func (a *app) source(in io.Reader, from string) *source {
	return &source{app: a, in: in, from: from}
}

func (a *app) client() (*api.Client, error) {
	if a.cfg.APIURL == "" || a.cfg.Project == "" {
		return nil, errNoSource
	}

	return api.New(api.Options{
		BaseURL: a.cfg.APIURL,
		Project: a.cfg.Project,
		Token:   a.cfg.Token,
		Catalog: a.catalog,
		Logger:  a.logger,
	})
}

// Raw returns the payload for kind as JSON.
func (s *source) Raw(ctx context.Context, kind entity.Kind) ([]byte, error) {
	if s.from == "" {
		client, err := s.app.client()
		if err != nil {
			return nil, err
		}

		return client.Raw(ctx, kind)
	}

	path := s.from

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		found, err := kindFile(path, kind)
		if err != nil {
			return nil, err
		}

		path = found
	}

	return s.readFile(path)
}

// Records returns the decoded records for kind.
func (s *source) Records(ctx context.Context, kind entity.Kind) (entity.Entity, []record.Record, error) {
	e, err := s.app.catalog.Get(kind)
	if err != nil {
		return entity.Entity{}, nil, err
	}

	body, err := s.Raw(ctx, kind)
	if err != nil {
		return entity.Entity{}, nil, err
	}

	records, err := e.Decode(body)
	if err != nil {
		return entity.Entity{}, nil, fmt.Errorf("decode %s: %w", kind, err)
	}

	return e, records, nil
}

// All returns the records of every kind. Against the backend the lists are
// fetched concurrently.
func (s *source) All(ctx context.Context) (map[entity.Kind][]record.Record, error) {
	if s.from == "" {
		client, err := s.app.client()
		if err != nil {
			return nil, err
		}

		return client.FetchAll(ctx, entity.Kinds()...)
	}

	out := make(map[entity.Kind][]record.Record, len(entity.Kinds()))

	for _, kind := range entity.Kinds() {
		_, records, err := s.Records(ctx, kind)
		if err != nil {
			return nil, err
		}

		out[kind] = records
	}

	return out, nil
}

func (s *source) readFile(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		if s.in == nil {
			return nil, errors.New("reading stdin: no input")
		}

		data, err = io.ReadAll(s.in)
	} else {
		data, err = os.ReadFile(path)
	}

	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		return data, nil
	}
}

// kindFile finds <kind>.json, <kind>.yaml or <kind>.yml in dir.
func kindFile(dir string, kind entity.Kind) (string, error) {
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		path := filepath.Join(dir, string(kind)+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no %s.json or %s.yaml in %s", kind, kind, dir)
}

// yamlToJSON re-encodes a YAML document so the JSON decoders can read it.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("converting yaml: %w", err)
	}

	return out, nil
}
