// Package filestaterepo keeps sealed session snapshots as one file per key, so a
// command-line client can resume its session on the next invocation.
package filestaterepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	svcerrors "github.com/jrsteele09/go-services-client/internal/errors"
	"github.com/jrsteele09/go-services-client/sessions"
)

const fileExt = ".state"

var _ sessions.Repo = (*FileStateRepo)(nil)

type FileStateRepo struct {
	dir    string
	sealer *sessions.Sealer
}

func NewFileStateRepo(dir string, sealer *sessions.Sealer) *FileStateRepo {
	return &FileStateRepo{dir: dir, sealer: sealer}
}

func (r *FileStateRepo) Save(_ context.Context, key string, state sessions.State) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}
	sealed, err := r.sealer.Seal(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(sealed); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

func (r *FileStateRepo) Load(_ context.Context, key string) (sessions.State, error) {
	path, err := r.path(key)
	if err != nil {
		return sessions.State{}, err
	}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return sessions.State{}, svcerrors.ErrSessionNotFound
	}
	if err != nil {
		return sessions.State{}, fmt.Errorf("read state file: %w", err)
	}
	return r.sealer.Open(strings.TrimSpace(string(b)))
}

func (r *FileStateRepo) Delete(_ context.Context, key string) error {
	path, err := r.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}

func (r *FileStateRepo) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid state key %q", key)
	}
	return filepath.Join(r.dir, key+fileExt), nil
}
