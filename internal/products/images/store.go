package images

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm     = 0o755
	stagePrefix = ".upload-"
)

var (
	ErrNotFound    = errors.New("image not found")
	ErrInvalidName = errors.New("invalid image name")
)

// Store keeps images as flat files in a single directory, keyed by file name.
// Writing an existing name overwrites it.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string {
	return s.dir
}

// CleanName returns the upload file name unchanged, or ErrInvalidName when
// it cannot be stored as a flat file in the image directory.
func CleanName(name string) (string, error) {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return "", ErrInvalidName
	}
	if name == "." || name == ".." || strings.HasPrefix(name, stagePrefix) {
		return "", ErrInvalidName
	}
	return name, nil
}

func (s *Store) Store(name string, data []byte) error {
	staged, err := s.Stage(name, data)
	if err != nil {
		return err
	}
	return staged.Commit()
}

func (s *Store) Retrieve(name string) ([]byte, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read image %q: %w", name, err)
	}
	return data, nil
}

// Stage writes data to a temporary file next to its final location. Nothing
// is visible under name until Commit.
func (s *Store) Stage(name string, data []byte) (*Staged, error) {
	name, err := CleanName(name)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	f, err := os.CreateTemp(s.dir, stagePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("write staging file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return nil, fmt.Errorf("close staging file: %w", err)
	}

	return &Staged{
		name:   name,
		tmp:    tmp,
		target: filepath.Join(s.dir, name),
	}, nil
}

type Staged struct {
	name   string
	tmp    string
	target string
	done   bool
}

func (st *Staged) Name() string {
	return st.name
}

// Commit moves the staged file over its final name.
func (st *Staged) Commit() error {
	if st.done {
		return nil
	}
	st.done = true
	if err := os.Rename(st.tmp, st.target); err != nil {
		_ = os.Remove(st.tmp)
		return fmt.Errorf("commit image %q: %w", st.name, err)
	}
	return nil
}

// Discard drops the staged file. It is a no-op after Commit.
func (st *Staged) Discard() error {
	if st.done {
		return nil
	}
	st.done = true
	if err := os.Remove(st.tmp); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("discard image %q: %w", st.name, err)
	}
	return nil
}
