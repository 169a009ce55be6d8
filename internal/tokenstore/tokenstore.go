// Package tokenstore persists the token pair between console invocations of
// the same shell. The file encoding is an XOR mask plus base64: it keeps the
// tokens out of casual view and is not encryption.
package tokenstore

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

var ErrEmpty = errors.New("no stored session")

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (t Tokens) Empty() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

type Store interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
}

// Memory keeps the pair in process memory.
type Memory struct {
	mu     sync.Mutex
	tokens Tokens
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load() (Tokens, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens.Empty() {
		return Tokens{}, ErrEmpty
	}
	return m.tokens, nil
}

func (m *Memory) Save(t Tokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = t
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = Tokens{}
	return nil
}

// File stores the obfuscated pair in a single file with mode 0600.
type File struct {
	path string
	key  []byte
	mu   sync.Mutex
}

func NewFile(path, key string) *File {
	if key == "" {
		key = "affconsole"
	}
	return &File{path: path, key: []byte(key)}
}

// DefaultPath scopes the file to the parent shell so a new terminal starts
// logged out.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "affconsole-"+strconv.Itoa(os.Getppid())+".session")
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Load() (Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Tokens{}, ErrEmpty
		}
		return Tokens{}, fmt.Errorf("read session file: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(string(raw))
	if err != nil {
		return Tokens{}, fmt.Errorf("decode session file: %w", err)
	}

	var t Tokens
	if err := json.Unmarshal(mask(data, f.key), &t); err != nil {
		return Tokens{}, fmt.Errorf("decode session file: %w", err)
	}
	if t.Empty() {
		return Tokens{}, ErrEmpty
	}
	return t, nil
}

func (f *File) Save(t Tokens) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(mask(data, f.key))

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(encoded), 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *File) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func mask(data, key []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}
