package credstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// File stores every blob inside a single JSON file. Suitable for hosts
// without a usable system keyring.
type File struct {
	// Path is the location of the credentials file.
	Path string
}

// fileContents is the on-disk shape: one keyed collection of blobs.
// []byte values round-trip through JSON as base64 untouched.
type fileContents struct {
	Credentials map[string][]byte `json:"credentials"`
}

// NewFile creates a file-backed store at path. The file is created on the
// first Set.
func NewFile(path string) *File {
	return &File{Path: path}
}

func (f *File) Get(key string) ([]byte, error) {
	contents, err := f.read()
	if err != nil {
		return nil, err
	}
	blob, ok := contents.Credentials[key]
	if !ok {
		return nil, ErrNotFound
	}
	return blob, nil
}

func (f *File) Set(key string, blob []byte) error {
	contents, err := f.read()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if contents.Credentials == nil {
		contents.Credentials = make(map[string][]byte)
	}
	contents.Credentials[key] = blob
	return f.write(contents)
}

// Delete removes key from the collection. Neither a missing key nor a
// missing file is an error.
func (f *File) Delete(key string) error {
	contents, err := f.read()
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, ok := contents.Credentials[key]; !ok {
		return nil
	}
	delete(contents.Credentials, key)
	return f.write(contents)
}

// read loads the file. A missing file reads as ErrNotFound so Get and
// Delete can give it their own meaning.
func (f *File) read() (fileContents, error) {
	var contents fileContents

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return contents, ErrNotFound
		}
		return contents, &BackendError{Backend: "file", Op: "read", Err: err}
	}

	if err := json.Unmarshal(data, &contents); err != nil {
		return contents, &BackendError{Backend: "file", Op: "decode", Err: fmt.Errorf("malformed credentials file %s: %w", f.Path, err)}
	}
	return contents, nil
}

func (f *File) write(contents fileContents) error {
	data, err := json.MarshalIndent(contents, "", "  ")
	if err != nil {
		return &BackendError{Backend: "file", Op: "encode", Err: err}
	}

	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return &BackendError{Backend: "file", Op: "write", Err: fmt.Errorf("failed to create directory %s: %w", dir, err)}
	}
	if err := os.WriteFile(f.Path, data, 0600); err != nil {
		return &BackendError{Backend: "file", Op: "write", Err: err}
	}
	return nil
}
