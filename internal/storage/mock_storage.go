package storage

import (
	"io"
	"os"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

var _ FileStore = (*MockStore)(nil)

func (m *MockStore) Resolve(filename string, subdir string) (string, error) {
	args := m.Called(filename, subdir)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Save(r io.Reader, originalName string, subdir string, maxBytes int64) (SavedFile, error) {
	args := m.Called(r, originalName, subdir, maxBytes)
	return args.Get(0).(SavedFile), args.Error(1)
}

func (m *MockStore) Delete(filename string, subdir string) error {
	args := m.Called(filename, subdir)
	return args.Error(0)
}

func (m *MockStore) Open(filename string, subdir string) (*os.File, os.FileInfo, error) {
	args := m.Called(filename, subdir)
	var file *os.File
	if f := args.Get(0); f != nil {
		file = f.(*os.File)
	}
	var info os.FileInfo
	if i := args.Get(1); i != nil {
		info = i.(os.FileInfo)
	}
	return file, info, args.Error(2)
}
