package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBadLabelName имя файла этикетки содержит разделители пути
var ErrBadLabelName = errors.New("invalid label filename")

// LabelStore хранит PDF-этикетки на диске: {orderNumber}-{trackingNumber}.pdf
type LabelStore struct {
	Dir string
}

func NewLabelStore(dir string) *LabelStore {
	return &LabelStore{Dir: dir}
}

// Save кладёт этикетку и возвращает имя файла для последующей выдачи
func (s *LabelStore) Save(orderNumber, trackingNumber string, data []byte) (string, error) {
	filename := fmt.Sprintf("%s-%s.pdf", orderNumber, trackingNumber)
	if !validLabelName(filename) {
		return "", ErrBadLabelName
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.Dir, filename), data, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

// Open читает сохранённую этикетку по имени файла
func (s *LabelStore) Open(filename string) ([]byte, error) {
	if !validLabelName(filename) {
		return nil, ErrBadLabelName
	}
	return os.ReadFile(filepath.Join(s.Dir, filename))
}

// validLabelName защита от обхода каталога в пользовательском вводе
func validLabelName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\") {
		return false
	}
	return !strings.Contains(name, "..")
}
