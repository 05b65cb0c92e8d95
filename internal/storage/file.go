package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// File persiste toutes les clés dans un seul fichier JSON ({"clé": valeur}).
// Le fichier est relu à chaque lecture : un autre processus peut l'avoir modifié.
type File struct {
	notifier
	path string
	mu   sync.Mutex
	// snapshot du contenu connu, pour détecter les changements externes dans Watch
	known   map[string]json.RawMessage
	modTime time.Time
}

// NewFile ouvre (ou crée au premier Set) le fichier d'état à path
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("création dossier état: %w", err)
	}
	f := &File{path: path}
	data, mod, err := f.read()
	if err != nil {
		return nil, err
	}
	f.known, f.modTime = data, mod
	return f, nil
}

func (f *File) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _, err := f.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := data[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *File) Set(key string, value []byte) error {
	var compact bytes.Buffer
	if err := json.Compact(&compact, value); err != nil {
		return fmt.Errorf("valeur JSON invalide pour %s: %w", key, err)
	}
	err := f.update(func(data map[string]json.RawMessage) {
		data[key] = compact.Bytes()
	})
	if err != nil {
		return err
	}
	f.notify(key)
	return nil
}

func (f *File) Delete(keys ...string) error {
	err := f.update(func(data map[string]json.RawMessage) {
		for _, k := range keys {
			delete(data, k)
		}
	})
	if err != nil {
		return err
	}
	f.notify(keys...)
	return nil
}

func (f *File) Clear() error {
	var keys []string
	err := f.update(func(data map[string]json.RawMessage) {
		for k := range data {
			keys = append(keys, k)
			delete(data, k)
		}
	})
	if err != nil {
		return err
	}
	f.notify(keys...)
	return nil
}

// Watch surveille le fichier et notifie les clés modifiées par un autre processus.
// Bloque jusqu'à l'annulation de ctx.
func (f *File) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if changed := f.poll(); len(changed) > 0 {
				f.notify(changed...)
			}
		}
	}
}

func (f *File) poll() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️ Lecture état impossible: %v", err)
		return nil
	}
	var mod time.Time
	if info != nil {
		mod = info.ModTime()
	}
	if mod.Equal(f.modTime) {
		return nil
	}

	data, mod, err := f.read()
	if err != nil {
		log.Printf("⚠️ Lecture état impossible: %v", err)
		return nil
	}
	changed := diffKeys(f.known, data)
	f.known, f.modTime = data, mod
	return changed
}

func (f *File) update(mutate func(map[string]json.RawMessage)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, _, err := f.read()
	if err != nil {
		return err
	}
	mutate(data)

	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encodage état: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("écriture état: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("écriture état: %w", err)
	}

	// nos propres écritures ne doivent pas être vues comme externes
	f.known = data
	if info, err := os.Stat(f.path); err == nil {
		f.modTime = info.ModTime()
	}
	return nil
}

func (f *File) read() (map[string]json.RawMessage, time.Time, error) {
	data := make(map[string]json.RawMessage)
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return data, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("lecture état: %w", err)
	}
	info, err := os.Stat(f.path)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("lecture état: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, info.ModTime(), nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, time.Time{}, fmt.Errorf("état corrompu %s: %w", f.path, err)
	}
	return data, info.ModTime(), nil
}

func diffKeys(before, after map[string]json.RawMessage) []string {
	var changed []string
	for k, v := range after {
		if old, ok := before[k]; !ok || !bytes.Equal(old, v) {
			changed = append(changed, k)
		}
	}
	for k := range before {
		if _, ok := after[k]; !ok {
			changed = append(changed, k)
		}
	}
	return changed
}
