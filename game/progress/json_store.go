package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JSONStore keeps progress in a local JSON file
type JSONStore struct {
	filePath string
	mutex    sync.RWMutex
	data     *JSONData
}

// JSONData represents the structure of the progress file
type JSONData struct {
	Completed map[int]Record `json:"completed"`
}

// NewJSONStore opens the progress file, creating it if needed
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data: &JSONData{
			Completed: make(map[int]Record),
		},
	}

	if dir := filepath.Dir(filePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create progress directory: %w", err)
		}
	}

	// Load existing data if file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := store.loadFromFile(); err != nil {
			return nil, fmt.Errorf("failed to load progress file: %w", err)
		}
	} else {
		store.mutex.Lock()
		err := store.saveToFile()
		store.mutex.Unlock()
		if err != nil {
			return nil, fmt.Errorf("failed to create progress file: %w", err)
		}
	}

	return store, nil
}

func (js *JSONStore) loadFromFile() error {
	js.mutex.Lock()
	defer js.mutex.Unlock()

	file, err := os.ReadFile(js.filePath)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(file, js.data); err != nil {
		return err
	}
	if js.data.Completed == nil {
		js.data.Completed = make(map[int]Record)
	}
	return nil
}

// saveToFile writes the data through a temp file; callers hold the mutex
func (js *JSONStore) saveToFile() error {
	data, err := json.MarshalIndent(js.data, "", "  ")
	if err != nil {
		return err
	}

	tmp := js.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, js.filePath)
}

// MarkCompleted records a won level
func (js *JSONStore) MarkCompleted(ctx context.Context, levelID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	js.mutex.Lock()
	defer js.mutex.Unlock()

	if _, exists := js.data.Completed[levelID]; exists {
		return nil
	}
	js.data.Completed[levelID] = Record{LevelID: levelID, CompletedAt: time.Now().UTC()}

	if err := js.saveToFile(); err != nil {
		delete(js.data.Completed, levelID)
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Completed returns completed level ids in ascending order
func (js *JSONStore) Completed(ctx context.Context) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	js.mutex.RLock()
	defer js.mutex.RUnlock()
	return sortedIDs(js.data.Completed), nil
}

// Close closes the store (no-op for JSON store)
func (js *JSONStore) Close() error {
	return nil
}
