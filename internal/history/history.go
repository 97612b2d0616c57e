package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DBVersion        = "1.0.0"
	MaxRecentRecords = 100
	fileName         = ".epub-translator-history.json"
)

// 运行状态
const (
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Record 一次翻译运行的记录
type Record struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	InputFile      string        `json:"input_file"`
	OutputFile     string        `json:"output_file"`
	SourceLanguage string        `json:"source_language"`
	TargetLanguage string        `json:"target_language"`
	Model          string        `json:"model"`
	Parts          int           `json:"parts"`
	Segments       int           `json:"segments"`
	Translated     int           `json:"translated"`
	Fallbacks      int           `json:"fallbacks"`
	Duration       time.Duration `json:"duration"`
	Status         string        `json:"status"`
	ErrorMessage   string        `json:"error_message,omitempty"`
}

// Totals 全部运行的累计数据
type Totals struct {
	Runs          int64            `json:"runs"`
	Failures      int64            `json:"failures"`
	Segments      int64            `json:"segments"`
	Fallbacks     int64            `json:"fallbacks"`
	Duration      time.Duration    `json:"duration"`
	LanguagePairs map[string]int64 `json:"language_pairs"`
}

// file 数据文件的内容
type file struct {
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Totals      Totals    `json:"totals"`
	Recent      []Record  `json:"recent"`
}

// Database 运行历史数据库，以 JSON 文件保存
type Database struct {
	filePath string
	data     *file
	mutex    sync.RWMutex
	logger   *zap.Logger
}

// DefaultPath 返回 $HOME 下的历史文件路径
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fileName), nil
}

// Open 打开或创建历史数据库
// 文件不存在时只在内存中初始化，第一次 Add 时才写盘
func Open(filePath string, logger *zap.Logger) (*Database, error) {
	db := &Database{
		filePath: filePath,
		logger:   logger,
	}

	if err := db.load(); err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return db, nil
}

func (db *Database) load() error {
	data, err := os.ReadFile(db.filePath)
	if errors.Is(err, os.ErrNotExist) {
		now := time.Now()
		db.data = &file{
			Version:     DBVersion,
			CreatedAt:   now,
			LastUpdated: now,
			Totals:      Totals{LanguagePairs: make(map[string]int64)},
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read history file: %w", err)
	}

	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse history file: %w", err)
	}
	if f.Totals.LanguagePairs == nil {
		f.Totals.LanguagePairs = make(map[string]int64)
	}

	db.data = &f
	db.logger.Debug("loaded history",
		zap.String("version", f.Version),
		zap.Int64("runs", f.Totals.Runs))
	return nil
}

// saveUnsafe 写盘（需要已持有锁）
func (db *Database) saveUnsafe() error {
	db.data.LastUpdated = time.Now()

	data, err := json.MarshalIndent(db.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(db.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	// 原子写入
	tempFile := db.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp history file: %w", err)
	}
	if err := os.Rename(tempFile, db.filePath); err != nil {
		_ = os.Remove(tempFile)
		return fmt.Errorf("failed to rename history file: %w", err)
	}
	return nil
}

// Add 追加一条记录并写盘，最多保留 MaxRecentRecords 条
func (db *Database) Add(record Record) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	t := &db.data.Totals
	t.Runs++
	if record.Status != StatusSuccess {
		t.Failures++
	}
	t.Segments += int64(record.Segments)
	t.Fallbacks += int64(record.Fallbacks)
	t.Duration += record.Duration
	t.LanguagePairs[record.SourceLanguage+" → "+record.TargetLanguage]++

	db.data.Recent = append([]Record{record}, db.data.Recent...)
	if len(db.data.Recent) > MaxRecentRecords {
		db.data.Recent = db.data.Recent[:MaxRecentRecords]
	}

	return db.saveUnsafe()
}

// Recent 返回最近的记录，新记录在前
func (db *Database) Recent(limit int) []Record {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	if limit <= 0 || limit > len(db.data.Recent) {
		limit = len(db.data.Recent)
	}
	return append([]Record(nil), db.data.Recent[:limit]...)
}

// Totals 返回累计数据的副本
func (db *Database) Totals() Totals {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	t := db.data.Totals
	t.LanguagePairs = make(map[string]int64, len(db.data.Totals.LanguagePairs))
	for k, v := range db.data.Totals.LanguagePairs {
		t.LanguagePairs[k] = v
	}
	return t
}
