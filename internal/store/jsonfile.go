package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// JSONFile 以单个 JSON 文件承载一份完整数据集，每次写入整体重写。
// 写入通过临时文件加原子重命名完成，避免写到一半的文件被后续读取。
type JSONFile struct {
	path   string
	logger *zap.Logger
}

// NewJSONFile 创建文件存储句柄。
func NewJSONFile(path string, logger *zap.Logger) *JSONFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSONFile{
		path:   path,
		logger: logger,
	}
}

// Path 返回底层文件路径。
func (f *JSONFile) Path() string {
	return f.path
}

// Load 读取文件内容到 dst。
// 文件缺失或内容损坏时保持 dst 不变直接返回，调用方将其视为空数据集。
// 这是有意的可用性优先取舍：宁可丢状态也不让请求失败。
func (f *JSONFile) Load(dst interface{}) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		f.logger.Warn("读取存储文件失败，按空数据处理",
			zap.String("path", f.path),
			zap.Error(err),
		)
		return nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		f.logger.Warn("存储文件内容损坏，按空数据处理",
			zap.String("path", f.path),
			zap.Error(err),
		)
		return nil
	}

	return nil
}

// Save 将 src 序列化后整体重写文件。
func (f *JSONFile) Save(src interface{}) error {
	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return fmt.Errorf("store: 序列化 %q 数据失败: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := ensureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("store: 创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: 写入临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: 关闭临时文件失败: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: 重命名 %q 失败: %w", f.path, err)
	}

	return nil
}

func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("store: 创建目录 %q 失败: %w", path, err)
	}
	return nil
}
