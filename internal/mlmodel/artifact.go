package mlmodel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/carbonex30/scheduler/internal/model"
	pkgerrors "github.com/carbonex30/scheduler/pkg/errors"
)

// Envelope 模型产物文件格式
type Envelope struct {
	ModelType        string          `json:"model_type"`
	Version          int             `json:"version"`
	TrainedAt        time.Time       `json:"trained_at"`
	TrainingRecordID string          `json:"training_record_id"`
	Payload          json.RawMessage `json:"payload"`
}

// ArtifactStore 模型产物目录：<dir>/<type>/<type>_v<version>.json
// 文件一经写入不再修改，旧版本保留以便复现历史排班
type ArtifactStore struct {
	dir string
}

// NewArtifactStore 创建产物存储
func NewArtifactStore(dir string) *ArtifactStore {
	return &ArtifactStore{dir: dir}
}

// Path 产物文件路径
func (s *ArtifactStore) Path(modelType string, version int) string {
	return filepath.Join(s.dir, modelType, fmt.Sprintf("%s_v%d.json", modelType, version))
}

// Write 写入新产物；同版本文件已存在时返回错误
func (s *ArtifactStore) Write(env Envelope, payload interface{}) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("序列化模型失败: %w", err)
	}
	env.Payload = raw
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return "", fmt.Errorf("序列化产物失败: %w", err)
	}

	path := s.Path(env.ModelType, env.Version)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("%w: create models dir: %v", pkgerrors.ErrStorage, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		return "", fmt.Errorf("%w: create artifact %s: %v", pkgerrors.ErrStorage, path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: write artifact %s: %v", pkgerrors.ErrStorage, path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: close artifact %s: %v", pkgerrors.ErrStorage, path, err)
	}
	return path, nil
}

// Discard 删除尚未登记到数据库的产物文件，使该版本号可以重新使用
func (s *ArtifactStore) Discard(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: remove artifact %s: %v", pkgerrors.ErrStorage, path, err)
	}
	return nil
}

// Read 读取产物并将 payload 解码到 out
func (s *ArtifactStore) Read(path string, out interface{}) (*Envelope, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: artifact %s not found", pkgerrors.ErrModelUnavailable, path)
		}
		return nil, fmt.Errorf("%w: read artifact %s: %v", pkgerrors.ErrModelUnavailable, path, err)
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: decode artifact %s: %v", pkgerrors.ErrModelUnavailable, path, err)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return nil, fmt.Errorf("%w: decode payload %s: %v", pkgerrors.ErrModelUnavailable, path, err)
	}
	return &env, nil
}

// LoadPreference 加载偏好模型产物
func (s *ArtifactStore) LoadPreference(path string) (*PreferenceModel, error) {
	var m PreferenceModel
	env, err := s.Read(path, &m)
	if err != nil {
		return nil, err
	}
	if env.ModelType != model.ModelTypePreference {
		return nil, fmt.Errorf("%w: %s holds %s", pkgerrors.ErrModelUnavailable, path, env.ModelType)
	}
	if len(m.Weights) != numFactors {
		return nil, fmt.Errorf("%w: %s has %d weights", pkgerrors.ErrModelUnavailable, path, len(m.Weights))
	}
	return &m, nil
}

// LoadConflict 加载冲突检测模型产物
func (s *ArtifactStore) LoadConflict(path string) (*ConflictModel, error) {
	var m ConflictModel
	env, err := s.Read(path, &m)
	if err != nil {
		return nil, err
	}
	if env.ModelType != model.ModelTypeConflict {
		return nil, fmt.Errorf("%w: %s holds %s", pkgerrors.ErrModelUnavailable, path, env.ModelType)
	}
	return &m, nil
}
