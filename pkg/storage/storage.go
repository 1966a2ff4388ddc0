package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	cfg "github.com/feichai0017/document-harvester/config"
	"github.com/feichai0017/document-harvester/pkg/logger"
	"github.com/feichai0017/document-harvester/pkg/storage/local"
	"github.com/feichai0017/document-harvester/pkg/storage/minio"
	"github.com/feichai0017/document-harvester/pkg/storage/s3"
)

// StorageType 定义存储类型
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
	StorageTypeMinio StorageType = "minio"
)

// Storage 接口定义
type Storage interface {
	// Store 存储文件, 返回对象 key
	Store(ctx context.Context, reader io.Reader, key string) (string, error)
	// Get 获取文件
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete 删除文件
	Delete(ctx context.Context, key string) error
	// CleanupBefore 清理过期文件
	CleanupBefore(ctx context.Context, threshold time.Time) error
}

// NewStorage 创建存储实例的工厂方法
func NewStorage(ctx context.Context, c *cfg.Config, log logger.Logger) (Storage, error) {
	switch StorageType(c.Output.Storage) {
	case StorageTypeLocal, "":
		return local.NewLocalStorage(c.Output.Dir, log)
	case StorageTypeS3:
		return s3.NewS3Storage(ctx, c.S3, log)
	case StorageTypeMinio:
		return minio.NewMinioStorage(ctx, c.Minio, log)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Output.Storage)
	}
}
