// Package publish implements the `publish` task kind, which uploads a staged
// subtree of the output root to an S3-compatible bucket.
package publish

import (
	"context"
	"fmt"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

// Kind is the task kind served by this module.
const Kind task.Kind = "publish"

const defaultRegion = "us-east-1"

// ObjectStore is the subset of the minio client used for uploads.
type ObjectStore interface {
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// StoreFactory builds an ObjectStore for the given options.
type StoreFactory func(opts *task.PublishOptions) (ObjectStore, error)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the publish executor with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterExecutor(Kind, &Publisher{NewStore: NewMinioStore})
}

// NewMinioStore connects a minio client using static credentials.
func NewMinioStore(opts *task.PublishOptions) (ObjectStore, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("publish endpoint is required")
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = defaultRegion
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(opts.AccessKey), strings.TrimSpace(opts.SecretKey), ""),
		Secure: opts.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return client, nil
}

// Publisher uploads files through a store built per execution.
type Publisher struct {
	NewStore StoreFactory
}

// Execute uploads every file under the source directory matching the
// pattern to bucket/prefix/<relative path>. Written lists the resulting
// s3:// URIs.
func (p *Publisher) Execute(ctx context.Context, spec *task.Spec) *task.Result {
	logger := ctxlog.FromContext(ctx)
	res := task.NewResult()

	opts := spec.Options.Publish
	if opts == nil || strings.TrimSpace(opts.Bucket) == "" {
		res.AddError(task.Configf("%s: publish requires a bucket", spec.ID))
		return res
	}
	files, err := fsutil.GlobDir(opts.SrcDir, opts.Pattern)
	if err != nil {
		res.AddError(&task.IOError{Op: "publish", Path: opts.SrcDir, Err: err})
		return res
	}
	if len(files) == 0 {
		logger.Debug("Nothing to publish.", "src", opts.SrcDir, "pattern", opts.Pattern)
		return res
	}

	store, err := p.NewStore(opts)
	if err != nil {
		res.AddError(task.Configf("%s: %v", spec.ID, err))
		return res
	}

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			res.AddError(err)
			break
		}
		local := filepath.Join(opts.SrcDir, filepath.FromSlash(rel))
		key := objectKey(opts.Prefix, rel)
		put := minio.PutObjectOptions{ContentType: contentType(rel)}
		if opts.CacheMaxAge > 0 {
			put.CacheControl = fmt.Sprintf("public, max-age=%d", int64(opts.CacheMaxAge.Seconds()))
		}

		info, err := store.FPutObject(ctx, opts.Bucket, key, local, put)
		if err != nil {
			res.AddError(&task.IOError{Op: "upload", Path: local, Err: err})
			continue
		}
		logger.Debug("Uploaded object.", "bucket", opts.Bucket, "key", key, "size", info.Size, "contentType", put.ContentType)
		res.AddWritten("s3://" + opts.Bucket + "/" + key)
	}
	logger.Info("Published files.", "bucket", opts.Bucket, "prefix", opts.Prefix, "count", len(res.Written))
	return res
}

func objectKey(prefix, rel string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return rel
	}
	return path.Join(prefix, rel)
}

func contentType(name string) string {
	ct := mime.TypeByExtension(path.Ext(name))
	if ct == "" {
		ct = "application/octet-stream"
	}
	return ct
}
