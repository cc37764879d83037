package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/frauddesk/control-plane/internal/models"
	"github.com/frauddesk/control-plane/internal/registry"
)

// ErrNoModel means the registry holds no versions for the configured model.
var ErrNoModel = errors.New("no model versions registered")

// Fetcher retrieves a model artifact by its registered URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Loader resolves which registered version should serve traffic and fetches
// its coefficient artifact. Production versions win; otherwise the highest
// version overall serves so a fresh registry is still usable before the
// first promotion.
type Loader struct {
	Store     registry.Store
	ModelName string
	Fetcher   Fetcher
}

// Load picks the serving version and decodes its artifact. The returned
// stage tells callers whether they are serving a promoted model or a
// fallback.
func (l *Loader) Load(ctx context.Context) (*Model, models.ModelVersion, error) {
	versions, err := l.Store.ListModelVersions(ctx, l.ModelName)
	if err != nil {
		return nil, models.ModelVersion{}, fmt.Errorf("list model versions: %w", err)
	}
	if len(versions) == 0 {
		return nil, models.ModelVersion{}, ErrNoModel
	}

	selected := pickServingVersion(versions)
	raw, err := l.Fetcher.Fetch(ctx, selected.ArtifactURI)
	if err != nil {
		return nil, models.ModelVersion{}, fmt.Errorf("fetch artifact %s: %w", selected.ArtifactURI, err)
	}

	var model Model
	if err := json.Unmarshal(raw, &model); err != nil {
		return nil, models.ModelVersion{}, fmt.Errorf("decode artifact: %w", err)
	}
	return &model, selected, nil
}

// pickServingVersion prefers the highest version at Production, then at
// Staging, then the highest version overall. Comparison is always on the
// numeric version, never on registration order.
func pickServingVersion(versions []models.ModelVersion) models.ModelVersion {
	var best, production, staging models.ModelVersion
	for _, v := range versions {
		if v.Version > best.Version {
			best = v
		}
		switch v.Stage {
		case "Production":
			if v.Version > production.Version {
				production = v
			}
		case "Staging":
			if v.Version > staging.Version {
				staging = v
			}
		}
	}
	if production.Version > 0 {
		return production
	}
	if staging.Version > 0 {
		return staging
	}
	return best
}

// FileFetcher reads artifacts from local disk, accepting both bare paths
// and file:// URIs.
type FileFetcher struct{}

func (FileFetcher) Fetch(_ context.Context, uri string) ([]byte, error) {
	path := strings.TrimPrefix(uri, "file://")
	return os.ReadFile(path)
}

// S3Fetcher downloads s3:// artifacts, delegating anything else to a
// FileFetcher so mixed registries keep working.
type S3Fetcher struct {
	downloader *manager.Downloader
	local      FileFetcher
}

func NewS3Fetcher(ctx context.Context) (*S3Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Fetcher{downloader: manager.NewDownloader(client)}, nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "s3://") {
		return f.local.Fetch(ctx, uri)
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse artifact uri: %w", err)
	}
	buf := manager.NewWriteAtBuffer(nil)
	_, err = f.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(parsed.Host),
		Key:    aws.String(strings.TrimPrefix(parsed.Path, "/")),
	})
	if err != nil {
		return nil, fmt.Errorf("download artifact: %w", err)
	}
	return buf.Bytes(), nil
}
