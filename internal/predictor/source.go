package predictor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

var (
	ErrNoSource         = errors.New("no model source configured")
	ErrArtifactNotFound = errors.New("model artifact not found")
)

// defaultCredential resolves the ambient Azure identity (environment,
// workload identity, managed identity, az CLI).
var defaultCredential = func() (azcore.TokenCredential, error) {
	return azidentity.NewDefaultAzureCredential(nil)
}

// Source says where the model artifact lives. Path wins over BlobURL.
type Source struct {
	// Path is a local JSON artifact.
	Path string
	// BlobURL is https://<account>.blob.core.windows.net/<container>/<blob>.
	BlobURL string
	// ConnectionString authenticates BlobURL. When empty the default Azure
	// credential chain is used.
	ConnectionString string
}

// Configured reports whether any location is set.
func (s Source) Configured() bool {
	return s.Path != "" || s.BlobURL != ""
}

// String describes the source for logs without leaking credentials.
func (s Source) String() string {
	switch {
	case s.Path != "":
		return "file:" + s.Path
	case s.BlobURL != "":
		return "blob:" + s.BlobURL
	default:
		return "none"
	}
}

// Load fetches and decodes the artifact.
func Load(ctx context.Context, src Source) (*LinearModel, error) {
	switch {
	case src.Path != "":
		return loadFile(src.Path)
	case src.BlobURL != "":
		return loadBlob(ctx, src)
	default:
		return nil, ErrNoSource
	}
}

func loadFile(path string) (*LinearModel, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("open model artifact: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

func loadBlob(ctx context.Context, src Source) (*LinearModel, error) {
	parts, err := azblob.ParseURL(src.BlobURL)
	if err != nil {
		return nil, fmt.Errorf("parse blob url: %w", err)
	}
	if parts.ContainerName == "" || parts.BlobName == "" {
		return nil, fmt.Errorf("blob url must name a container and a blob: %s", src.BlobURL)
	}

	client, err := newBlobClient(src, parts.Scheme+"://"+parts.Host+"/")
	if err != nil {
		return nil, err
	}

	resp, err := client.DownloadStream(ctx, parts.ContainerName, parts.BlobName, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, src.BlobURL)
		}
		return nil, fmt.Errorf("download blob %s: %w", parts.BlobName, err)
	}
	defer resp.Body.Close()

	return Decode(resp.Body)
}

func newBlobClient(src Source, serviceURL string) (*azblob.Client, error) {
	if strings.TrimSpace(src.ConnectionString) != "" {
		client, err := azblob.NewClientFromConnectionString(src.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("create storage client: %w", err)
		}
		return client, nil
	}

	cred, err := defaultCredential()
	if err != nil {
		return nil, fmt.Errorf("create azure credential: %w", err)
	}

	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return client, nil
}
