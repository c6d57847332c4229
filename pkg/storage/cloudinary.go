package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// StoredObject describes a file held by the attachment store.
type StoredObject struct {
	ObjectID string
	URL      string
	FileName string
	FileType string
	FileSize int64
}

// ObjectStorage is the external attachment store. Delete is idempotent:
// an object that is already gone counts as deleted.
type ObjectStorage interface {
	Upload(ctx context.Context, r io.Reader, folder, fileName string) (*StoredObject, error)
	Delete(ctx context.Context, objectID string) error
}

type cloudinaryStorage struct {
	cld *cloudinary.Cloudinary
}

// Cloudinary keys destroy calls by resource type, and the type an upload
// ended up with is not recorded, so deletes walk all of them.
var resourceTypes = []string{"image", "video", "raw"}

// NewCloudinaryStorage creates the Cloudinary-backed ObjectStorage from a
// cloudinary:// URL. cloudName, when set, overrides the URL's cloud.
func NewCloudinaryStorage(cloudinaryURL, cloudName string) (ObjectStorage, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary url is not configured")
	}

	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary client: %w", err)
	}

	cld.Config.URL.Secure = true

	if cloudName != "" {
		cld.Config.Cloud.CloudName = cloudName
	}

	return &cloudinaryStorage{cld: cld}, nil
}

func (s *cloudinaryStorage) Upload(ctx context.Context, r io.Reader, folder, fileName string) (*StoredObject, error) {
	if s == nil || s.cld == nil {
		return nil, fmt.Errorf("cloudinary storage is not initialized")
	}

	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	publicID := fmt.Sprintf("%d-%s", time.Now().UnixNano(), base)

	params := uploader.UploadParams{
		Folder:         folder,
		PublicID:       publicID,
		ResourceType:   "auto",
		UniqueFilename: api.Bool(true),
		Overwrite:      api.Bool(false),
	}

	resp, err := s.cld.Upload.Upload(ctx, r, params)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file to cloudinary: %w", err)
	}
	if resp.Error.Message != "" {
		return nil, fmt.Errorf("cloudinary upload rejected: %s", resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return nil, fmt.Errorf("cloudinary upload succeeded but secure URL is empty")
	}

	fileType := resp.Format
	if fileType == "" {
		fileType = strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
	}

	return &StoredObject{
		ObjectID: resp.PublicID,
		URL:      resp.SecureURL,
		FileName: fileName,
		FileType: fileType,
		FileSize: int64(resp.Bytes),
	}, nil
}

func (s *cloudinaryStorage) Delete(ctx context.Context, objectID string) error {
	if s == nil || s.cld == nil {
		return fmt.Errorf("cloudinary storage is not initialized")
	}
	if objectID == "" {
		return fmt.Errorf("object id is required")
	}

	var lastErr error
	for _, resourceType := range resourceTypes {
		resp, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
			PublicID:     objectID,
			ResourceType: resourceType,
			Invalidate:   api.Bool(true),
		})
		if err != nil {
			lastErr = fmt.Errorf("failed to delete %s object from cloudinary: %w", resourceType, err)
			continue
		}

		switch resp.Result {
		case "ok":
			return nil
		case "not found":
			continue
		default:
			lastErr = fmt.Errorf("cloudinary destroy api returned result: %s", resp.Result)
		}
	}

	return lastErr
}
