package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog/log"
)

type CloudinaryStorage struct {
	cld     *cloudinary.Cloudinary
	folder  string
	timeout time.Duration
}

func NewCloudinaryStorage(cloudinaryURL, folder string, timeout time.Duration) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("initialize cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryStorage{cld: cld, folder: folder, timeout: timeout}, nil
}

func (s *CloudinaryStorage) Upload(ctx context.Context, objectPath string, data []byte, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID: s.publicID(objectPath),
	})
	if err != nil {
		return err
	}
	if result.Error.Message != "" {
		return errors.New(result.Error.Message)
	}
	return nil
}

func (s *CloudinaryStorage) PublicURL(objectPath string) string {
	img, err := s.cld.Image(s.publicID(objectPath))
	if err != nil {
		log.Warn().Err(err).Str("object", objectPath).Msg("cloudinary asset url")
		return ""
	}
	u, err := img.String()
	if err != nil {
		return ""
	}
	return u
}

// publicID drops the extension; Cloudinary derives the format itself.
func (s *CloudinaryStorage) publicID(objectPath string) string {
	return path.Join(s.folder, strings.TrimSuffix(objectPath, path.Ext(objectPath)))
}
