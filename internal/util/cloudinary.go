package util

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"eventfeed/internal/config"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

const (
	tmpDirName = "tmp"
)

type CloudinaryClient struct {
	cld *cloudinary.Cloudinary
	cfg *config.Config
}

// UploadResult describes a stored attachment.
type UploadResult struct {
	URL      string
	FileName string
	FileType string
}

func NewCloudinaryClient(cfg *config.Config) (*CloudinaryClient, error) {
	if cfg.CloudinaryCloudName == "" || cfg.CloudinaryAPIKey == "" || cfg.CloudinaryAPISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials not configured")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &CloudinaryClient{
		cld: cld,
		cfg: cfg,
	}, nil
}

// UploadAttachment writes the data to a temp file, compresses it when the
// format allows, uploads it and returns the delivery metadata.
func (c *CloudinaryClient) UploadAttachment(data []byte, filename string) (*UploadResult, error) {
	tmpDir, err := ensureTmpDir()
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	tempFile := filepath.Join(tmpDir, uuid.New().String()+ext)

	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return nil, fmt.Errorf("error writing temp file: %w", err)
	}
	defer os.Remove(tempFile)

	uploadPath := tempFile
	if compressed, err := c.compressImage(tempFile); err == nil {
		uploadPath = compressed
		if compressed != tempFile {
			defer os.Remove(compressed)
		}
	}

	url, err := c.uploadImage(uploadPath)
	if err != nil {
		return nil, err
	}

	return &UploadResult{
		URL:      url,
		FileName: filename,
		FileType: mimeTypeForExt(ext),
	}, nil
}

// compressImage re-encodes JPEG/PNG input as quality-80 JPEG in the tmp
// directory. Other formats are uploaded as-is.
func (c *CloudinaryClient) compressImage(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("error opening file: %w", err)
	}
	defer file.Close()

	var img image.Image
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".jpg", ".jpeg":
		img, err = jpeg.Decode(file)
		if err != nil {
			return "", fmt.Errorf("error decoding JPEG: %w", err)
		}
	case ".png":
		img, err = png.Decode(file)
		if err != nil {
			return "", fmt.Errorf("error decoding PNG: %w", err)
		}
	default:
		return filePath, nil
	}

	tmpDir, err := ensureTmpDir()
	if err != nil {
		return "", err
	}

	compressedPath := filepath.Join(tmpDir, uuid.New().String()+".compressed.jpg")
	compressedFile, err := os.Create(compressedPath)
	if err != nil {
		return "", fmt.Errorf("error creating compressed file: %w", err)
	}
	defer compressedFile.Close()

	if err := jpeg.Encode(compressedFile, img, &jpeg.Options{Quality: 80}); err != nil {
		return "", fmt.Errorf("error encoding compressed image: %w", err)
	}

	return compressedPath, nil
}

// uploadImage uploads an image file to Cloudinary (delivered as WebP)
func (c *CloudinaryClient) uploadImage(filePath string) (string, error) {
	ctx := context.Background()

	result, err := c.cld.Upload.Upload(ctx, filePath, uploader.UploadParams{
		Folder:         c.cfg.CloudinaryFolder,
		Transformation: "q_auto,f_webp,w_1280",
		ResourceType:   "image",
	})

	if err != nil {
		return "", fmt.Errorf("error uploading to cloudinary: %w", err)
	}

	// Inject transformation into URL so the image is served as WebP
	url := result.SecureURL
	url = strings.Replace(url, "/upload/", "/upload/f_webp,q_auto,w_1280/", 1)
	return url, nil
}

// ensureTmpDir ensures the tmp directory exists
func ensureTmpDir() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		tmpDir := filepath.Join(os.TempDir(), tmpDirName)
		if err := os.MkdirAll(tmpDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create tmp directory: %w", err)
		}
		return tmpDir, nil
	}

	tmpDir := filepath.Join(wd, tmpDirName)
	if err := os.MkdirAll(tmpDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create tmp directory: %w", err)
	}
	return tmpDir, nil
}

func mimeTypeForExt(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

// FileData represents file data in memory
type FileData struct {
	Data     []byte
	Filename string
}

// ReadFileFromReader reads file data from an io.Reader
func ReadFileFromReader(reader io.Reader, filename string) (*FileData, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return &FileData{
		Data:     data,
		Filename: filename,
	}, nil
}
