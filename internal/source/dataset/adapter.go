package dataset

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/timmy/folio/internal/domain"
	"github.com/timmy/folio/internal/logger"
)

const (
	// ManifestFileName is the JSONL manifest inside a dataset directory.
	ManifestFileName = "manifest.jsonl"
	// ImagesDir holds the certificate images referenced by the manifest.
	ImagesDir = "images"
)

// ManifestItem is one line of manifest.jsonl.
type ManifestItem struct {
	Name         string   `json:"name"`
	Organization string   `json:"organization"`
	Category     string   `json:"category"`
	Link         string   `json:"link"`
	IssueDate    string   `json:"issue_date"`
	Description  string   `json:"description"`
	Skills       []string `json:"skills"`
	Image        string   `json:"image"`     // file name under images/
	ImageURL     string   `json:"image_url"` // remote image used when no file is given
}

// Adapter reads a dataset directory of manifest.jsonl plus images/.
type Adapter struct {
	dir string
}

func NewAdapter(dir string) *Adapter {
	return &Adapter{dir: dir}
}

func (a *Adapter) Name() string {
	return "dataset:" + filepath.Base(a.dir)
}

// Load parses the manifest in file order. Malformed lines and lines whose image file
// is missing are skipped with a warning.
func (a *Adapter) Load(ctx context.Context) ([]domain.CertificateRecord, error) {
	manifestPath := filepath.Join(a.dir, ManifestFileName)
	imagesPath := filepath.Join(a.dir, ImagesDir)

	file, err := os.Open(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest file not found: %s", manifestPath)
		}
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer file.Close()

	log := logger.FromContext(ctx).WithField(logger.FieldComponent, "dataset")
	records := []domain.CertificateRecord{}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var item ManifestItem
		if err := json.Unmarshal([]byte(line), &item); err != nil {
			log.WithField("line", lineNo).Warnf("Skipping malformed manifest line: %v", err)
			continue
		}

		payload := item.ImageURL
		if item.Image != "" {
			payload, err = encodeImage(filepath.Join(imagesPath, item.Image))
			if err != nil {
				log.WithField("line", lineNo).Warnf("Skipping %q: %v", item.Name, err)
				continue
			}
		}

		records = append(records, domain.CertificateRecord{
			Name:         item.Name,
			Organization: item.Organization,
			Category:     item.Category,
			Link:         item.Link,
			IssueDate:    item.IssueDate,
			Description:  item.Description,
			Skills:       item.Skills,
			Image:        payload,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading manifest: %w", err)
	}

	return records, nil
}

// encodeImage reads an image file into a data URL.
func encodeImage(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}

	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data)), nil
}

// ListDatasets returns the subdirectories of basePath that contain a manifest.
func ListDatasets(basePath string) ([]string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}

	var datasets []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(basePath, entry.Name(), ManifestFileName)); err == nil {
			datasets = append(datasets, entry.Name())
		}
	}

	return datasets, nil
}
