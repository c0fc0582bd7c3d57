package services

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"finn_scraper/storage"
)

// ExportService dumps the property and listing tables to CSV files and,
// when an uploader is configured, pushes them to object storage.
type ExportService struct {
	store    storage.Store
	uploader *storage.S3Uploader
	dir      string
}

func NewExportService(store storage.Store, uploader *storage.S3Uploader, dir string) *ExportService {
	return &ExportService{
		store:    store,
		uploader: uploader,
		dir:      dir,
	}
}

// Export writes timestamped CSV snapshots of both tables. Upload failures
// are logged, not fatal; the local files remain either way.
func (s *ExportService) Export(ctx context.Context) error {
	stamp := time.Now().Format("20060102-150405")
	propPath := filepath.Join(s.dir, fmt.Sprintf("properties-%s.csv", stamp))
	listPath := filepath.Join(s.dir, fmt.Sprintf("listings-%s.csv", stamp))

	if err := s.store.ExportProperties(ctx, propPath); err != nil {
		return fmt.Errorf("export properties: %w", err)
	}
	if err := s.store.ExportListingRecords(ctx, listPath); err != nil {
		return fmt.Errorf("export listings: %w", err)
	}
	log.Printf("Export: wrote %s and %s", propPath, listPath)

	if s.uploader == nil {
		return nil
	}
	for _, path := range []string{propPath, listPath} {
		key := "exports/" + filepath.Base(path)
		if err := s.uploader.UploadFile(ctx, key, path, "text/csv"); err != nil {
			log.Printf("Export: upload %s failed: %v", key, err)
			continue
		}
		log.Printf("Export: uploaded %s", key)
	}
	return nil
}
