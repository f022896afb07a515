package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

// Service handles database backups
type Service struct {
	db             *gorm.DB
	s3Client       *s3.Client
	bucket         string
	databaseURL    string
	localBackupDir string
	retentionDays  int
}

// Config holds backup configuration
type Config struct {
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	S3Bucket           string
	DatabaseURL        string
	LocalBackupDir     string
	RetentionDays      int // Number of days to keep backups
}

// NewService creates a new backup service. S3 upload is optional: when
// no bucket is configured, backups stay on local disk.
func NewService(db *gorm.DB, cfg Config) (*Service, error) {
	var s3Client *s3.Client
	if cfg.S3Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.AWSRegion),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AWSAccessKeyID,
				cfg.AWSSecretAccessKey,
				"",
			)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client = s3.NewFromConfig(awsCfg)
	}

	if err := os.MkdirAll(cfg.LocalBackupDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &Service{
		db:             db,
		s3Client:       s3Client,
		bucket:         cfg.S3Bucket,
		databaseURL:    cfg.DatabaseURL,
		localBackupDir: cfg.LocalBackupDir,
		retentionDays:  cfg.RetentionDays,
	}, nil
}

// Result contains backup operation results
type Result struct {
	RecordID     uint
	Filename     string
	FileSize     int64
	S3Key        string
	Duration     time.Duration
	UploadedToS3 bool
}

// CreateBackup creates a PostgreSQL dump, compresses it, uploads it to
// S3 when configured, and tracks the outcome in the backups table.
func (s *Service) CreateBackup(ctx context.Context) (*Result, error) {
	start := time.Now()

	timestamp := time.Now().UTC().Format("20060102-150405")
	filename := fmt.Sprintf("aqarlink-backup-%s.sql.gz", timestamp)
	localPath := filepath.Join(s.localBackupDir, filename)

	record := models.BackupRecord{
		Filename: filename,
		Status:   models.BackupPending,
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create backup record: %w", err)
	}

	file, err := os.Create(localPath)
	if err != nil {
		s.markFailed(ctx, record.ID, err)
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)

	log.Printf("🔄 Starting database backup: %s", filename)
	cmd := exec.CommandContext(ctx, "pg_dump", s.databaseURL)
	cmd.Stdout = gzipWriter
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		gzipWriter.Close()
		os.Remove(localPath) // Clean up failed backup
		s.markFailed(ctx, record.ID, err)
		return nil, fmt.Errorf("pg_dump failed: %w", err)
	}

	if err := gzipWriter.Close(); err != nil {
		s.markFailed(ctx, record.ID, err)
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	fileInfo, err := file.Stat()
	if err != nil {
		s.markFailed(ctx, record.ID, err)
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}

	result := &Result{
		RecordID: record.ID,
		Filename: filename,
		FileSize: fileInfo.Size(),
		S3Key:    fmt.Sprintf("backups/%s", filename),
		Duration: time.Since(start),
	}

	if s.bucket != "" {
		if err := s.uploadToS3(ctx, localPath, result.S3Key); err != nil {
			s.markFailed(ctx, record.ID, err)
			return result, fmt.Errorf("backup created locally but S3 upload failed: %w", err)
		}
		result.UploadedToS3 = true
		log.Printf("✅ Backup uploaded to S3: s3://%s/%s", s.bucket, result.S3Key)

		if err := s.cleanupOldBackups(ctx); err != nil {
			log.Printf("⚠️  Failed to cleanup old backups: %v", err)
		}
	}

	s.markCompleted(ctx, record.ID, result)

	log.Printf("✅ Backup completed: %s (size: %d bytes, duration: %s)",
		filename, result.FileSize, result.Duration)

	return result, nil
}

// History returns the most recent backup records, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]models.BackupRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var records []models.BackupRecord
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list backup records: %w", err)
	}
	return records, nil
}

func (s *Service) markCompleted(ctx context.Context, recordID uint, result *Result) {
	err := s.db.WithContext(ctx).Model(&models.BackupRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"status":         models.BackupCompleted,
			"file_size":      result.FileSize,
			"s3_key":         result.S3Key,
			"uploaded_to_s3": result.UploadedToS3,
		}).Error
	if err != nil {
		log.Printf("⚠️  Failed to update backup record %d: %v", recordID, err)
	}
}

func (s *Service) markFailed(ctx context.Context, recordID uint, cause error) {
	err := s.db.WithContext(ctx).Model(&models.BackupRecord{}).
		Where("id = ?", recordID).
		Updates(map[string]interface{}{
			"status": models.BackupFailed,
			"error":  cause.Error(),
		}).Error
	if err != nil {
		log.Printf("⚠️  Failed to update backup record %d: %v", recordID, err)
	}
}

// uploadToS3 uploads a file to S3
func (s *Service) uploadToS3(ctx context.Context, localPath, s3Key string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s3Key),
		Body:         file,
		StorageClass: types.StorageClassStandardIa, // Infrequent Access for backups
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}

	return nil
}

// cleanupOldBackups deletes backups older than retention period
func (s *Service) cleanupOldBackups(ctx context.Context) error {
	if s.retentionDays <= 0 {
		return nil // No retention policy
	}

	cutoffDate := time.Now().UTC().AddDate(0, 0, -s.retentionDays)

	result, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String("backups/"),
	})
	if err != nil {
		return fmt.Errorf("failed to list S3 objects: %w", err)
	}

	var deleted int
	for _, obj := range result.Contents {
		if obj.LastModified.Before(cutoffDate) {
			_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(s.bucket),
				Key:    obj.Key,
			})
			if err != nil {
				log.Printf("⚠️  Failed to delete old backup %s: %v", *obj.Key, err)
				continue
			}
			deleted++
			log.Printf("🗑️  Deleted old backup: %s (age: %d days)",
				*obj.Key, int(time.Since(*obj.LastModified).Hours()/24))
		}
	}

	if deleted > 0 {
		log.Printf("✅ Cleaned up %d old backups (retention: %d days)", deleted, s.retentionDays)
	}

	return nil
}

// ListRemote lists all backups stored in S3
func (s *Service) ListRemote(ctx context.Context) ([]RemoteBackup, error) {
	if s.bucket == "" {
		return nil, fmt.Errorf("S3 bucket not configured")
	}

	result, err := s.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String("backups/"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list S3 objects: %w", err)
	}

	backups := make([]RemoteBackup, 0, len(result.Contents))
	for _, obj := range result.Contents {
		backups = append(backups, RemoteBackup{
			Key:          *obj.Key,
			Size:         *obj.Size,
			LastModified: *obj.LastModified,
			Age:          time.Since(*obj.LastModified),
		})
	}

	return backups, nil
}

// RemoteBackup contains information about a backup stored in S3
type RemoteBackup struct {
	Key          string        `json:"key"`
	Size         int64         `json:"size"`
	LastModified time.Time     `json:"last_modified"`
	Age          time.Duration `json:"age"`
}

// Restore downloads a backup from S3 and restores it with psql
func (s *Service) Restore(ctx context.Context, s3Key string) error {
	if s.bucket == "" {
		return fmt.Errorf("S3 bucket not configured")
	}

	log.Printf("🔄 Downloading backup from S3: %s", s3Key)
	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3Key),
	})
	if err != nil {
		return fmt.Errorf("failed to download from S3: %w", err)
	}
	defer result.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(result.Body); err != nil {
		return fmt.Errorf("failed to read backup data: %w", err)
	}

	gzipReader, err := gzip.NewReader(&buf)
	if err != nil {
		return fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	log.Printf("🔄 Restoring database from backup...")
	cmd := exec.CommandContext(ctx, "psql", s.databaseURL)
	cmd.Stdin = gzipReader
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("psql restore failed: %w", err)
	}

	log.Printf("✅ Database restored successfully from: %s", s3Key)
	return nil
}
