package main

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"sort"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"paper-atlas/config"
	"paper-atlas/storage"
)

const backupPrefix = "backups/"

// BackupConfig nutzt dieselben DB_*- und S3_*-Variablen wie der Server.
type BackupConfig struct {
	DBHost      string `envconfig:"DB_HOST" required:"true"`
	DBPort      int    `envconfig:"DB_PORT" default:"5432"`
	DBUser      string `envconfig:"DB_USER" required:"true"`
	DBPassword  string `envconfig:"DB_PASSWORD" required:"true"`
	DBName      string `envconfig:"DB_NAME" required:"true"`
	S3Key       string `envconfig:"S3_KEY" required:"true"`
	S3Secret    string `envconfig:"S3_SECRET" required:"true"`
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket    string `envconfig:"S3_BUCKET" required:"true"`
	KeepBackups int    `envconfig:"KEEP_BACKUPS" default:"4"`
}

func (b BackupConfig) s3Config() *config.Config {
	return &config.Config{
		S3Key:    b.S3Key,
		S3Secret: b.S3Secret,
		S3URL:    b.S3URL,
		S3Region: b.S3Region,
		S3Bucket: b.S3Bucket,
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	logging.Info("Starte Backup-Prozess...")

	_ = godotenv.Load()
	var cfg BackupConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logging.Fatal("Fehler beim Laden der Konfiguration", zap.Error(err))
	}

	ctx := context.Background()

	// 1. Datenbank-Dump erstellen
	dumpData, err := createDump(ctx, cfg)
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des DB-Dumps", zap.Error(err))
	}

	// 2. Bucket öffnen
	bucket, err := storage.NewS3Bucket(ctx, cfg.s3Config())
	if err != nil {
		logging.Fatal("Fehler beim Erstellen des S3-Clients", zap.Error(err))
	}

	// 3. Backup hochladen
	fileName := fmt.Sprintf("%sbackup-%s.sql.gz", backupPrefix, time.Now().UTC().Format("2006-01-02T15-04-05Z"))
	if _, err := bucket.Upload(ctx, fileName, "application/gzip", dumpData); err != nil {
		logging.Fatal("Fehler beim Hochladen nach S3", zap.Error(err))
	}
	logging.Info("Backup hochgeladen", zap.String("bucket", bucket.Bucket()), zap.String("key", fileName),
		zap.Int("bytes", len(dumpData)))

	// 4. Alte Backups rotieren
	if err := rotateBackups(ctx, bucket, cfg.KeepBackups, logging); err != nil {
		logging.Fatal("Fehler bei der Rotation alter Backups", zap.Error(err))
	}

	logging.Info("Backup-Prozess erfolgreich abgeschlossen.")
}

func createDump(ctx context.Context, cfg BackupConfig) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "pg_dump",
		"-h", cfg.DBHost,
		"-p", strconv.Itoa(cfg.DBPort),
		"-U", cfg.DBUser,
		"-d", cfg.DBName,
		"-w", // Passwort kommt über PGPASSWORD
	)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+cfg.DBPassword)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := io.Copy(gzipWriter, stdout); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	if err := cmd.Wait(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// rotateBackups behält die keep neuesten Objekte unter backupPrefix. Exporte liegen
// im selben Bucket und werden nicht angefasst.
func rotateBackups(ctx context.Context, bucket *storage.S3Bucket, keep int, logging *zap.Logger) error {
	client := bucket.Client()
	output, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket.Bucket()),
		Prefix: aws.String(backupPrefix),
	})
	if err != nil {
		return err
	}

	if len(output.Contents) <= keep {
		logging.Info("Keine Rotation nötig", zap.Int("backups", len(output.Contents)), zap.Int("keep", keep))
		return nil
	}

	sort.Slice(output.Contents, func(i, j int) bool {
		return output.Contents[i].LastModified.After(*output.Contents[j].LastModified)
	})

	for _, obj := range output.Contents[keep:] {
		logging.Info("Lösche altes Backup", zap.String("key", *obj.Key))
		_, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(bucket.Bucket()),
			Key:    obj.Key,
		})
		if err != nil {
			logging.Error("Fehler beim Löschen", zap.String("key", *obj.Key), zap.Error(err))
		}
	}
	return nil
}
