package objectstore

import "os"

// Config contains the object store connection details.
type Config struct {
	Endpoint        string // server endpoint, e.g. "localhost:9000"
	AccessKeyID     string // access key
	SecretAccessKey string // secret key
	UseSSL          bool   // true for "https", false for "http"
	BucketName      string // bucket holding the source documents
	Region          string // bucket region (e.g. "us-east-1")

	// TempDir is where Download places files. Empty means os.TempDir().
	TempDir string
}

// NewConfig reads the object store configuration from environment variables.
func NewConfig() Config {
	return Config{
		Endpoint:        os.Getenv("OBJECTSTORE_ENDPOINT"),
		AccessKeyID:     os.Getenv("OBJECTSTORE_ACCESS_KEY"),
		SecretAccessKey: os.Getenv("OBJECTSTORE_SECRET_KEY"),
		UseSSL:          os.Getenv("OBJECTSTORE_USE_SSL") == "true",
		BucketName:      os.Getenv("OBJECTSTORE_BUCKET"),
		Region:          os.Getenv("OBJECTSTORE_REGION"),
		TempDir:         os.Getenv("OBJECTSTORE_TEMP_DIR"),
	}
}
