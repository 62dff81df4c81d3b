package convert

import (
	"os"
	"strconv"
	"time"
)

// Config controls the conversion backends and the license wait bound.
type Config struct {
	// SDKEndpoint is the base URL of the licensed converter service.
	SDKEndpoint string

	// OCREndpoint is the base URL of the OCR engine.
	OCREndpoint string

	// HTTPTimeout bounds a single extraction call.
	HTTPTimeout time.Duration

	// LicenseTimeout bounds the wait for a license slot before the
	// conversion reports ResourceExhausted.
	LicenseTimeout time.Duration
}

// NewConfig reads the converter configuration from environment variables.
func NewConfig() Config {
	httpTimeout := 120 * time.Second
	if v := os.Getenv("CONVERT_HTTP_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			httpTimeout = time.Duration(n) * time.Second
		}
	}
	licenseTimeout := 30 * time.Second
	if v := os.Getenv("LICENSE_ACQUIRE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			licenseTimeout = time.Duration(n) * time.Second
		}
	}
	return Config{
		SDKEndpoint:    os.Getenv("CONVERT_SDK_ENDPOINT"),
		OCREndpoint:    os.Getenv("CONVERT_OCR_ENDPOINT"),
		HTTPTimeout:    httpTimeout,
		LicenseTimeout: licenseTimeout,
	}
}
