package startup

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks struct tags and the rules that tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if cfg.Blob.Backend == "s3" && cfg.Blob.S3.Bucket == "" {
		return fmt.Errorf("blob.s3.bucket is required when blob.backend is s3")
	}
	if (cfg.Blob.S3.AccessKeyID == "") != (cfg.Blob.S3.SecretAccessKey == "") {
		return fmt.Errorf("blob.s3.access_key_id and blob.s3.secret_access_key must be set together")
	}
	if cfg.Port == cfg.MetricsPort && cfg.MetricsEnabled {
		return fmt.Errorf("port and metrics_port must differ (both %s)", cfg.Port)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
