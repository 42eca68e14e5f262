package blobstore

import "errors"

// Config defines the blob store connection configuration
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"accesskeyid"`
	SecretAccessKey string `mapstructure:"secretaccesskey"`
	UseSSL          bool   `mapstructure:"usessl"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
}

// Validate validates the blob store configuration
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("blob store endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("blob store access key is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("blob store secret key is required")
	}
	if c.Bucket == "" {
		return errors.New("blob store bucket is required")
	}
	return nil
}
