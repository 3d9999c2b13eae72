package main

import (
	"github.com/minio/s3tables-go/internal/creds"
	"github.com/minio/s3tables-go/pkg/s3"
	"github.com/minio/s3tables-go/pkg/s3tables"
)

func newS3Client(p profile) (*s3.Client, error) {
	opts := []s3.Option{
		s3.WithCredentials(creds.NewStatic(p.AccessKey, p.SecretKey, p.SessionToken)),
		s3.WithUserAgent("s3ctl", version),
	}
	if p.Region != "" {
		opts = append(opts, s3.WithRegion(p.Region))
	}
	return s3.New(p.Endpoint, p.HTTPS, opts...)
}

func newTablesClient(p profile) (*s3tables.Client, error) {
	region := p.Region
	if region == "" {
		region = "us-east-1"
	}
	auth := s3tables.NewSigV4Auth(creds.NewStatic(p.AccessKey, p.SecretKey, p.SessionToken), region)
	return s3tables.New(p.TablesURL, auth, s3tables.WithUserAgent("s3ctl/"+version))
}

const version = "0.1.0"
