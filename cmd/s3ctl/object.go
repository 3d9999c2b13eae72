package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/minio/s3tables-go/pkg/s3"
	"github.com/spf13/cobra"
)

func newObjectCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "object", Short: "Object operations (put/get/ls/rm/presign)"}
	cmd.AddCommand(newObjectPutCmd())
	cmd.AddCommand(newObjectGetCmd())
	cmd.AddCommand(newObjectLsCmd())
	cmd.AddCommand(newObjectRmCmd())
	cmd.AddCommand(newObjectPresignCmd())
	return cmd
}

func newObjectPutCmd() *cobra.Command {
	var partSize int64
	cmd := &cobra.Command{
		Use:   "put BUCKET OBJECT FILE",
		Short: "Upload a file, splitting into multipart if it doesn't fit in one PutObject",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newS3Client(p)
			if err != nil {
				return err
			}
			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer f.Close()
			info, err := f.Stat()
			if err != nil {
				return err
			}
			start := time.Now()
			result, err := client.PutObject(cmd.Context(), args[0], args[1], f, info.Size(), s3.PutObjectOptions{PartSize: partSize})
			if err != nil {
				return err
			}
			elapsed := time.Since(start)
			fmt.Printf("uploaded %s (%s) in %s, etag=%s\n", args[1], humanize.Bytes(uint64(info.Size())), elapsed.Round(time.Millisecond), result.ETag)
			return nil
		},
	}
	cmd.Flags().Int64Var(&partSize, "part-size", 0, "multipart part size in bytes (0 = default)")
	return cmd
}

func newObjectGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get BUCKET OBJECT",
		Short: "Download an object to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newS3Client(p)
			if err != nil {
				return err
			}
			resp, err := client.GetObject(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, err = io.Copy(os.Stdout, resp.Body)
			return err
		},
	}
}

func newObjectLsCmd() *cobra.Command {
	var prefix string
	cmd := &cobra.Command{
		Use:   "ls BUCKET",
		Short: "List objects under a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newS3Client(p)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			for obj, err := range client.ListObjects(ctx, args[0], prefix) {
				if err != nil {
					return err
				}
				fmt.Printf("%12s  %s  %s\n", humanize.Bytes(uint64(obj.Size)), obj.LastModified, obj.Key)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "list only keys with this prefix")
	return cmd
}

func newObjectRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm BUCKET OBJECT",
		Short: "Delete an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newS3Client(p)
			if err != nil {
				return err
			}
			return client.DeleteObject(cmd.Context(), args[0], args[1])
		},
	}
}

func newObjectPresignCmd() *cobra.Command {
	var expires time.Duration
	var method string
	cmd := &cobra.Command{
		Use:   "presign BUCKET OBJECT",
		Short: "Print a presigned URL for an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := activeProfile()
			if err != nil {
				return err
			}
			client, err := newS3Client(p)
			if err != nil {
				return err
			}
			var url string
			switch method {
			case "GET":
				url, err = client.PresignedGetObject(args[0], args[1], expires)
			case "PUT":
				url, err = client.PresignedPutObject(args[0], args[1], expires)
			default:
				return fmt.Errorf("s3ctl: unsupported --method %q (want GET or PUT)", method)
			}
			if err != nil {
				return err
			}
			fmt.Println(url)
			return nil
		},
	}
	cmd.Flags().DurationVar(&expires, "expires", 15*time.Minute, "URL validity duration")
	cmd.Flags().StringVar(&method, "method", "GET", "HTTP method to presign (GET or PUT)")
	return cmd
}
