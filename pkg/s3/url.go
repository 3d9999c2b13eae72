package s3

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/minio/s3tables-go/internal/multimap"
	"github.com/minio/s3tables-go/internal/s3utils"
)

// URL is the minimal request-target representation the signer and engine
// share: scheme/host/port, path, and an ordered query multimap.
type URL struct {
	HTTPS bool
	Host  string
	Port  int
	Path  string
	Query *multimap.Multimap
}

// Scheme returns "https" or "http".
func (u URL) Scheme() string {
	if u.HTTPS {
		return "https"
	}
	return "http"
}

// HostHeaderValue renders the Host header value: host, plus ":port" only
// when port is set and not the scheme's default.
func (u URL) HostHeaderValue() string {
	if u.Port == 0 {
		return u.Host
	}
	if (u.HTTPS && u.Port == 443) || (!u.HTTPS && u.Port == 80) {
		return u.Host
	}
	return u.Host + ":" + strconv.Itoa(u.Port)
}

// String renders the full URL, including an encoded path and query string.
func (u URL) String() string {
	s := u.Scheme() + "://" + u.HostHeaderValue() + multimap.EncodePathSegment(u.Path)
	if u.Query != nil {
		if qs := u.Query.CanonicalQueryString(); qs != "" {
			s += "?" + qs
		}
	}
	return s
}

// BaseUrl is a parsed client endpoint enriched with AWS classification, per
// spec.md §3.
type BaseUrl struct {
	HTTPS          bool
	Host           string
	Port           int
	AWSS3Prefix    string // e.g. "s3-accesspoint", "" if not AWS-shaped
	AWSDomainSuffix string // e.g. "amazonaws.com", "amazonaws.com.cn"
	Dualstack      bool
	VirtualStyle   bool
	Region         string // fixed region if the host encodes one, else ""
	IsAWS          bool
}

// ParseBaseUrl parses endpoint (host[:port], optionally with a scheme) and
// classifies it using internal/s3utils's regex-based AWS endpoint rules.
func ParseBaseUrl(endpoint string, https bool) (*BaseUrl, error) {
	if !strings.Contains(endpoint, "://") {
		scheme := "http"
		if https {
			scheme = "https"
		}
		endpoint = scheme + "://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("s3: invalid endpoint %q: %w", endpoint, err)
	}
	host := u.Hostname()
	port := 0
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("s3: invalid port in endpoint %q: %w", endpoint, err)
		}
	}

	bu := &BaseUrl{
		HTTPS: u.Scheme == "https",
		Host:  host,
		Port:  port,
	}

	classifyURL := url.URL{Scheme: bu.Scheme(), Host: hostPort(host, port)}
	bu.IsAWS = s3utils.IsAmazonEndpoint(classifyURL)
	bu.Dualstack = s3utils.IsDualStackEndpoint(classifyURL)
	bu.VirtualStyle = bu.IsAWS
	bu.Region = s3utils.GetRegionFromURL(classifyURL)

	switch {
	case s3utils.IsAmazonAccessPointEndpoint(classifyURL):
		bu.AWSS3Prefix = "s3-accesspoint"
	case s3utils.IsAmazonAccelerateEndpoint(classifyURL):
		bu.AWSS3Prefix = "s3-accelerate"
	case s3utils.IsAmazonOutpostsEndpoint(classifyURL):
		bu.AWSS3Prefix = "s3-outposts"
	}
	if strings.HasSuffix(host, ".amazonaws.com.cn") {
		bu.AWSDomainSuffix = "amazonaws.com.cn"
	} else if bu.IsAWS {
		bu.AWSDomainSuffix = "amazonaws.com"
	}
	return bu, nil
}

func (b *BaseUrl) Scheme() string {
	if b.HTTPS {
		return "https"
	}
	return "http"
}

func hostPort(host string, port int) string {
	if port == 0 {
		return host
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// BuildURL implements spec.md §4.2's URL builder: given method, region,
// query, and optional bucket/object, returns the target URL with the
// correct virtual/path-style addressing and AWS host rewriting.
func BuildURL(base *BaseUrl, method, region string, query *multimap.Multimap, bucket, object string) (*URL, error) {
	if query == nil {
		query = multimap.New()
	}

	if bucket == "" {
		host := base.Host
		if base.IsAWS {
			host = "s3." + domainSuffixOrDefault(base)
			if base.Region != "" {
				host = "s3." + base.Region + "." + domainSuffixOrDefault(base)
			}
		}
		return &URL{HTTPS: base.HTTPS, Host: host, Port: base.Port, Path: "/", Query: query}, nil
	}

	enforcePathStyle := (method == "PUT" && object == "" && query.CanonicalQueryString() == "") ||
		query.Has("location") ||
		(strings.Contains(bucket, ".") && base.HTTPS)

	host := base.Host
	virtual := base.VirtualStyle && !enforcePathStyle

	if base.IsAWS {
		if base.AWSS3Prefix == "s3-accelerate" && strings.Contains(bucket, ".") {
			return nil, &ErrorResponse{Kind: ErrValidation, Code: "InvalidArgument",
				Message: "transfer acceleration cannot be used with a bucket name containing '.'", Bucket: bucket}
		}
		if base.AWSS3Prefix == "s3-accesspoint" && !base.HTTPS {
			return nil, &ErrorResponse{Kind: ErrValidation, Code: "InvalidArgument",
				Message: "s3-accesspoint endpoints require HTTPS", Bucket: bucket}
		}
		domainSuffix := domainSuffixOrDefault(base)
		prefix := "s3"
		if base.AWSS3Prefix != "" && !enforcePathStyle {
			prefix = base.AWSS3Prefix
		}
		dual := ""
		if base.Dualstack && !enforcePathStyle {
			dual = "dualstack."
		}
		if enforcePathStyle && prefix == "s3-accelerate" {
			prefix = "s3"
		}
		regionPart := ""
		if region != "" && region != "us-east-1" {
			regionPart = region + "."
		}
		if base.Region != "" {
			regionPart = ""
		}
		host = prefix + "." + dual + regionPart + domainSuffix
		virtual = base.VirtualStyle && !enforcePathStyle
	}

	path := "/"
	finalHost := host
	if virtual {
		finalHost = bucket + "." + host
		if object != "" {
			path = "/" + object
		}
	} else {
		path = "/" + bucket + "/"
		if object != "" {
			path = "/" + bucket + "/" + object
		}
	}

	return &URL{HTTPS: base.HTTPS, Host: finalHost, Port: base.Port, Path: path, Query: query}, nil
}

func domainSuffixOrDefault(base *BaseUrl) string {
	if base.AWSDomainSuffix != "" {
		return base.AWSDomainSuffix
	}
	return "amazonaws.com"
}
