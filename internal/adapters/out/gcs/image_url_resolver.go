// internal/adapters/out/gcs/image_url_resolver.go
package gcs

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/sirupsen/logrus"
)

// PublicImageResolver turns catalog image refs into public GCS URLs.
//
// An image ref can be:
//   - http(s)://... (returned as-is)
//   - https://storage.googleapis.com/<bucket>/<object> (parsed, rebuilt)
//   - an object path within the configured bucket
type PublicImageResolver struct {
	Bucket string
}

func NewPublicImageResolver(bucket string) *PublicImageResolver {
	return &PublicImageResolver{Bucket: strings.TrimSpace(bucket)}
}

func (r *PublicImageResolver) Resolve(imageRef string) string {
	p := strings.TrimSpace(imageRef)
	if p == "" {
		return ""
	}

	if b, obj, ok := parseGCSURL(p); ok {
		return publicURL(b, obj)
	}

	// already absolute URL
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}

	b := ""
	if r != nil {
		b = strings.TrimSpace(r.Bucket)
	}
	if b == "" {
		return ""
	}
	return publicURL(b, p)
}

// SignedImageResolver issues time-limited read URLs for a private image
// bucket. Falls back to the public URL form when signing fails so a cart
// response never loses its image column entirely.
type SignedImageResolver struct {
	Client      *storage.Client
	Bucket      string
	SignerEmail string
	TTL         time.Duration
	Log         *logrus.Logger
}

const defaultSignedImageTTL = 15 * time.Minute

func NewSignedImageResolver(client *storage.Client, bucket, signerEmail string, ttl time.Duration, log *logrus.Logger) *SignedImageResolver {
	if ttl <= 0 {
		ttl = defaultSignedImageTTL
	}
	return &SignedImageResolver{
		Client:      client,
		Bucket:      strings.TrimSpace(bucket),
		SignerEmail: strings.TrimSpace(signerEmail),
		TTL:         ttl,
		Log:         log,
	}
}

func (r *SignedImageResolver) Resolve(imageRef string) string {
	p := strings.TrimSpace(imageRef)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}

	b := strings.TrimSpace(r.Bucket)
	obj := strings.TrimLeft(p, "/")
	if r.Client == nil || b == "" || obj == "" {
		return publicURL(b, obj)
	}

	u, err := r.Client.Bucket(b).SignedURL(obj, &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		GoogleAccessID: r.SignerEmail,
		Expires:        time.Now().Add(r.TTL),
	})
	if err != nil {
		if r.Log != nil {
			r.Log.WithError(err).WithField("object", obj).Warn("gcs: signed url failed, using public url")
		}
		return publicURL(b, obj)
	}
	return u
}

func publicURL(bucket, objectPath string) string {
	b := strings.TrimSpace(bucket)
	obj := strings.TrimLeft(strings.TrimSpace(objectPath), "/")
	if b == "" || obj == "" {
		return ""
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", b, obj)
}

func parseGCSURL(u string) (string, string, bool) {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return "", "", false
	}

	host := strings.ToLower(parsed.Host)
	if host != "storage.googleapis.com" && host != "storage.cloud.google.com" {
		return "", "", false
	}

	p := strings.TrimLeft(parsed.EscapedPath(), "/")
	parts := strings.SplitN(p, "/", 2)
	if len(parts) < 2 {
		return "", "", false
	}

	objectPath, err := url.PathUnescape(parts[1])
	if err != nil {
		return "", "", false
	}
	return parts[0], objectPath, true
}
