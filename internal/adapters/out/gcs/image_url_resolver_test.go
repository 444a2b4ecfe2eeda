package gcs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicImageResolver_ObjectPath(t *testing.T) {
	r := NewPublicImageResolver("atelier-storefront-images")
	assert.Equal(t,
		"https://storage.googleapis.com/atelier-storefront-images/products/p-001/main.png",
		r.Resolve("/products/p-001/main.png"))
}

func TestPublicImageResolver_AbsoluteURLPassthrough(t *testing.T) {
	r := NewPublicImageResolver("atelier-storefront-images")
	assert.Equal(t, "https://cdn.example.com/x.png", r.Resolve("https://cdn.example.com/x.png"))
}

func TestPublicImageResolver_RewritesCloudGoogleHost(t *testing.T) {
	r := NewPublicImageResolver("other-bucket")
	assert.Equal(t,
		"https://storage.googleapis.com/some-bucket/a/b.png",
		r.Resolve("https://storage.cloud.google.com/some-bucket/a/b.png"))
}

func TestPublicImageResolver_Empty(t *testing.T) {
	r := NewPublicImageResolver("")
	assert.Equal(t, "", r.Resolve("  "))
	assert.Equal(t, "", r.Resolve("orphan.png"))
}
