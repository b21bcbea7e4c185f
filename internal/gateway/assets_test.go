package gateway

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestAssetClient_LoadImage(t *testing.T) {
	logo := pngBytes(t)
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(logo)
	}))
	defer server.Close()

	client := NewAssetClient(AssetOptions{Timeout: 2 * time.Second, Retry: 1}, discardLogger())
	img, err := client.LoadImage(context.Background(), server.URL+"/logo.png")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 4), img.Bounds())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestAssetClient_LoadImageFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/forbidden":
			w.WriteHeader(http.StatusForbidden)
		default:
			_, _ = w.Write([]byte("not an image"))
		}
	}))
	defer server.Close()

	client := NewAssetClient(AssetOptions{Timeout: time.Second}, discardLogger())

	_, err := client.LoadImage(context.Background(), server.URL+"/forbidden")
	assert.ErrorContains(t, err, "403")

	_, err = client.LoadImage(context.Background(), server.URL+"/text")
	assert.ErrorContains(t, err, "decode image")
}
