package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultMaxFileBytes is the largest image file accepted for analysis (10 MB).
const DefaultMaxFileBytes int64 = 10 * 1024 * 1024

var (
	// ErrFileTooLarge is returned for files above the cache's size limit.
	ErrFileTooLarge = errors.New("file is too large")

	// ErrUnsupportedFormat is returned for extensions outside AllowedExtensions.
	ErrUnsupportedFormat = errors.New("unsupported file type")
)

// AllowedExtensions lists the raster formats that can be analyzed directly.
var AllowedExtensions = []string{".png", ".jpg", ".jpeg"}

// DefaultMaxEntries bounds the number of decoded images an ImageCache keeps.
const DefaultMaxEntries = 8

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// Every file is validated before it is read: the extension must be one of
// AllowedExtensions and the file must not exceed the size limit. DICOM files
// (".dcm") are rejected with a hint to convert them first, since format
// conversion happens outside this server.
//
// A cached image is only reused while the file's modification time and size
// are unchanged; a rewritten file is decoded again. The oldest entry is
// evicted once more than DefaultMaxEntries images are held.
//
// The cache serves the inspection tools only. Analysis inputs are read with
// LoadFile so that no request sees another request's pixels.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/mammogram.png")
//	if err != nil {
//	    return err
//	}
type ImageCache struct {
	mu         sync.RWMutex
	entries    map[string]cacheEntry
	order      []string
	maxBytes   int64
	maxEntries int
}

type cacheEntry struct {
	img     image.Image
	modTime time.Time
	size    int64
}

func (e cacheEntry) matches(stat os.FileInfo) bool {
	return e.size == stat.Size() && e.modTime.Equal(stat.ModTime())
}

// NewImageCache creates an empty cache with the default size limit.
func NewImageCache() *ImageCache {
	return NewImageCacheWithLimit(DefaultMaxFileBytes)
}

// NewImageCacheWithLimit creates an empty cache that rejects files larger than
// maxBytes. A non-positive limit falls back to DefaultMaxFileBytes.
func NewImageCacheWithLimit(maxBytes int64) *ImageCache {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &ImageCache{
		entries:    make(map[string]cacheEntry),
		maxBytes:   maxBytes,
		maxEntries: DefaultMaxEntries,
	}
}

// MaxBytes returns the size limit applied by Load.
func (c *ImageCache) MaxBytes() int64 {
	return c.maxBytes
}

// Load retrieves an image from the cache or validates and decodes it from disk.
//
// # Errors
//
//   - ErrUnsupportedFormat if the extension is not allowed
//   - ErrFileTooLarge if the file exceeds the cache's limit
//   - an I/O or decode error otherwise
func (c *ImageCache) Load(path string) (image.Image, error) {
	stat, err := CheckFile(path, c.maxBytes)
	if err != nil {
		c.Evict(path)
		return nil, err
	}

	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && e.matches(stat) {
		return e.img, nil
	}

	img, err := decodeFile(path)
	if err != nil {
		c.Evict(path)
		return nil, err
	}
	c.store(path, cacheEntry{img: img, modTime: stat.ModTime(), size: stat.Size()})
	return img, nil
}

func (c *ImageCache) store(path string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[path]; !ok {
		c.order = append(c.order, path)
	}
	c.entries[path] = e
	for len(c.order) > c.maxEntries {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[path]; !ok {
		return
	}
	delete(c.entries, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// LoadFile validates and decodes an image without caching it. Every call
// reads the file afresh.
func LoadFile(path string, maxBytes int64) (image.Image, error) {
	if _, err := CheckFile(path, maxBytes); err != nil {
		return nil, err
	}
	return decodeFile(path)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// CheckFile validates the extension and size of an image file and returns
// its file info.
func CheckFile(path string, maxBytes int64) (os.FileInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".dcm" {
		return nil, fmt.Errorf("%w: %s (convert DICOM to PNG or JPEG first)", ErrUnsupportedFormat, ext)
	}
	allowed := false
	for _, a := range AllowedExtensions {
		if ext == a {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %q, allowed types: %s", ErrUnsupportedFormat, ext, strings.Join(AllowedExtensions, ", "))
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, stat.Size(), maxBytes)
	}
	return stat, nil
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is "png" or "jpeg", taken from the file extension.
	Format string `json:"format"`

	// ColorModel is "gray", "gray16", "rgb", "rgba" or "rgba64".
	ColorModel string `json:"color_model"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "png"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		format = "jpeg"
	}

	model := "rgb"
	switch img.(type) {
	case *image.Gray:
		model = "gray"
	case *image.Gray16:
		model = "gray16"
	case *image.RGBA, *image.NRGBA:
		model = "rgba"
	case *image.RGBA64, *image.NRGBA64:
		model = "rgba64"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorModel:    model,
		FileSizeBytes: stat.Size(),
	}, nil
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image loaded through the cache.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
